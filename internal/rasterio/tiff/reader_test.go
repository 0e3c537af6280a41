package tiff

import (
	"testing"

	"github.com/pspoerri/rastertiles/internal/container"
	"github.com/pspoerri/rastertiles/internal/raster"
)

func TestDecodeRawGray(t *testing.T) {
	geom := raster.Geometry{Width: 3, Height: 2, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	payload := []byte{1, 2, 3, 4, 5, 6}

	header, err := container.SynthesizeTIFFHeader(geom, uint32(len(payload)), container.CompressionNone)
	if err != nil {
		t.Fatalf("SynthesizeTIFFHeader: %v", err)
	}
	file := append(append([]byte{}, header...), payload...)

	gotGeom, gotPixels, err := Decode(file)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotGeom.Width != 3 || gotGeom.Height != 2 || gotGeom.Channels != 1 {
		t.Fatalf("geometry = %+v", gotGeom)
	}
	for i, want := range payload {
		if gotPixels[i] != want {
			t.Errorf("pixel %d = %d, want %d", i, gotPixels[i], want)
		}
	}
}

func TestDecodeRGB(t *testing.T) {
	geom := raster.Geometry{Width: 2, Height: 1, Channels: 3, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	payload := []byte{10, 20, 30, 40, 50, 60}

	header, err := container.SynthesizeTIFFHeader(geom, uint32(len(payload)), container.CompressionNone)
	if err != nil {
		t.Fatalf("SynthesizeTIFFHeader: %v", err)
	}
	file := append(append([]byte{}, header...), payload...)

	gotGeom, gotPixels, err := Decode(file)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotGeom.Channels != 3 {
		t.Fatalf("channels = %d, want 3", gotGeom.Channels)
	}
	for i, want := range payload {
		if gotPixels[i] != want {
			t.Errorf("pixel %d = %d, want %d", i, gotPixels[i], want)
		}
	}
}

package rasterio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/rastertiles/internal/raster"
)

func TestWriteThenOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tif")

	geom := raster.Geometry{Width: 3, Height: 2, Channels: 3, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	src, err := raster.Fill(geom, []byte{10, 20, 30})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	w, err := NewWriter(WriterSpec{
		Path: path, Width: 3, Height: 2, Channels: 3,
		SampleKind: raster.UnsignedInt, SampleBits: 8, Photometric: raster.RGB,
		Compression: "raw",
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(src); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Geometry().Width != 3 || got.Geometry().Height != 2 || got.Geometry().Channels != 3 {
		t.Fatalf("geometry = %+v", got.Geometry())
	}

	row := make([]byte, got.Geometry().RowBytes())
	if _, err := got.ReadRow(0, row); err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	want := []byte{10, 20, 30, 10, 20, 30, 10, 20, 30}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("row[%d] = %d, want %d", i, row[i], want[i])
		}
	}
}

func TestWriteThenOpenLZWRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out_lzw.tif")

	geom := raster.Geometry{Width: 4, Height: 4, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	src, err := raster.Fill(geom, []byte{99})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	w, err := NewWriter(WriterSpec{
		Path: path, Width: 4, Height: 4, Channels: 1,
		SampleKind: raster.UnsignedInt, SampleBits: 8, Photometric: raster.Gray,
		Compression: "lzw",
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(src); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	row := make([]byte, got.Geometry().RowBytes())
	for y := 0; y < 4; y++ {
		if _, err := got.ReadRow(y, row); err != nil {
			t.Fatalf("ReadRow(%d): %v", y, err)
		}
		for i, b := range row {
			if b != 99 {
				t.Fatalf("row %d byte %d = %d, want 99", y, i, b)
			}
		}
	}
}

func TestSetMaskRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tif")
	geom := raster.Geometry{Width: 2, Height: 2, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	src, _ := raster.Fill(geom, []byte{1})
	w, err := NewWriter(WriterSpec{Path: path, Width: 2, Height: 2, Channels: 1, SampleKind: raster.UnsignedInt, SampleBits: 8, Photometric: raster.Gray, Compression: "raw"})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(src); err != nil {
		t.Fatalf("Write: %v", err)
	}

	badMask, _ := raster.Fill(raster.MaskGeometry(3, 3), []byte{255})
	if err := w.SetMask(badMask); err == nil {
		t.Fatal("expected MaskMismatch error")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

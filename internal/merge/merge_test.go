package merge

import (
	"testing"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
)

func rgba(geom raster.Geometry, pixels [][]byte) *raster.RawBuffer {
	data := make([]byte, geom.RowBytes()*geom.Height)
	bpp := geom.BytesPerPixel()
	for y := 0; y < geom.Height; y++ {
		for x := 0; x < geom.Width; x++ {
			copy(data[y*geom.RowBytes()+x*bpp:], pixels[y*geom.Width+x])
		}
	}
	buf, err := raster.NewRawBuffer(geom, data)
	if err != nil {
		panic(err)
	}
	return buf
}

func readAllRows(t *testing.T, n raster.Node) [][]byte {
	t.Helper()
	g := n.Geometry()
	rows := make([][]byte, g.Height)
	for y := 0; y < g.Height; y++ {
		row := make([]byte, g.RowBytes())
		if _, err := n.ReadRow(y, row); err != nil {
			t.Fatalf("ReadRow(%d): %v", y, err)
		}
		rows[y] = row
	}
	return rows
}

func TestMergeTop2x2RGBA(t *testing.T) {
	geom := raster.Geometry{Width: 2, Height: 2, Channels: 4, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	bottom := rgba(geom, [][]byte{
		{0, 0, 0, 255}, {0, 0, 0, 255},
		{0, 0, 0, 255}, {0, 0, 0, 255},
	})
	top := rgba(geom, [][]byte{
		{255, 0, 0, 128}, {255, 0, 0, 128},
		{255, 0, 0, 128}, {255, 0, 0, 128},
	})

	n, err := New([]raster.Node{bottom, top}, Config{
		Operator: TOP, OutputChannels: 4, Background: []float64{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rows := readAllRows(t, n)
	want := []byte{255, 0, 0, 128}
	for y := range rows {
		for x := 0; x < 2; x++ {
			got := rows[y][x*4 : x*4+4]
			for c := range want {
				if got[c] != want[c] {
					t.Fatalf("row %d pixel %d = %v, want %v", y, x, got, want)
				}
			}
		}
	}
}

func TestMergeAlphaTopBlend(t *testing.T) {
	geom := raster.Geometry{Width: 1, Height: 1, Channels: 4, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	bottom := rgba(geom, [][]byte{{0, 0, 0, 255}})
	top := rgba(geom, [][]byte{{255, 0, 0, 128}})

	n, err := New([]raster.Node{bottom, top}, Config{
		Operator: ALPHATOP, OutputChannels: 4, Background: []float64{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := readAllRows(t, n)[0]
	want := []byte{128, 0, 0, 255}
	for c := range want {
		if row[c] != want[c] {
			t.Fatalf("pixel = %v, want %v", row[:4], want)
		}
	}
}

func TestMergeMultiplyGray(t *testing.T) {
	geom := raster.Geometry{Width: 1, Height: 1, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	a := rgba(geom, [][]byte{{100}})
	b := rgba(geom, [][]byte{{50}})
	c := rgba(geom, [][]byte{{200}})

	n, err := New([]raster.Node{a, b, c}, Config{
		Operator: MULTIPLY, OutputChannels: 1, Background: []float64{255},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := readAllRows(t, n)[0]
	// background 255 is the multiplicative identity, so only a,b,c matter:
	// floor(100*50*200/255/255) = 15
	if row[0] != 15 {
		t.Fatalf("got %d, want 15", row[0])
	}
}

func TestMergeAlphaTopTransparentColor(t *testing.T) {
	geom := raster.Geometry{Width: 1, Height: 1, Channels: 3, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	white := rgba(geom, [][]byte{{255, 255, 255}})
	transparent := [3]byte{255, 255, 255}

	n, err := New([]raster.Node{white}, Config{
		Operator: ALPHATOP, OutputChannels: 4, Background: []float64{0, 0, 0, 0},
		Transparent: &transparent,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := readAllRows(t, n)[0]
	for c, v := range row {
		if v != 0 {
			t.Fatalf("pixel[%d] = %d, want 0", c, v)
		}
	}

	maskRow := make([]byte, n.Mask().Geometry().RowBytes())
	if _, err := n.Mask().ReadRow(0, maskRow); err != nil {
		t.Fatalf("mask ReadRow: %v", err)
	}
	if maskRow[0] != 0 {
		t.Fatalf("mask = %d, want 0 (no input present)", maskRow[0])
	}
}

func TestMergeAlphaTopFloatUnsupported(t *testing.T) {
	geom := raster.Geometry{Width: 1, Height: 1, Channels: 1, SampleBits: 32, SampleKind: raster.Float, Photometric: raster.Gray}
	a, err := raster.NewRawBuffer(geom, make([]byte, geom.RowBytes()*geom.Height))
	if err != nil {
		t.Fatalf("NewRawBuffer: %v", err)
	}

	_, err = New([]raster.Node{a}, Config{
		Operator: ALPHATOP, OutputChannels: 1, Background: []float64{0},
	})
	if !errs.Is(err, errs.UnsupportedCombination) {
		t.Fatalf("expected UnsupportedCombination, got %v", err)
	}
}

func TestMergeMixedChannelInputs(t *testing.T) {
	grayGeom := raster.Geometry{Width: 1, Height: 1, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	rgbaGeom := raster.Geometry{Width: 1, Height: 1, Channels: 4, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}

	bottom := rgba(grayGeom, [][]byte{{50}})
	top := rgba(rgbaGeom, [][]byte{{10, 20, 30, 255}})

	n, err := New([]raster.Node{bottom, top}, Config{
		Operator: TOP, OutputChannels: 4, Background: []float64{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := readAllRows(t, n)[0]
	want := []byte{10, 20, 30, 255}
	for c := range want {
		if row[c] != want[c] {
			t.Fatalf("pixel = %v, want %v", row, want)
		}
	}
}

func TestMergeGeometryMismatch(t *testing.T) {
	g1 := raster.Geometry{Width: 2, Height: 2, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	g2 := raster.Geometry{Width: 3, Height: 2, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	a, _ := raster.Fill(g1, []byte{1})
	b, _ := raster.Fill(g2, []byte{1})

	_, err := New([]raster.Node{a, b}, Config{Operator: TOP, OutputChannels: 1, Background: []float64{0}})
	if err == nil {
		t.Fatal("expected GeometryMismatch error")
	}
}

func TestMergeMaskAllPresent(t *testing.T) {
	geom := raster.Geometry{Width: 2, Height: 1, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	a, _ := raster.Fill(geom, []byte{7})

	n, err := New([]raster.Node{a}, Config{Operator: TOP, OutputChannels: 1, Background: []float64{0}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	maskRow := make([]byte, n.Mask().Geometry().RowBytes())
	if _, err := n.Mask().ReadRow(0, maskRow); err != nil {
		t.Fatalf("mask ReadRow: %v", err)
	}
	for x, v := range maskRow {
		if v != 255 {
			t.Fatalf("mask[%d] = %d, want 255", x, v)
		}
	}
}

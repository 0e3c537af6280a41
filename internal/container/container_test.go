package container

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/rastertiles/internal/raster"
)

func TestTileOffsetArithmetic(t *testing.T) {
	// The fixture from the pyramid's worked example: a 16x16-tile
	// container, tile (x=6424, y=50233).
	c := &Container{TilesWide: 16, TilesHigh: 16}
	x, y := 6424%16, 50233%16 // container-local coords of the fixture tile: (8, 9)
	// tileIndex accepts the raw global coordinates since it applies the
	// modulus itself, matching the container layout's n formula.
	n := c.tileIndex(6424, 50233)
	wantN := y*16 + x
	if n != wantN {
		t.Fatalf("tileIndex = %d, want %d", n, wantN)
	}

	posoff := c.offsetFieldPos(6424, 50233)
	possize := c.sizeFieldPos(6424, 50233)
	if posoff != 2656 {
		t.Errorf("posoff = %d, want 2656", posoff)
	}
	if possize != 3680 {
		t.Errorf("possize = %d, want 3680", possize)
	}
}

func writeTestContainer(t *testing.T, tilesWide, tilesHigh int, payloads map[[2]int][]byte) string {
	t.Helper()
	n := tilesWide * tilesHigh
	size := HeaderSize + 4*n*2
	var payloadBytes []byte
	offsets := make([]uint32, n)
	lengths := make([]uint32, n)
	for idx := 0; idx < n; idx++ {
		x, y := idx%tilesWide, idx/tilesWide
		p := payloads[[2]int{x, y}]
		offsets[idx] = uint32(size + len(payloadBytes))
		lengths[idx] = uint32(len(p))
		payloadBytes = append(payloadBytes, p...)
	}
	size += len(payloadBytes)

	buf := make([]byte, size)
	base := HeaderSize
	for idx := 0; idx < n; idx++ {
		binary.LittleEndian.PutUint32(buf[base+4*idx:], offsets[idx])
		binary.LittleEndian.PutUint32(buf[base+4*n+4*idx:], lengths[idx])
	}
	copy(buf[HeaderSize+4*n*2:], payloadBytes)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.container")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLocateAndReadRaw(t *testing.T) {
	payloads := map[[2]int][]byte{
		{0, 0}: {1, 2, 3, 4},
		{1, 0}: {5, 6},
		{0, 1}: {7, 8, 9},
		{1, 1}: {10},
	}
	path := writeTestContainer(t, 2, 2, payloads)

	geom := raster.Geometry{Width: 2, Height: 2, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	c, err := Open(path, 2, 2, geom, "raw", "image/tiff")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	for coord, want := range payloads {
		got, err := c.ReadRaw(coord[0], coord[1])
		if err != nil {
			t.Fatalf("ReadRaw(%v): %v", coord, err)
		}
		if len(got) != len(want) {
			t.Fatalf("ReadRaw(%v) = %v, want %v", coord, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ReadRaw(%v)[%d] = %d, want %d", coord, i, got[i], want[i])
			}
		}
	}
}

func TestLocateOutOfRange(t *testing.T) {
	path := writeTestContainer(t, 1, 1, map[[2]int][]byte{{0, 0}: {1}})
	geom := raster.Geometry{Width: 1, Height: 1, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
	c, err := Open(path, 1, 1, geom, "raw", "image/tiff")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Locate(5, 0); err == nil {
		t.Fatal("expected NotFound for out-of-range tile")
	}
}

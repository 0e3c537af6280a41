package pyramid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pspoerri/rastertiles/internal/raster"
)

func writeFakePayloadContainer(t *testing.T, path string, tilesWide, tilesHigh, payloadLen int, fill byte) {
	t.Helper()
	n := tilesWide * tilesHigh
	buf := make([]byte, 2048+8*n+payloadLen*n)
	for i := 0; i < n; i++ {
		off := uint32(2048 + 8*n + i*payloadLen)
		putLE32(buf, 2048+4*i, off)
		putLE32(buf, 2048+4*n+4*i, uint32(payloadLen))
		for j := 0; j < payloadLen; j++ {
			buf[int(off)+j] = fill
		}
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestReadRawTileExactLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.tif")
	writeFakePayloadContainer(t, path, 2, 2, 16, 0x7A)

	lv := Level{
		Matrix:        TileMatrix{ID: "5", Resolution: 1.0, TileWidth: 4, TileHeight: 4, GridWidth: 2, GridHeight: 2},
		TilesPerContW: 2, TilesPerContH: 2,
		ResolvePath: func(cx, cy int) string { return path },
		NodataPath:  filepath.Join(dir, "nodata.tif"),
		Encoding:    "raw", Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, MimeType: "image/tiff",
	}
	p := New([]Level{lv})
	defer p.Close()

	tile, status, err := p.ReadRawTile("5", 1, 0)
	require.NoError(t, err)
	require.Equal(t, Exact, status)
	require.Equal(t, "image/tiff", tile.MimeType)
	require.Len(t, tile.Payload, 16)
	for _, b := range tile.Payload {
		require.Equal(t, byte(0x7A), b)
	}
	require.NotEmpty(t, tile.Header)
}

func TestReadRawTileUnknownMatrixServesNodata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.tif")
	writeFakePayloadContainer(t, path, 2, 2, 16, 0x01)
	nodataPath := filepath.Join(dir, "nodata.tif")
	writeFakePayloadContainer(t, nodataPath, 1, 1, 16, 0x00)

	lv := Level{
		Matrix:        TileMatrix{ID: "5", Resolution: 1.0, TileWidth: 4, TileHeight: 4, GridWidth: 2, GridHeight: 2},
		TilesPerContW: 2, TilesPerContH: 2,
		ResolvePath: func(cx, cy int) string { return path },
		NodataPath:  nodataPath,
		Encoding:    "raw", Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, MimeType: "image/tiff",
	}
	p := New([]Level{lv})
	defer p.Close()

	tile, status, err := p.ReadRawTile("missing", 0, 0)
	require.NoError(t, err)
	require.Equal(t, NearestFallback, status)
	require.Len(t, tile.Payload, 16)
	for _, b := range tile.Payload {
		require.Equal(t, byte(0x00), b)
	}
}

// Package pyramid resolves a (tile_matrix_id, x, y) request into a tile
// reference inside a sharded container file, falling back to a
// per-level nodata tile when the requested matrix or tile is outside
// the pyramid's declared extent.
package pyramid

import (
	"github.com/pspoerri/rastertiles/internal/raster"
)

// TileMatrix is a WMTS-style grid descriptor at one resolution.
type TileMatrix struct {
	ID         string
	Resolution float64 // ground units per pixel
	TileWidth  int
	TileHeight int
	GridWidth  int // tiles across the whole level
	GridHeight int
}

// ContainerPathResolver maps container grid coordinates (cx, cy) to the
// path of the container file holding tile (x, y) after division by the
// per-container tile counts.
type ContainerPathResolver func(cx, cy int) string

// Level is one resolution of a Pyramid: a grid of containers sharing a
// tile matrix, plus the nodata tile served when a request falls
// outside the level's declared grid (Matrix.GridWidth x GridHeight).
type Level struct {
	Matrix          TileMatrix
	TilesPerContW   int // tiles_per_container_w
	TilesPerContH   int // tiles_per_container_h
	ResolvePath     ContainerPathResolver
	NodataPath      string
	Encoding        string
	Channels        int
	SampleBits      int
	SampleKind      raster.SampleKind
	MimeType        string
}

// containerCoords returns the container grid cell holding global tile
// (x, y), and the tile's local coordinates within that container.
func (l Level) containerCoords(x, y int) (cx, cy, localX, localY int) {
	cx = x / l.TilesPerContW
	cy = y / l.TilesPerContH
	localX = x % l.TilesPerContW
	localY = y % l.TilesPerContH
	return
}

func (l Level) tileGeometry() raster.Geometry {
	return raster.Geometry{
		Width: l.TilesPerContW * l.Matrix.TileWidth, Height: l.TilesPerContH * l.Matrix.TileHeight,
		Channels: l.Channels, SampleBits: l.SampleBits, SampleKind: l.SampleKind,
	}
}

// containerGeometry is the geometry of one full container file (all of
// its tiles stacked into the declared grid), as container.Open wants it.
func (l Level) containerGeometry() raster.Geometry {
	return l.tileGeometry()
}

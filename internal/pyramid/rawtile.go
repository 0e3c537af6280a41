package pyramid

import (
	"github.com/pspoerri/rastertiles/internal/container"
	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
)

// RawTile is a tile ready for direct transport forwarding: a
// synthesized standalone header followed by the payload bytes read
// straight out of a container, with no pixel decode in between.
type RawTile struct {
	Header   []byte
	Payload  []byte
	MimeType string
	Encoding string
}

// ReadRawTile implements the spec's fast serving path end to end:
// resolve the level, locate the tile inside its container, read the
// raw payload, and prepend a synthesized header — never decoding
// pixels unless the caller's accepted encoding differs downstream.
// The synthesized header is always a standalone TIFF; palette PNG
// headers need a loaded palette, which has no source without a style
// definition (out of scope here), so container.SynthesizePNGHeader has
// no caller in this path.
func (p *Pyramid) ReadRawTile(tileMatrixID string, x, y int) (RawTile, ResolveStatus, error) {
	lv, status := p.levelForRequest(tileMatrixID)
	if lv == nil {
		return RawTile{}, NodataFallback, errs.New(errs.NotFound, "pyramid.ReadRawTile", nil)
	}
	if status == Exact && (x < 0 || y < 0 || x >= lv.Matrix.GridWidth || y >= lv.Matrix.GridHeight) {
		status = NodataFallback // outside the level's declared grid: serve its nodata tile
	}

	tileGeom := raster.Geometry{
		Width: lv.Matrix.TileWidth, Height: lv.Matrix.TileHeight,
		Channels: lv.Channels, SampleBits: lv.SampleBits, SampleKind: lv.SampleKind,
	}

	var ct *container.Container
	var localX, localY int
	var err error
	if status == Exact {
		cx, cy, lx, ly := lv.containerCoords(x, y)
		localX, localY = lx, ly
		path := lv.ResolvePath(cx, cy)
		ct, err = p.cache.open(path, lv.TilesPerContW, lv.TilesPerContH, lv.containerGeometry(), lv.Encoding, lv.MimeType)
	} else {
		ct, err = p.cache.open(lv.NodataPath, 1, 1, tileGeom, lv.Encoding, lv.MimeType)
	}
	if err != nil {
		return RawTile{}, status, err
	}

	payload, err := ct.ReadRaw(localX, localY)
	if err != nil {
		return RawTile{}, status, err
	}
	tiffCompression := tiffCompressionTag(lv.Encoding)
	header, err := container.SynthesizeTIFFHeader(tileGeom, uint32(len(payload)), tiffCompression)
	if err != nil {
		return RawTile{}, status, err
	}

	return RawTile{Header: header, Payload: payload, MimeType: lv.MimeType, Encoding: lv.Encoding}, status, nil
}

// levelForRequest resolves the level to read from without forcing a
// container open, so ReadRawTile can decide between the level's own
// containers and its nodata file before touching the filesystem.
func (p *Pyramid) levelForRequest(tileMatrixID string) (lv *Level, status ResolveStatus) {
	if found, ok := p.levels[tileMatrixID]; ok {
		return found, Exact
	}
	return p.nearestLevel(tileMatrixID)
}

func tiffCompressionTag(encoding string) uint16 {
	switch encoding {
	case "lzw":
		return container.CompressionLZW
	case "packbits", "pkb":
		return container.CompressionPackBits
	case "deflate", "zip":
		return container.CompressionDeflate
	case "jpeg", "jpg":
		return container.CompressionJPEG
	default:
		return container.CompressionNone
	}
}

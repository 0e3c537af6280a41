package container

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
	"github.com/pspoerri/rastertiles/internal/rasterio/codec"
)

// HeaderSize is the fixed prefix every container reserves for its
// TIFF header and IFD skeleton before the offset tables begin.
const HeaderSize = 2048

// Container is a packed-tile file: HeaderSize bytes of TIFF header,
// then a little-endian uint32 tile-offset table, then a same-length
// tile-bytecount table, then the tile payloads themselves. It holds no
// mutable state beyond an open, positional-read-safe file handle and
// may be shared by reference across concurrent readers.
type Container struct {
	path       string
	f          *os.File
	size       int64
	TilesWide  int
	TilesHigh  int
	Geometry   raster.Geometry
	Encoding   string // "raw", "deflate", "packbits", "lzw", "jpeg", "png"
	MimeType   string

	closeOnce sync.Once
}

// Open opens an existing container file for reading. tilesWide and
// tilesHigh describe the container's own tile grid (not the pyramid
// level's full grid).
func Open(path string, tilesWide, tilesHigh int, geom raster.Geometry, encoding, mimeType string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "container.Open", "%v", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.Io, "container.Open", "stat: %v", err)
	}
	return &Container{
		path:      path,
		f:         f,
		size:      info.Size(),
		TilesWide: tilesWide,
		TilesHigh: tilesHigh,
		Geometry:  geom,
		Encoding:  encoding,
		MimeType:  mimeType,
	}, nil
}

func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.f.Close() })
	return err
}

func (c *Container) Path() string { return c.path }

// tileIndex computes the row-major index of tile (x,y) within this
// container's grid, per the wrap rule in the container layout.
func (c *Container) tileIndex(x, y int) int {
	return (y%c.TilesHigh)*c.TilesWide + (x % c.TilesWide)
}

// offsetFieldPos returns the byte offset of the 32-bit offset-table
// slot for tile (x,y).
func (c *Container) offsetFieldPos(x, y int) int64 {
	return HeaderSize + 4*int64(c.tileIndex(x, y))
}

// sizeFieldPos returns the byte offset of the 32-bit bytecount-table
// slot for tile (x,y).
func (c *Container) sizeFieldPos(x, y int) int64 {
	n := c.TilesWide * c.TilesHigh
	return HeaderSize + 4*int64(c.tileIndex(x, y)) + 4*int64(n)
}

// Locate reads the two table slots for tile (x,y) and returns the
// payload's offset and length within the file.
func (c *Container) Locate(x, y int) (payloadOffset, payloadLength uint32, err error) {
	if x < 0 || x >= c.TilesWide || y < 0 || y >= c.TilesHigh {
		return 0, 0, errs.New(errs.NotFound, "container.Locate", nil)
	}

	var offBuf, lenBuf [4]byte
	if _, err := c.f.ReadAt(offBuf[:], c.offsetFieldPos(x, y)); err != nil {
		return 0, 0, errs.Wrap(errs.Io, "container.Locate", "reading offset table: %v", err)
	}
	if _, err := c.f.ReadAt(lenBuf[:], c.sizeFieldPos(x, y)); err != nil {
		return 0, 0, errs.Wrap(errs.Io, "container.Locate", "reading size table: %v", err)
	}

	offset := binary.LittleEndian.Uint32(offBuf[:])
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if int64(offset)+int64(length) > c.size {
		return 0, 0, errs.Wrap(errs.Corrupt, "container.Locate", "payload [%d,%d) exceeds file size %d", offset, offset+length, c.size)
	}
	return offset, length, nil
}

// ReadRaw returns exactly the payload bytes for tile (x,y), suitable
// for direct forwarding behind a synthesized header.
func (c *Container) ReadRaw(x, y int) ([]byte, error) {
	offset, length, err := c.Locate(x, y)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if length > 0 {
		if _, err := c.f.ReadAt(buf, int64(offset)); err != nil {
			return nil, errs.Wrap(errs.Io, "container.ReadRaw", "%v", err)
		}
	}
	return buf, nil
}

// Decode reads and fully decodes tile (x,y) through the codec matching
// the container's declared encoding, returning a RasterNode exposing
// the container's declared per-tile geometry.
func (c *Container) Decode(x, y int) (raster.Node, error) {
	payload, err := c.ReadRaw(x, y)
	if err != nil {
		return nil, err
	}

	tileGeom := c.Geometry
	tileGeom.Width = c.Geometry.Width / c.TilesWide
	tileGeom.Height = c.Geometry.Height / c.TilesHigh

	rowBytes := tileGeom.RowBytes()
	var pixels []byte
	switch c.Encoding {
	case "raw", "":
		pixels, err = codec.DecodeRaw(payload, rowBytes, tileGeom.Height)
	case "deflate", "zip":
		pixels, err = codec.DecodeDeflate(payload)
	case "packbits", "pkb":
		pixels, err = codec.DecodePackBits(payload)
	case "lzw":
		pixels, err = codec.DecodeLZW(payload)
	case "jpeg", "jpg":
		var channels int
		pixels, channels, err = codec.DecodeJPEG(payload)
		if err == nil && channels != tileGeom.Channels {
			err = errs.Wrap(errs.GeometryMismatch, "container.Decode", "jpeg decoded %d channels, geometry wants %d", channels, tileGeom.Channels)
		}
	case "png":
		pixels, err = codec.DecodePNGPayload(payload, tileGeom.Width, tileGeom.Height, tileGeom.BytesPerPixel())
	default:
		return nil, errs.Wrap(errs.Corrupt, "container.Decode", "unknown encoding %q", c.Encoding)
	}
	if err != nil {
		return nil, err
	}

	return raster.NewRawBuffer(tileGeom, pixels)
}

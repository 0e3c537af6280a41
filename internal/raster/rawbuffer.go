package raster

import "github.com/pspoerri/rastertiles/internal/errs"

// RawBuffer is an in-memory RasterNode over a fully materialized pixel
// buffer, used for decoded container tiles, decoded file images, full
// masks, and synthetic test fixtures.
type RawBuffer struct {
	geom Geometry
	rows [][]byte
	mask Node
}

// NewRawBuffer wraps data (row-major, RowBytes()*Height long) as a Node.
// data is sliced into per-row views, not copied.
func NewRawBuffer(geom Geometry, data []byte) (*RawBuffer, error) {
	rowBytes := geom.RowBytes()
	if len(data) < rowBytes*geom.Height {
		return nil, errs.Wrap(errs.Corrupt, "raster.NewRawBuffer", "buffer too short: have %d, need %d", len(data), rowBytes*geom.Height)
	}
	rows := make([][]byte, geom.Height)
	for y := 0; y < geom.Height; y++ {
		rows[y] = data[y*rowBytes : (y+1)*rowBytes]
	}
	return &RawBuffer{geom: geom, rows: rows}, nil
}

// Fill builds a RawBuffer where every pixel equals pixel (len(pixel)
// must equal geom.BytesPerPixel(), in the geometry's native sample
// encoding).
func Fill(geom Geometry, pixel []byte) (*RawBuffer, error) {
	bpp := geom.BytesPerPixel()
	if len(pixel) != bpp {
		return nil, errs.Wrap(errs.GeometryMismatch, "raster.Fill", "pixel is %d bytes, geometry wants %d", len(pixel), bpp)
	}
	data := make([]byte, geom.RowBytes()*geom.Height)
	row := make([]byte, geom.RowBytes())
	for i := 0; i < geom.Width; i++ {
		copy(row[i*bpp:(i+1)*bpp], pixel)
	}
	for y := 0; y < geom.Height; y++ {
		copy(data[y*geom.RowBytes():(y+1)*geom.RowBytes()], row)
	}
	return NewRawBuffer(geom, data)
}

func (b *RawBuffer) Geometry() Geometry { return b.geom }

func (b *RawBuffer) ReadRow(y int, buf []byte) (int, error) {
	if err := CheckRow(b.geom, y, buf); err != nil {
		return 0, err
	}
	n := copy(buf, b.rows[y])
	return n, nil
}

func (b *RawBuffer) Mask() Node { return b.mask }

// SetMask attaches a validity mask, validated by the caller.
func (b *RawBuffer) SetMask(m Node) { b.mask = m }

package raster

import "github.com/pspoerri/rastertiles/internal/errs"

// Node is the pull-based pixel producer contract every raster variant
// implements: file-backed, merged, mask, warped, or a raw in-memory
// buffer. read_row may trigger upstream reads, decompression, or
// composition; implementations may assume monotonically non-decreasing
// row indices for performance but must return correct data regardless
// of call order.
type Node interface {
	// Geometry is pure and stable for the lifetime of the node.
	Geometry() Geometry

	// ReadRow writes one row of samples into buf, which must be at
	// least Geometry().RowBytes() long, and returns the number of
	// bytes written. y must be in [0, Height).
	ReadRow(y int, buf []byte) (int, error)

	// Mask returns the attached validity mask, or nil if none. A
	// mask's own Mask() is never consulted.
	Mask() Node
}

// CheckRow validates the common read_row preconditions: row index range
// and buffer capacity. Decoders and composite nodes call this first.
func CheckRow(g Geometry, y int, buf []byte) error {
	if y < 0 || y >= g.Height {
		return errs.New(errs.OutOfRange, "raster.ReadRow", nil)
	}
	if len(buf) < g.RowBytes() {
		return errs.Wrap(errs.OutOfRange, "raster.ReadRow", "buffer too small: have %d, need %d", len(buf), g.RowBytes())
	}
	return nil
}

package merge

import "github.com/pspoerri/rastertiles/internal/raster"

// maskNode is the companion MergeMask for a merge Node: 0 at any pixel
// where no input was present, 255 otherwise. It recomputes presence
// independently of the parent's own ReadRow so the two can be pulled
// in any order or not at all.
type maskNode struct {
	parent *Node
}

func (m *maskNode) Geometry() raster.Geometry {
	g := m.parent.geom
	return raster.MaskGeometry(g.Width, g.Height)
}

func (m *maskNode) Mask() raster.Node { return nil }

func (m *maskNode) ReadRow(y int, buf []byte) (int, error) {
	g := m.Geometry()
	if err := raster.CheckRow(g, y, buf); err != nil {
		return 0, err
	}

	n := m.parent

	inRows, inMaskRows, err := n.readInputRows(y)
	if err != nil {
		return 0, err
	}
	defer n.releaseInputRows(inRows, inMaskRows)

	for x := 0; x < g.Width; x++ {
		present := false
		for i, in := range n.inputs {
			ig := in.Geometry()
			pixel := readPixel(inRows[i], x, ig.Channels, ig.BytesPerSample(), ig.SampleKind)
			if isPresent(pixel, inMaskRows[i], x, n.cfg.Transparent, in.Mask() != nil) {
				present = true
				break
			}
		}
		if present {
			buf[x] = 255
		} else {
			buf[x] = 0
		}
	}

	return g.RowBytes(), nil
}

// Package merge implements the N-image compositing engine: an ordered
// stack of same-geometry RasterNode inputs combined by one of three
// operators (ALPHATOP, MULTIPLY, TOP), plus the companion validity
// mask every merge produces alongside its pixel output.
package merge

import (
	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
)

// Operator selects how stacked, present input pixels combine.
type Operator int

const (
	TOP Operator = iota
	ALPHATOP
	MULTIPLY
)

func (o Operator) String() string {
	switch o {
	case TOP:
		return "TOP"
	case ALPHATOP:
		return "ALPHATOP"
	case MULTIPLY:
		return "MULTIPLY"
	default:
		return "unknown"
	}
}

// ParseOperator parses the CLI's -m flag value.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "TOP":
		return TOP, nil
	case "ALPHATOP":
		return ALPHATOP, nil
	case "MULTIPLY":
		return MULTIPLY, nil
	default:
		return 0, errs.Wrap(errs.Config, "merge.ParseOperator", "unknown operator %q (want ALPHATOP, MULTIPLY, or TOP)", s)
	}
}

// Config describes one merge: the operator, the output shape, and the
// background/transparent policies of spec section 4.6.
type Config struct {
	Operator       Operator
	OutputChannels int
	Background     []float64 // length == OutputChannels
	Transparent    *[3]byte  // legal only with ALPHATOP on 8-bit unsigned inputs
}

func (c Config) validate(inputs []raster.Node) error {
	switch c.OutputChannels {
	case 1, 2, 3, 4:
	default:
		return errs.Wrap(errs.Config, "merge.Config", "output_channels must be in {1,2,3,4}, got %d", c.OutputChannels)
	}
	if len(c.Background) != c.OutputChannels {
		return errs.Wrap(errs.Config, "merge.Config", "background has %d values, want %d", len(c.Background), c.OutputChannels)
	}
	if len(inputs) == 0 {
		return errs.Wrap(errs.Config, "merge.Config", "no inputs")
	}
	first := inputs[0].Geometry()
	for i, in := range inputs {
		g := in.Geometry()
		if !g.SameShape(first) {
			return errs.Wrap(errs.GeometryMismatch, "merge.Config", "input %d geometry %+v disagrees with input 0 %+v", i, g, first)
		}
	}
	if c.Transparent != nil {
		if c.Operator != ALPHATOP {
			return errs.Wrap(errs.Config, "merge.Config", "transparent color is only legal with ALPHATOP")
		}
		if first.SampleKind != raster.UnsignedInt || first.SampleBits != 8 {
			return errs.Wrap(errs.Config, "merge.Config", "transparent color requires 8-bit unsigned inputs")
		}
	}
	if c.Operator == ALPHATOP && first.SampleKind == raster.Float {
		return errs.Wrap(errs.UnsupportedCombination, "merge.Config", "ALPHATOP is undefined for floating-point inputs")
	}
	return nil
}

// Node is the RasterNode produced by compositing inputs under cfg. Its
// Mask() returns the companion MergeMask per spec 4.7.
type Node struct {
	cfg     Config
	inputs  []raster.Node
	inGeom  raster.Geometry
	geom    raster.Geometry
	mask    *maskNode
	rowPool *rowPool
}

// New validates inputs against cfg and builds the merge node plus its
// companion mask.
func New(inputs []raster.Node, cfg Config) (*Node, error) {
	if err := cfg.validate(inputs); err != nil {
		return nil, err
	}
	inGeom := inputs[0].Geometry()

	photometric := raster.Gray
	if cfg.OutputChannels >= 3 {
		photometric = raster.RGB
	}
	geom := raster.Geometry{
		Width: inGeom.Width, Height: inGeom.Height, Channels: cfg.OutputChannels,
		SampleBits: inGeom.SampleBits, SampleKind: inGeom.SampleKind, Photometric: photometric,
	}

	n := &Node{cfg: cfg, inputs: inputs, inGeom: inGeom, geom: geom, rowPool: newRowPool()}
	n.mask = &maskNode{parent: n}
	return n, nil
}

func (n *Node) Geometry() raster.Geometry { return n.geom }

// Mask returns the derived MergeMask: 0 where no input was present, 255
// otherwise.
func (n *Node) Mask() raster.Node { return n.mask }

// workingChannels is the shape every input pixel and the background
// are promoted into before compositing: the wider of input and output
// channel counts.
func (n *Node) workingChannels() int {
	if n.inGeom.Channels > n.cfg.OutputChannels {
		return n.inGeom.Channels
	}
	return n.cfg.OutputChannels
}

func (n *Node) ReadRow(y int, buf []byte) (int, error) {
	if err := raster.CheckRow(n.geom, y, buf); err != nil {
		return 0, err
	}

	working := n.workingChannels()
	sampleMax := n.inGeom.SampleMax()

	inRows, inMaskRows, err := n.readInputRows(y)
	if err != nil {
		return 0, err
	}
	defer n.releaseInputRows(inRows, inMaskRows)

	acc := make([]float64, working)
	bg := raster.PromoteChannels(n.cfg.Background, working, sampleMax)

	for x := 0; x < n.geom.Width; x++ {
		copy(acc, bg)

		for i, in := range n.inputs {
			ig := in.Geometry()
			pixel := readPixel(inRows[i], x, ig.Channels, ig.BytesPerSample(), ig.SampleKind)
			present := isPresent(pixel, inMaskRows[i], x, n.cfg.Transparent, in.Mask() != nil)
			if !present {
				continue
			}
			promoted := raster.PromoteChannels(pixel, working, sampleMax)

			switch n.cfg.Operator {
			case TOP:
				copy(acc, promoted)
			case ALPHATOP:
				alphaBlend(acc, promoted, working, sampleMax)
			case MULTIPLY:
				multiplyInto(acc, promoted, sampleMax)
			}
		}

		out := raster.DemoteChannels(acc, n.cfg.OutputChannels, sampleMax)
		writePixel(buf, x, out, n.geom.BytesPerSample(), n.geom.SampleKind)
	}

	return n.geom.RowBytes(), nil
}

// readInputRows pulls one row from every input (and its mask, if any)
// for the merge row y, sizing each buffer from that input's own
// geometry: spec.md 4.6 never requires inputs to share a channel count,
// only width/height/sample_bits/sample_kind.
func (n *Node) readInputRows(y int) (rows [][]byte, maskRows [][]byte, err error) {
	rows = make([][]byte, len(n.inputs))
	maskRows = make([][]byte, len(n.inputs))

	for i, in := range n.inputs {
		ig := in.Geometry()
		rowBuf := n.rowPool.get(ig.RowBytes())
		if _, err := in.ReadRow(y, rowBuf); err != nil {
			return nil, nil, errs.Wrap(errs.Io, "merge.ReadRow", "input %d row %d: %v", i, y, err)
		}
		rows[i] = rowBuf

		if m := in.Mask(); m != nil {
			mg := m.Geometry()
			maskBuf := n.rowPool.get(mg.RowBytes())
			if _, err := m.ReadRow(y, maskBuf); err != nil {
				return nil, nil, errs.Wrap(errs.Io, "merge.ReadRow", "input %d mask row %d: %v", i, y, err)
			}
			maskRows[i] = maskBuf
		}
	}
	return rows, maskRows, nil
}

func (n *Node) releaseInputRows(rows, maskRows [][]byte) {
	for _, r := range rows {
		n.rowPool.put(r)
	}
	for _, r := range maskRows {
		if r != nil {
			n.rowPool.put(r)
		}
	}
}

// alphaBlend implements the ALPHATOP bottom-to-top blend. channels 2
// and 4 carry an explicit trailing alpha channel that both supplies
// and receives the blend weight; channels 1 and 3 carry none, so every
// present pixel is treated as fully opaque (the blend degenerates to a
// plain overwrite, matching TOP, while presence/absence is still
// honored upstream).
func alphaBlend(acc []float64, in []float64, channels int, sampleMax float64) {
	if channels != 2 && channels != 4 {
		copy(acc, in)
		return
	}
	alphaIdx := channels - 1
	a := in[alphaIdx] / sampleMax
	accA := acc[alphaIdx] / sampleMax
	for c := 0; c < alphaIdx; c++ {
		acc[c] = acc[c]*(1-a) + in[c]*a
	}
	outA := 1 - (1-accA)*(1-a)
	acc[alphaIdx] = outA * sampleMax
}

func multiplyInto(acc []float64, in []float64, sampleMax float64) {
	for c := range acc {
		acc[c] = acc[c] * in[c] / sampleMax
	}
}

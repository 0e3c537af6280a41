// Package raster defines the pixel-producing node contract shared by
// file-backed images, merged composites, masks, and decoded container
// tiles: an immutable geometry descriptor plus a pull-based row reader.
package raster

import "fmt"

// SampleKind identifies how a sample's bits are interpreted.
type SampleKind int

const (
	UnsignedInt SampleKind = iota
	SignedInt
	Float
)

func (k SampleKind) String() string {
	switch k {
	case UnsignedInt:
		return "uint"
	case SignedInt:
		return "int"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Photometric identifies the interpretation of channel values.
type Photometric int

const (
	Gray Photometric = iota
	RGB
	Mask
	PaletteIndexed
)

func (p Photometric) String() string {
	switch p {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case Mask:
		return "mask"
	case PaletteIndexed:
		return "palette"
	default:
		return "unknown"
	}
}

// BBox is a geographic bounding box in the raster's native CRS.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Geometry is the immutable descriptor of any raster node.
type Geometry struct {
	Width, Height int
	Channels      int
	SampleBits    int // 8 or 32
	SampleKind    SampleKind
	Photometric   Photometric

	// BBox and resolution are used only by the pyramid read path; the
	// merge engine leaves them at the zero value.
	HasBBox     bool
	BBox        BBox
	ResolutionX float64
	ResolutionY float64
}

// BytesPerSample returns SampleBits/8.
func (g Geometry) BytesPerSample() int {
	return g.SampleBits / 8
}

// BytesPerPixel returns Channels * BytesPerSample().
func (g Geometry) BytesPerPixel() int {
	return g.Channels * g.BytesPerSample()
}

// RowBytes returns the exact size of one row buffer for this geometry.
func (g Geometry) RowBytes() int {
	return g.Width * g.BytesPerPixel()
}

// Validate checks the structural invariants every geometry must satisfy.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("raster: non-positive dimensions %dx%d", g.Width, g.Height)
	}
	switch g.Channels {
	case 1, 2, 3, 4:
	default:
		return fmt.Errorf("raster: invalid channel count %d", g.Channels)
	}
	switch {
	case g.SampleBits == 8 && g.SampleKind == UnsignedInt:
	case g.SampleBits == 32 && g.SampleKind == Float:
	default:
		// Codecs may read other combinations off disk; this validation
		// only gates the merge engine's legal sample formats.
		return fmt.Errorf("raster: unsupported sample format bits=%d kind=%s for the merge engine", g.SampleBits, g.SampleKind)
	}
	return nil
}

// SameShape reports whether two geometries agree on width, height,
// sample bits and sample kind (the precondition MergeNode enforces on
// its inputs). Channel count and photometric may differ.
func (g Geometry) SameShape(other Geometry) bool {
	return g.Width == other.Width &&
		g.Height == other.Height &&
		g.SampleBits == other.SampleBits &&
		g.SampleKind == other.SampleKind
}

// SampleMax returns the maximum representable sample value used to
// normalize promotion defaults and the MULTIPLY operator: 255 for 8-bit
// unsigned, 1.0 for floating point.
func (g Geometry) SampleMax() float64 {
	if g.SampleKind == Float {
		return 1.0
	}
	return 255.0
}

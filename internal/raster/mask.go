package raster

// MaskGeometry builds the fixed geometry every mask node must expose:
// single channel, 8-bit unsigned, photometric=mask.
func MaskGeometry(width, height int) Geometry {
	return Geometry{
		Width:       width,
		Height:      height,
		Channels:    1,
		SampleBits:  8,
		SampleKind:  UnsignedInt,
		Photometric: Mask,
	}
}

// IsValidMaskGeometry reports whether g satisfies the MaskNode contract
// for an image of the given width/height.
func IsValidMaskGeometry(g Geometry, width, height int) bool {
	return g.Width == width && g.Height == height &&
		g.Channels == 1 && g.SampleBits == 8 &&
		g.SampleKind == UnsignedInt && g.Photometric == Mask
}

// FullMask returns a mask node that reads 255 everywhere, the implicit
// semantics of an absent mask made explicit for code paths that want a
// concrete Node to iterate.
func FullMask(width, height int) (*RawBuffer, error) {
	g := MaskGeometry(width, height)
	return Fill(g, []byte{255})
}

package raster

// PromoteChannels extends or truncates a per-pixel sample vector from
// len(in) channels to outChannels, following the canonical ratios the
// merge engine is contractually bound to:
//
//	1 -> 2 : (g)       -> (g, alpha)
//	1 -> 3 : (g)       -> (g, g, g)
//	1 -> 4 : (g)       -> (g, g, g, alpha)
//	3 -> 4 : (r,g,b)   -> (r, g, b, alpha)
//	4 -> 3 : (r,g,b,a) -> (r, g, b)
//	3 -> 1 : (r,g,b)   -> luminance
//	4 -> 1 : (r,g,b,a) -> luminance
//	2 -> 1 : (g,a)     -> (g)
//	2 -> 4 : (g,a)     -> (g, g, g, a)
//
// Combinations with no direct rule: 2->3 and 3->2 route through the
// 1-channel intermediate, which is the only shape every arity reduces
// to or expands from; 4->2 keeps the input's own alpha beside the
// luminance, (r,g,b,a) -> (luminance, a). sampleMax supplies the alpha-opaque default in
// the input's sample space (255 for 8-bit unsigned, 1.0 for float).
func PromoteChannels(in []float64, outChannels int, sampleMax float64) []float64 {
	if len(in) == outChannels {
		out := make([]float64, outChannels)
		copy(out, in)
		return out
	}

	switch len(in) {
	case 1:
		g := in[0]
		switch outChannels {
		case 2:
			return []float64{g, sampleMax}
		case 3:
			return []float64{g, g, g}
		case 4:
			return []float64{g, g, g, sampleMax}
		}
	case 2:
		g, a := in[0], in[1]
		switch outChannels {
		case 1:
			return []float64{g}
		case 3:
			return PromoteChannels([]float64{g}, 3, sampleMax)
		case 4:
			return []float64{g, g, g, a}
		}
	case 3:
		r, g, b := in[0], in[1], in[2]
		switch outChannels {
		case 1:
			return []float64{luminance(r, g, b)}
		case 2:
			return PromoteChannels([]float64{luminance(r, g, b)}, 2, sampleMax)
		case 4:
			return []float64{r, g, b, sampleMax}
		}
	case 4:
		r, g, b := in[0], in[1], in[2]
		switch outChannels {
		case 1:
			return []float64{luminance(r, g, b)}
		case 2:
			return []float64{luminance(r, g, b), in[3]}
		case 3:
			return []float64{r, g, b}
		}
	}

	// Degenerate/unspecified arity: pad with zero or truncate.
	out := make([]float64, outChannels)
	copy(out, in)
	return out
}

// luminance computes the fixed wire-contract luminance coefficients.
// Changing these is a breaking change to served pixels. They are
// applied as integer ten-thousandths so that they sum to exactly 1 and
// equal r, g, b map to that same value without float rounding error.
func luminance(r, g, b float64) float64 {
	return (2125*r + 7154*g + 721*b) / 10000
}

// DemoteChannels truncates a working-channel sample vector down to
// outChannels using the inverse of PromoteChannels. sampleMax must be
// the same full-opacity value passed to the promotion that produced in,
// so any synthesized alpha channel (e.g. the 3->2 luminance+alpha path)
// defaults to fully opaque rather than fully transparent.
func DemoteChannels(in []float64, outChannels int, sampleMax float64) []float64 {
	if len(in) == outChannels {
		out := make([]float64, outChannels)
		copy(out, in)
		return out
	}
	return PromoteChannels(in, outChannels, sampleMax)
}

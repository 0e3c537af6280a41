package merge

import (
	"math"

	"github.com/pspoerri/rastertiles/internal/raster"
)

// readPixel extracts the channels channel values at column x from a
// packed row buffer, as float64 in the geometry's native sample units
// (not normalized).
func readPixel(row []byte, x, channels, bytesPerSample int, kind raster.SampleKind) []float64 {
	out := make([]float64, channels)
	base := x * channels * bytesPerSample
	for c := 0; c < channels; c++ {
		off := base + c*bytesPerSample
		switch {
		case bytesPerSample == 1:
			out[c] = float64(row[off])
		case bytesPerSample == 4 && kind == raster.Float:
			bits := uint32(row[off]) | uint32(row[off+1])<<8 | uint32(row[off+2])<<16 | uint32(row[off+3])<<24
			out[c] = float64(math.Float32frombits(bits))
		default:
			out[c] = float64(row[off])
		}
	}
	return out
}

// writePixel packs channel values at column x into a packed row
// buffer, rounding and clamping as needed for the geometry's sample
// format.
func writePixel(row []byte, x int, values []float64, bytesPerSample int, kind raster.SampleKind) {
	channels := len(values)
	base := x * channels * bytesPerSample
	for c, v := range values {
		off := base + c*bytesPerSample
		switch {
		case bytesPerSample == 1:
			row[off] = clampByte(v)
		case bytesPerSample == 4 && kind == raster.Float:
			bits := math.Float32bits(float32(v))
			row[off] = byte(bits)
			row[off+1] = byte(bits >> 8)
			row[off+2] = byte(bits >> 16)
			row[off+3] = byte(bits >> 24)
		default:
			row[off] = clampByte(v)
		}
	}
}

func clampByte(v float64) byte {
	r := math.Floor(v + 0.5)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

// isPresent implements the per-pixel presence rule: explicit mask wins
// when attached; otherwise a pixel is present unless it exactly
// matches the transparent color on its first three channels (8-bit
// unsigned inputs only, enforced by Config.validate before this runs).
func isPresent(pixel []float64, maskRow []byte, x int, transparent *[3]byte, hasMask bool) bool {
	if hasMask {
		if x >= len(maskRow) {
			return false
		}
		return maskRow[x] != 0
	}
	if transparent == nil || len(pixel) < 3 {
		return true
	}
	return !(byte(pixel[0]) == transparent[0] && byte(pixel[1]) == transparent[1] && byte(pixel[2]) == transparent[2])
}

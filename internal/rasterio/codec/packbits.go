package codec

// PackBits is the TIFF/Mac byte-oriented RLE scheme. No library in the
// reference corpus exposes a standalone PackBits codec (Go's stdlib
// doesn't implement it at all, and the pack's COG/PMTiles tooling only
// ever meets DEFLATE or LZW-compressed tiles); this is a direct,
// self-contained implementation of the documented control-byte rules
// and is the one codec here with no third-party grounding — see
// DESIGN.md.

import "github.com/pspoerri/rastertiles/internal/errs"

// DecodePackBits expands a PackBits-compressed payload.
func DecodePackBits(payload []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(payload) {
		n := int8(payload[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(payload) {
				return nil, errShortPayload("packbits", i+count, len(payload))
			}
			out = append(out, payload[i:i+count]...)
			i += count
		case n != -128:
			count := int(-n) + 1
			if i >= len(payload) {
				return nil, errShortPayload("packbits", i+1, len(payload))
			}
			b := payload[i]
			i++
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		default:
			// -128 is a no-op per the TIFF spec.
		}
	}
	return out, nil
}

// EncodePackBits compresses data with a straightforward greedy scan:
// runs of 3+ identical bytes become a repeat packet, everything else
// accumulates into literal packets up to the 128-byte limit.
func EncodePackBits(data []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && data[i+runLen] == data[i] && runLen < 128 {
			runLen++
		}
		if runLen >= 3 {
			out = append(out, byte(int8(-(runLen - 1))), data[i])
			i += runLen
			continue
		}

		litStart := i
		litLen := 0
		for i < len(data) && litLen < 128 {
			// Stop the literal run just before a run of 3+ repeats.
			if i+2 < len(data) && data[i] == data[i+1] && data[i+1] == data[i+2] {
				break
			}
			i++
			litLen++
		}
		if litLen == 0 {
			// Defensive: avoid an infinite loop if the repeat-run scan
			// above didn't consume anything (shouldn't happen).
			return nil, errs.Wrap(errs.Corrupt, "codec.packbits", "encoder made no progress at byte %d", i)
		}
		out = append(out, byte(litLen-1))
		out = append(out, data[litStart:litStart+litLen]...)
	}
	return out, nil
}

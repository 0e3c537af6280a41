package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pspoerri/rastertiles/internal/errs"
)

// The PNG codec here operates on a tile's PNG *payload*: the IDAT+IEND
// bytes alone, without the signature/IHDR/PLTE that a standalone file
// needs. Those are supplied separately by the header synthesizer so a
// served tile can be the header plus this payload concatenated.
//
// No PNG library in the reference corpus exposes scanline-level
// encode/decode independent of a full file (Go's image/png always
// wants to own the signature and IHDR); this is a small, direct
// implementation of PNG's filtering and chunk framing. See DESIGN.md.

// EncodePNGPayload filters pixel rows (filter type 0, None) and zlib
// compresses them into an IDAT chunk followed by IEND.
func EncodePNGPayload(pixels []byte, width, height, bytesPerPixel int) ([]byte, error) {
	rowBytes := width * bytesPerPixel
	if len(pixels) < rowBytes*height {
		return nil, errShortPayload("png", rowBytes*height, len(pixels))
	}

	raw := make([]byte, 0, (rowBytes+1)*height)
	for y := 0; y < height; y++ {
		raw = append(raw, 0) // filter type None
		raw = append(raw, pixels[y*rowBytes:(y+1)*rowBytes]...)
	}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	writeChunk(&out, "IDAT", compressed.Bytes())
	writeChunk(&out, "IEND", nil)
	return out.Bytes(), nil
}

// DecodePNGPayload reconstructs raw packed pixels from a tile's
// IDAT+IEND payload, undoing whichever of the five PNG filter types
// each scanline used.
func DecodePNGPayload(payload []byte, width, height, bytesPerPixel int) ([]byte, error) {
	var idat bytes.Buffer
	pos := 0
	for pos+8 <= len(payload) {
		length := binary.BigEndian.Uint32(payload[pos : pos+4])
		typ := string(payload[pos+4 : pos+8])
		dataStart := pos + 8
		dataEnd := dataStart + int(length)
		if dataEnd+4 > len(payload) {
			return nil, errs.Wrap(errs.Corrupt, "codec.png", "truncated %s chunk", typ)
		}
		switch typ {
		case "IDAT":
			idat.Write(payload[dataStart:dataEnd])
		case "IEND":
			pos = len(payload)
			continue
		}
		pos = dataEnd + 4 // skip CRC
	}

	r, err := zlib.NewReader(bytes.NewReader(idat.Bytes()))
	if err != nil {
		return nil, errs.Wrap(errs.Corrupt, "codec.png", "zlib: %v", err)
	}
	defer r.Close()

	rowBytes := width * bytesPerPixel
	raw := make([]byte, (rowBytes+1)*height)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errs.Wrap(errs.Corrupt, "codec.png", "short scanline data: %v", err)
	}

	out := make([]byte, rowBytes*height)
	var prevRow []byte
	for y := 0; y < height; y++ {
		filterType := raw[y*(rowBytes+1)]
		cur := raw[y*(rowBytes+1)+1 : (y+1)*(rowBytes+1)]
		dst := out[y*rowBytes : (y+1)*rowBytes]
		unfilter(filterType, cur, prevRow, dst, bytesPerPixel)
		prevRow = dst
	}
	return out, nil
}

func unfilter(filterType byte, cur, prev, dst []byte, bpp int) {
	for i := range cur {
		var a, b, c byte
		if i >= bpp {
			a = dst[i-bpp]
		}
		if prev != nil {
			b = prev[i]
		}
		if prev != nil && i >= bpp {
			c = prev[i-bpp]
		}
		switch filterType {
		case 0:
			dst[i] = cur[i]
		case 1:
			dst[i] = cur[i] + a
		case 2:
			dst[i] = cur[i] + b
		case 3:
			dst[i] = cur[i] + byte((int(a)+int(b))/2)
		case 4:
			dst[i] = cur[i] + paeth(a, b, c)
		default:
			dst[i] = cur[i]
		}
	}
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func writeChunk(w *bytes.Buffer, typ string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.Write(lenBuf[:])
	w.WriteString(typ)
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc.Sum32())
	w.Write(crcBuf[:])
}

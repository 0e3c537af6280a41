// Package tiff reads the strip-organized, single-IFD TIFF files the
// merge tool accepts as FileImage inputs: classic (non-BigTIFF) TIFF,
// 8-bit unsigned or 32-bit float samples, with raw, DEFLATE, PACKBITS
// or LZW strip compression and optional horizontal differencing.
//
// This is adapted from the IFD-tag parsing a COG reader needs (COGs
// are themselves TIFFs), generalized from tile-organized to
// strip-organized layout since the merge tool's inputs are ordinary
// single-strip or few-strip images rather than internally tiled COGs.
package tiff

import (
	"encoding/binary"

	"github.com/pspoerri/rastertiles/internal/errs"
)

const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPredictor                 = 317
	tagSampleFormat              = 339
)

const (
	dtByte     = 1
	dtAscii    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
	dtSByte    = 6
	dtUndef    = 7
	dtSShort   = 8
	dtSLong    = 9
	dtSRatio   = 10
	dtFloat    = 11
	dtDouble   = 12
)

var dataTypeSize = map[uint16]int{
	dtByte: 1, dtAscii: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSByte: 1, dtUndef: 1, dtSShort: 2, dtSLong: 4, dtSRatio: 8,
	dtFloat: 4, dtDouble: 8,
}

type ifd struct {
	byteOrder binary.ByteOrder
	data      []byte

	width, height       int
	bitsPerSample       []uint16
	samplesPerPixel     int
	compression         uint16
	photometric         uint16
	sampleFormat        uint16
	predictor           uint16
	rowsPerStrip        int
	stripOffsets        []uint32
	stripByteCounts     []uint32
}

type tiffEntry struct {
	tag, datatype uint16
	count         uint32
	valueOrOffset [4]byte
}

func parseIFD(data []byte) (*ifd, error) {
	if len(data) < 8 {
		return nil, errs.Wrap(errs.Corrupt, "tiff.parseIFD", "file too short")
	}

	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, errs.Wrap(errs.Corrupt, "tiff.parseIFD", "bad byte order mark %q", data[0:2])
	}
	magic := bo.Uint16(data[2:4])
	if magic != 42 {
		return nil, errs.Wrap(errs.Corrupt, "tiff.parseIFD", "unsupported TIFF magic %d (BigTIFF not supported)", magic)
	}

	ifdOffset := bo.Uint32(data[4:8])
	return parseOneIFD(data, bo, ifdOffset)
}

func parseOneIFD(data []byte, bo binary.ByteOrder, offset uint32) (*ifd, error) {
	if int(offset)+2 > len(data) {
		return nil, errs.Wrap(errs.Corrupt, "tiff.parseOneIFD", "IFD offset out of range")
	}
	count := bo.Uint16(data[offset : offset+2])
	pos := int(offset) + 2

	result := &ifd{byteOrder: bo, data: data, samplesPerPixel: 1, sampleFormat: 1, compression: 1, predictor: 1, rowsPerStrip: -1}

	for i := 0; i < int(count); i++ {
		if pos+12 > len(data) {
			return nil, errs.Wrap(errs.Corrupt, "tiff.parseOneIFD", "truncated IFD entry")
		}
		e := tiffEntry{
			tag:      bo.Uint16(data[pos : pos+2]),
			datatype: bo.Uint16(data[pos+2 : pos+4]),
			count:    bo.Uint32(data[pos+4 : pos+8]),
		}
		copy(e.valueOrOffset[:], data[pos+8:pos+12])
		pos += 12

		if err := applyEntry(result, e); err != nil {
			return nil, err
		}
	}
	if result.rowsPerStrip < 0 {
		result.rowsPerStrip = result.height
	}
	return result, nil
}

func applyEntry(r *ifd, e tiffEntry) error {
	switch e.tag {
	case tagImageWidth:
		r.width = int(scalarValue(r, e))
	case tagImageLength:
		r.height = int(scalarValue(r, e))
	case tagBitsPerSample:
		r.bitsPerSample = shortSlice(r, e)
	case tagCompression:
		r.compression = uint16(scalarValue(r, e))
	case tagPhotometricInterpretation:
		r.photometric = uint16(scalarValue(r, e))
	case tagSamplesPerPixel:
		r.samplesPerPixel = int(scalarValue(r, e))
	case tagRowsPerStrip:
		r.rowsPerStrip = int(scalarValue(r, e))
	case tagStripOffsets:
		r.stripOffsets = longSlice(r, e)
	case tagStripByteCounts:
		r.stripByteCounts = longSlice(r, e)
	case tagPredictor:
		r.predictor = uint16(scalarValue(r, e))
	case tagSampleFormat:
		r.sampleFormat = uint16(scalarValue(r, e))
	}
	return nil
}

func entrySize(e tiffEntry) int {
	sz, ok := dataTypeSize[e.datatype]
	if !ok {
		sz = 1
	}
	return sz * int(e.count)
}

func resolveBytes(r *ifd, e tiffEntry) []byte {
	size := entrySize(e)
	if size <= 4 {
		return e.valueOrOffset[:size]
	}
	offset := r.byteOrder.Uint32(e.valueOrOffset[:4])
	if int(offset)+size > len(r.data) {
		return nil
	}
	return r.data[offset : int(offset)+size]
}

func scalarValue(r *ifd, e tiffEntry) uint32 {
	b := resolveBytes(r, e)
	if len(b) == 0 {
		return 0
	}
	switch e.datatype {
	case dtShort, dtSShort:
		return uint32(r.byteOrder.Uint16(b))
	case dtLong, dtSLong:
		return r.byteOrder.Uint32(b)
	case dtByte, dtSByte, dtUndef:
		return uint32(b[0])
	default:
		return r.byteOrder.Uint32(b)
	}
}

func shortSlice(r *ifd, e tiffEntry) []uint16 {
	b := resolveBytes(r, e)
	out := make([]uint16, e.count)
	for i := range out {
		if (i+1)*2 > len(b) {
			break
		}
		out[i] = r.byteOrder.Uint16(b[i*2 : i*2+2])
	}
	return out
}

func longSlice(r *ifd, e tiffEntry) []uint32 {
	b := resolveBytes(r, e)
	out := make([]uint32, e.count)
	switch e.datatype {
	case dtShort:
		for i := range out {
			if (i+1)*2 > len(b) {
				break
			}
			out[i] = uint32(r.byteOrder.Uint16(b[i*2 : i*2+2]))
		}
	default:
		for i := range out {
			if (i+1)*4 > len(b) {
				break
			}
			out[i] = r.byteOrder.Uint32(b[i*4 : i*4+4])
		}
	}
	return out
}

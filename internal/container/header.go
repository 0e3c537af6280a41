// Package container implements the packed-tile container format: a
// fixed 2048-byte prefix, two parallel offset/bytecount tables, and the
// header synthesizer that lets a raw tile payload be served as a
// standalone TIFF or palette PNG without ever decoding pixels.
package container

import (
	"bytes"
	"encoding/binary"
	"image/color"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
)

// TIFF tag IDs used by the synthesized header.
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
	tagPlanarConfiguration       = 284
	tagSampleFormat              = 339
)

// TIFF compression identifiers, matching the container's declared
// encoding field.
const (
	CompressionNone     = 1
	CompressionLZW      = 5
	CompressionPackBits = 32773
	CompressionDeflate  = 8
	CompressionJPEG     = 7
)

const (
	typeShort = 3
	typeLong  = 4
)

type tiffEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	value    uint32 // inline value or offset, depending on size
}

// SynthesizeTIFFHeader builds a minimal single-IFD, single-strip TIFF
// header whose StripOffsets equals the header's own length and whose
// StripByteCounts equals payloadLength, so header-bytes ++
// payload-bytes is a standalone, valid TIFF file.
func SynthesizeTIFFHeader(geom raster.Geometry, payloadLength uint32, compression uint16) ([]byte, error) {
	if err := geom.Validate(); err != nil {
		return nil, errs.Wrap(errs.Corrupt, "container.SynthesizeTIFFHeader", "invalid geometry: %v", err)
	}

	sampleFormat := uint16(1) // unsigned integer
	if geom.SampleKind == raster.Float {
		sampleFormat = 3
	}

	photometric := uint16(1) // BlackIsZero
	if geom.Photometric == raster.RGB {
		photometric = 2
	}

	entries := []tiffEntry{
		{tagImageWidth, typeLong, 1, uint32(geom.Width)},
		{tagImageLength, typeLong, 1, uint32(geom.Height)},
		{tagBitsPerSample, typeShort, uint32(geom.Channels), 0}, // patched below
		{tagCompression, typeShort, 1, uint32(compression)},
		{tagPhotometricInterpretation, typeShort, 1, uint32(photometric)},
		{tagStripOffsets, typeLong, 1, 0}, // patched to header length
		{tagSamplesPerPixel, typeShort, 1, uint32(geom.Channels)},
		{tagRowsPerStrip, typeLong, 1, uint32(geom.Height)},
		{tagStripByteCounts, typeLong, 1, payloadLength},
		{tagPlanarConfiguration, typeShort, 1, 1},
		{tagSampleFormat, typeShort, 1, uint32(sampleFormat)},
	}

	const fileHeaderSize = 8
	ifdCount := len(entries)
	ifdSize := 2 + ifdCount*12 + 4
	headerBeforeExternal := fileHeaderSize + ifdSize

	// BitsPerSample needs external storage whenever it doesn't fit in
	// the inline 4-byte value slot, i.e. whenever there are more than
	// two channels (each SHORT is 2 bytes).
	bitsPerSampleExternal := geom.Channels > 2
	bitsPerSampleOffset := uint32(headerBeforeExternal)
	totalSize := headerBeforeExternal
	if bitsPerSampleExternal {
		totalSize += geom.Channels * 2
		if totalSize%2 != 0 {
			totalSize++
		}
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{'I', 'I', 42, 0})
	writeUint32(buf, fileHeaderSize)

	writeUint16(buf, uint16(ifdCount))
	for i := range entries {
		e := &entries[i]
		switch e.tag {
		case tagStripOffsets:
			e.value = uint32(totalSize)
		case tagBitsPerSample:
			if geom.Channels == 1 {
				e.value = uint32(geom.SampleBits)
			} else if !bitsPerSampleExternal {
				// Two channels pack into the 4-byte inline slot as two
				// little-endian SHORTs.
				e.value = uint32(geom.SampleBits) | uint32(geom.SampleBits)<<16
			} else {
				e.value = bitsPerSampleOffset
			}
		}
		writeUint16(buf, e.tag)
		writeUint16(buf, e.datatype)
		writeUint32(buf, e.count)
		writeUint32(buf, e.value)
	}
	writeUint32(buf, 0) // no next IFD

	if bitsPerSampleExternal {
		for i := 0; i < geom.Channels; i++ {
			writeUint16(buf, uint16(geom.SampleBits))
		}
		if buf.Len()%2 != 0 {
			buf.WriteByte(0)
		}
	}

	if buf.Len() != totalSize {
		return nil, errs.Wrap(errs.Corrupt, "container.SynthesizeTIFFHeader", "internal size mismatch: built %d, expected %d", buf.Len(), totalSize)
	}
	return buf.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// PNGPaletteChunkSize returns the total byte size (length + type +
// data + CRC) of the PLTE chunk holding n RGB entries.
func PNGPaletteChunkSize(n int) int {
	return 12 + 3*n
}

// SynthesizePNGHeader builds the PNG signature, IHDR chunk, and PLTE
// chunk for a palette-indexed tile. The header is exactly
// 33 + PNGPaletteChunkSize(len(palette)) bytes; the caller appends the
// matching encoder's IDAT+IEND bytes.
func SynthesizePNGHeader(geom raster.Geometry, palette []color.RGBA) ([]byte, error) {
	if len(palette) == 0 || len(palette) > 256 {
		return nil, errs.Wrap(errs.Corrupt, "container.SynthesizePNGHeader", "palette size %d out of range [1,256]", len(palette))
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(geom.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(geom.Height))
	ihdr[8] = 8  // bit depth
	ihdr[9] = 3  // color type: palette
	ihdr[10] = 0 // compression
	ihdr[11] = 0 // filter
	ihdr[12] = 0 // interlace
	writePNGChunk(buf, "IHDR", ihdr)

	plte := make([]byte, 3*len(palette))
	for i, c := range palette {
		plte[i*3] = c.R
		plte[i*3+1] = c.G
		plte[i*3+2] = c.B
	}
	writePNGChunk(buf, "PLTE", plte)

	want := 33 + PNGPaletteChunkSize(len(palette))
	if buf.Len() != want {
		return nil, errs.Wrap(errs.Corrupt, "container.SynthesizePNGHeader", "internal size mismatch: built %d, expected %d", buf.Len(), want)
	}
	return buf.Bytes(), nil
}

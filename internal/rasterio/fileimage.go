// Package rasterio implements FileImage: a RasterNode backed by a file
// on disk, readable through format-probing decoders and writable
// through a single chosen compression.
package rasterio

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/gen2brain/webp"

	"github.com/pspoerri/rastertiles/internal/container"
	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/raster"
	"github.com/pspoerri/rastertiles/internal/rasterio/codec"
	"github.com/pspoerri/rastertiles/internal/rasterio/tiff"
)

// FileImage is a RasterNode read from a file, created by Open. Output
// files are written by a Writer (see NewWriter).
type FileImage struct {
	geom raster.Geometry
	rows *raster.RawBuffer // decoded eagerly: merge-tool inputs are small
	mask raster.Node
	path string
}

// Open probes path's magic bytes and decodes it fully into a RasterNode.
// Mandatory formats are 8-bit unsigned TIFF and 32-bit float TIFF;
// stdlib-decodable PNG/JPEG are accepted and converted on the fly to
// packed samples.
func Open(path string) (*FileImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "rasterio.Open", "%v", err)
	}
	if len(data) < 4 {
		return nil, errs.Wrap(errs.Corrupt, "rasterio.Open", "file too short: %d bytes", len(data))
	}

	var geom raster.Geometry
	var pixels []byte

	switch {
	case data[0] == 'I' && data[1] == 'I', data[0] == 'M' && data[1] == 'M':
		geom, pixels, err = tiff.Decode(data)
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		geom, pixels, err = decodeStdlibPNG(data)
	case data[0] == 0xFF && data[1] == 0xD8:
		geom, pixels, err = decodeStdlibJPEG(data)
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		geom, pixels, err = decodeWebPImage(data)
	default:
		return nil, errs.Wrap(errs.Corrupt, "rasterio.Open", "unrecognized magic bytes in %s", path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := raster.NewRawBuffer(geom, pixels)
	if err != nil {
		return nil, err
	}
	return &FileImage{geom: geom, rows: rows, path: path}, nil
}

func (f *FileImage) Geometry() raster.Geometry { return f.geom }

func (f *FileImage) ReadRow(y int, buf []byte) (int, error) {
	return f.rows.ReadRow(y, buf)
}

func (f *FileImage) Mask() raster.Node { return f.mask }

// SetMask attaches a validity mask, rejecting any geometry mismatch
// per the MaskNode contract: same width/height, single 8-bit unsigned
// channel, photometric=mask.
func (f *FileImage) SetMask(m raster.Node) error {
	mg := m.Geometry()
	if !raster.IsValidMaskGeometry(mg, f.geom.Width, f.geom.Height) {
		return errs.Wrap(errs.MaskMismatch, "rasterio.SetMask", "mask geometry %+v incompatible with image %dx%d", mg, f.geom.Width, f.geom.Height)
	}
	f.mask = m
	return nil
}

func decodeStdlibPNG(data []byte) (raster.Geometry, []byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return raster.Geometry{}, nil, errs.Wrap(errs.Corrupt, "rasterio.decodePNG", "%v", err)
	}
	return packStdlibImage(img)
}

func decodeStdlibJPEG(data []byte) (raster.Geometry, []byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return raster.Geometry{}, nil, errs.Wrap(errs.Corrupt, "rasterio.decodeJPEG", "%v", err)
	}
	return packStdlibImage(img)
}

// decodeWebPImage handles upstream-sourced imagery delivered as WebP,
// an input format the merge tool accepts for read but never produces.
func decodeWebPImage(data []byte) (raster.Geometry, []byte, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return raster.Geometry{}, nil, errs.Wrap(errs.Corrupt, "rasterio.decodeWebPImage", "%v", err)
	}
	return packStdlibImage(img)
}

func packStdlibImage(img image.Image) (raster.Geometry, []byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		geom := raster.Geometry{Width: w, Height: h, Channels: 1, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.Gray}
		return geom, append([]byte(nil), gray.Pix...), nil
	}

	geom := raster.Geometry{Width: w, Height: h, Channels: 4, SampleBits: 8, SampleKind: raster.UnsignedInt, Photometric: raster.RGB}
	pixels := make([]byte, w*h*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pixels[i] = byte(r >> 8)
			pixels[i+1] = byte(g >> 8)
			pixels[i+2] = byte(b >> 8)
			pixels[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return geom, pixels, nil
}

// WriterSpec declares the geometry and encoding of a FileImage output.
type WriterSpec struct {
	Path        string
	BBox        raster.BBox
	HasBBox     bool
	ResolutionX float64
	ResolutionY float64
	Width       int
	Height      int
	Channels    int
	SampleKind  raster.SampleKind
	SampleBits  int
	Photometric raster.Photometric
	Compression string // "raw"/"none"/"", "deflate"/"zip", "packbits"/"pkb", "lzw", "jpeg"/"jpg"
	JPEGQuality int
}

func (s WriterSpec) geometry() raster.Geometry {
	return raster.Geometry{
		Width: s.Width, Height: s.Height, Channels: s.Channels,
		SampleBits: s.SampleBits, SampleKind: s.SampleKind, Photometric: s.Photometric,
		HasBBox: s.HasBBox, BBox: s.BBox, ResolutionX: s.ResolutionX, ResolutionY: s.ResolutionY,
	}
}

// Writer constructs the declared output container and encodes one
// source node into it.
type Writer struct {
	spec WriterSpec
	geom raster.Geometry
	mask raster.Node
}

// NewWriter validates spec and prepares a Writer; no file is created
// until Write is called.
func NewWriter(spec WriterSpec) (*Writer, error) {
	geom := spec.geometry()
	if err := geom.Validate(); err != nil {
		return nil, errs.Wrap(errs.Config, "rasterio.NewWriter", "%v", err)
	}
	return &Writer{spec: spec, geom: geom}, nil
}

// SetMask attaches a mask to be exposed alongside the written image
// (the caller decides whether/where to persist it).
func (w *Writer) SetMask(m raster.Node) error {
	mg := m.Geometry()
	if !raster.IsValidMaskGeometry(mg, w.geom.Width, w.geom.Height) {
		return errs.Wrap(errs.MaskMismatch, "rasterio.Writer.SetMask", "mask geometry %+v incompatible with output %dx%d", mg, w.geom.Width, w.geom.Height)
	}
	w.mask = m
	return nil
}

// Write pulls every row from source, encodes the whole image as a
// single strip/cell according to the writer's declared compression,
// and persists a standalone file built from the same header
// synthesizer the container read path uses in reverse: here the
// payload is the entire image rather than one packed tile.
func (w *Writer) Write(source raster.Node) error {
	sg := source.Geometry()
	if sg.Width != w.geom.Width || sg.Height != w.geom.Height ||
		sg.SampleBits != w.geom.SampleBits || sg.SampleKind != w.geom.SampleKind {
		return errs.Wrap(errs.GeometryMismatch, "rasterio.Writer.Write", "source geometry %+v disagrees with output %+v", sg, w.geom)
	}

	rowBytes := w.geom.RowBytes()
	pixels := make([]byte, rowBytes*w.geom.Height)
	row := make([]byte, rowBytes)
	for y := 0; y < w.geom.Height; y++ {
		if _, err := source.ReadRow(y, row); err != nil {
			return errs.Wrap(errs.Io, "rasterio.Writer.Write", "reading source row %d: %v", y, err)
		}
		copy(pixels[y*rowBytes:(y+1)*rowBytes], row)
	}

	payload, compressionTag, err := w.encode(pixels)
	if err != nil {
		return err
	}

	if err := w.persist(payload, compressionTag); err != nil {
		os.Remove(w.spec.Path) // best-effort cleanup of a partial output file
		return err
	}
	return nil
}

func (w *Writer) encode(pixels []byte) (payload []byte, tiffCompression uint16, err error) {
	switch w.spec.Compression {
	case "", "raw", "none":
		p, err := codec.EncodeRaw(pixels)
		return p, container.CompressionNone, err
	case "deflate", "zip":
		p, err := codec.EncodeDeflate(pixels, -1)
		return p, container.CompressionDeflate, err
	case "packbits", "pkb":
		p, err := codec.EncodePackBits(pixels)
		return p, container.CompressionPackBits, err
	case "lzw":
		p, err := codec.EncodeLZW(pixels)
		return p, container.CompressionLZW, err
	case "jpeg", "jpg":
		p, err := codec.EncodeJPEG(pixels, w.geom.Width, w.geom.Height, w.geom.Channels, w.spec.JPEGQuality)
		return p, container.CompressionJPEG, err
	default:
		return nil, 0, errs.Wrap(errs.Config, "rasterio.Writer.encode", "unsupported compression %q", w.spec.Compression)
	}
}

func (w *Writer) persist(payload []byte, tiffCompression uint16) error {
	header, err := container.SynthesizeTIFFHeader(w.geom, uint32(len(payload)), tiffCompression)
	if err != nil {
		return err
	}

	f, err := os.Create(w.spec.Path)
	if err != nil {
		return errs.Wrap(errs.Io, "rasterio.Writer.persist", "%v", err)
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return errs.Wrap(errs.Io, "rasterio.Writer.persist", "writing header: %v", err)
	}
	if _, err := f.Write(payload); err != nil {
		return errs.Wrap(errs.Io, "rasterio.Writer.persist", "writing payload: %v", err)
	}
	return nil
}

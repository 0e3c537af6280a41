package codec

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pspoerri/rastertiles/internal/errs"
)

// DecodeJPEG decodes a JPEG tile payload into packed 8-bit samples,
// gray or RGB depending on what the JPEG stream carries. JPEG is
// restricted to 8-bit unsigned samples; it has no representation for
// floating point or an alpha channel.
func DecodeJPEG(payload []byte) (pixels []byte, channels int, err error) {
	img, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, errs.Wrap(errs.Corrupt, "codec.jpeg", "decode: %v", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		return append([]byte(nil), gray.Pix...), 1, nil
	}

	out := make([]byte, w*h*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return out, 3, nil
}

// EncodeJPEG encodes packed 8-bit gray or RGB samples as JPEG at the
// given quality (1-100).
func EncodeJPEG(pixels []byte, width, height, channels, quality int) ([]byte, error) {
	var img image.Image
	switch channels {
	case 1:
		g := image.NewGray(image.Rect(0, 0, width, height))
		copy(g.Pix, pixels)
		img = g
	case 3:
		rgba := image.NewRGBA(image.Rect(0, 0, width, height))
		for i := 0; i < width*height; i++ {
			rgba.Pix[i*4] = pixels[i*3]
			rgba.Pix[i*4+1] = pixels[i*3+1]
			rgba.Pix[i*4+2] = pixels[i*3+2]
			rgba.Pix[i*4+3] = 255
		}
		img = rgba
	default:
		return nil, errs.Wrap(errs.UnsupportedCombination, "codec.jpeg", "unsupported channel count %d for JPEG", channels)
	}

	var buf bytes.Buffer
	if quality <= 0 {
		quality = 85
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

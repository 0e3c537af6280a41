// Package codec implements the pixel encodings a container tile cell
// or a FileImage strip may carry: uncompressed raw, DEFLATE, PACKBITS,
// the TIFF variant of LZW, JPEG, and a palette-aware PNG payload codec.
package codec

// DecodeRaw is the identity codec: the payload already holds exactly
// rowBytes*rows bytes of packed samples.
func DecodeRaw(payload []byte, rowBytes, rows int) ([]byte, error) {
	want := rowBytes * rows
	if len(payload) < want {
		return nil, errShortPayload("raw", want, len(payload))
	}
	return payload[:want], nil
}

// EncodeRaw is the identity codec's encode side.
func EncodeRaw(pixels []byte) ([]byte, error) {
	return pixels, nil
}

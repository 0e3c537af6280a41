package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DecodeDeflate inflates a zlib-wrapped DEFLATE payload. klauspost's
// implementation is used in place of stdlib compress/zlib for its
// faster decode path; the wire format is identical.
func DecodeDeflate(payload []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errShortPayload("deflate", 0, len(payload))
	}
	defer r.Close()
	return io.ReadAll(r)
}

// EncodeDeflate zlib-compresses data at the given level (use
// zlib.DefaultCompression when unsure).
func EncodeDeflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package iostore

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

func init() {
	RegisterCodec("Gzip", func() Codec { return gzipCodec{} })
}

// gzipCodec decompresses the "Gzip" compression method (§4.2).
type gzipCodec struct{}

func (gzipCodec) Decompress(dst, src []byte) error {
	gr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return &DecompressFailedError{Method: "Gzip", Expected: len(dst), Err: err}
	}
	defer gr.Close()

	n, err := io.ReadFull(gr, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return &DecompressFailedError{Method: "Gzip", Expected: len(dst), Got: n, Err: err}
	}
	if n != len(dst) {
		return &DecompressFailedError{Method: "Gzip", Expected: len(dst), Got: n}
	}
	return nil
}

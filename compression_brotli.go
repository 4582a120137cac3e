package iostore

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

func init() {
	RegisterCodec("Brotli", func() Codec { return brotliCodec{} })
}

// brotliCodec decompresses the required "Brotli" compression method (§4.2).
type brotliCodec struct{}

func (brotliCodec) Decompress(dst, src []byte) error {
	br := brotli.NewReader(bytes.NewReader(src))
	n, err := io.ReadFull(br, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return &DecompressFailedError{Method: "Brotli", Expected: len(dst), Got: n, Err: err}
	}
	if n != len(dst) {
		return &DecompressFailedError{Method: "Brotli", Expected: len(dst), Got: n}
	}
	return nil
}

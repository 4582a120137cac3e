package iostore

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

func init() {
	RegisterCodec("Zlib", func() Codec { return zlibCodec{} })
}

// zlibCodec decompresses the "Zlib" compression method (§4.2) using
// klauspost/compress's drop-in zlib reader.
type zlibCodec struct{}

func (zlibCodec) Decompress(dst, src []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return &DecompressFailedError{Method: "Zlib", Expected: len(dst), Err: err}
	}
	defer zr.Close()

	n, err := io.ReadFull(zr, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return &DecompressFailedError{Method: "Zlib", Expected: len(dst), Got: n, Err: err}
	}
	if n != len(dst) {
		return &DecompressFailedError{Method: "Zlib", Expected: len(dst), Got: n}
	}
	return nil
}

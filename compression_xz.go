package iostore

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	RegisterCodec("XZ", func() Codec { return xzCodec{} })
}

// xzCodec decompresses the optional "XZ" compression method. Registered
// alongside LZ4/Zstd as an extra method-name table entry (SPEC_FULL.md §3);
// no shipped IoStore container is known to use it, but the method-name
// table is open-ended and a reader that only understands four names is
// needlessly brittle against future engine revisions.
type xzCodec struct{}

func (xzCodec) Decompress(dst, src []byte) error {
	xr, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return &DecompressFailedError{Method: "XZ", Expected: len(dst), Err: err}
	}
	n, err := io.ReadFull(xr, dst)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return &DecompressFailedError{Method: "XZ", Expected: len(dst), Got: n, Err: err}
	}
	if n != len(dst) {
		return &DecompressFailedError{Method: "XZ", Expected: len(dst), Got: n}
	}
	return nil
}

package iostore

import "github.com/pierrec/lz4/v4"

func init() {
	RegisterCodec("LZ4", func() Codec { return lz4Codec{} })
}

// lz4Codec decompresses the optional "LZ4" compression method. Some
// IoStore container revisions reference LZ4-compressed blocks for
// fast-decompress platforms; the registry treats it like any other named
// method (SPEC_FULL.md §3).
type lz4Codec struct{}

func (lz4Codec) Decompress(dst, src []byte) error {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return &DecompressFailedError{Method: "LZ4", Expected: len(dst), Err: err}
	}
	if n != len(dst) {
		return &DecompressFailedError{Method: "LZ4", Expected: len(dst), Got: n}
	}
	return nil
}

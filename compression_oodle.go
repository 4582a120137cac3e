package iostore

func init() {
	RegisterCodec("Oodle", func() Codec { return oodleCodec{} })
}

// oodleCodec registers the "Oodle" compression method so the method-name
// table round-trips (method index 0 never decompresses, but indices
// referring to "Oodle" must still resolve to *something*), while always
// failing decompression itself. Oodle is a proprietary RAD Game Tools
// codec with no available pure-Go (or otherwise license-compatible)
// decoder; spec.md §4.2 anticipates exactly this case: "only those
// actually referenced by the container need to be functional; others may
// fail with UnsupportedCodec."
type oodleCodec struct{}

func (oodleCodec) Decompress(dst, src []byte) error {
	return &UnsupportedCodecError{Method: "Oodle"}
}

package iostore

import "sync"

// Codec decompresses one compression block's worth of data. dst is
// pre-sized to the expected uncompressed length; Decompress must fill
// exactly that many bytes or return an error (§4.2).
type Codec interface {
	Decompress(dst, src []byte) error
}

var (
	codecRegistryMu sync.RWMutex
	codecRegistry   = map[string]func() Codec{}
)

// RegisterCodec registers a codec factory under a compression-method name.
// Called from each codec's init(), mirroring the registry pattern used
// elsewhere in the retrieval pack for format-tagged decompressor dispatch.
func RegisterCodec(name string, factory func() Codec) {
	codecRegistryMu.Lock()
	defer codecRegistryMu.Unlock()
	codecRegistry[name] = factory
}

// getCodec returns a fresh codec instance for name, or UnsupportedCodecError
// if nothing is registered under that name.
func getCodec(name string) (Codec, error) {
	codecRegistryMu.RLock()
	factory, ok := codecRegistry[name]
	codecRegistryMu.RUnlock()
	if !ok {
		return nil, &UnsupportedCodecError{Method: name}
	}
	return factory(), nil
}

func init() {
	RegisterCodec("None", func() Codec { return noneCodec{} })
}

// noneCodec implements the sentinel "no compression" method (index 0, §3).
type noneCodec struct{}

func (noneCodec) Decompress(dst, src []byte) error {
	if len(src) < len(dst) {
		return &DecompressFailedError{Method: "None", Expected: len(dst), Got: len(src)}
	}
	copy(dst, src[:len(dst)])
	return nil
}

// decompress dispatches to the registered codec for method, wrapping any
// other backend failure as DecompressFailedError with enough context to
// reproduce (§4.8). DecompressFailedError and UnsupportedCodecError returned
// by the codec (or by the lookup) are passed through unchanged.
func decompress(method string, dst, src []byte) error {
	codec, err := getCodec(method)
	if err != nil {
		return err
	}
	if err := codec.Decompress(dst, src); err != nil {
		switch err.(type) {
		case *DecompressFailedError, *UnsupportedCodecError:
			return err
		}
		return &DecompressFailedError{Method: method, Expected: len(dst), Got: len(src), Err: err}
	}
	return nil
}

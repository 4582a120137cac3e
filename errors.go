package iostore

import "fmt"

// ErrUnknownChunk is returned by Container.Read / Container.ReadAt
// when a ChunkId is not present in the chunk index. Kept as a plain sentinel
// (rather than a struct) since it carries no extra context beyond the id the
// caller already has.
var ErrUnknownChunk = fmt.Errorf("iostore: unknown chunk")

// CorruptTocError indicates the TOC sidecar failed a structural check: bad
// magic, a header/block-entry size mismatch, or a version below the minimum
// supported.
type CorruptTocError struct {
	Path   string
	Reason string
}

func (e *CorruptTocError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("iostore: corrupt toc %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("iostore: corrupt toc: %s", e.Reason)
}

// UnsupportedVersionError indicates a TOC version above the highest one this
// package understands.
type UnsupportedVersionError struct {
	Version tocVersion
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("iostore: unsupported toc version %d", e.Version)
}

// MissingKeyError indicates the container is encrypted but the KeyResolver
// passed to Mount has no key for EncryptionKeyGuid.
type MissingKeyError struct {
	Guid Guid
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("iostore: missing decryption key for guid %s", e.Guid)
}

// UnsupportedError indicates a request the core deliberately does not
// implement, such as mounting a multi-partition container from memory.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("iostore: unsupported: %s", e.Reason)
}

// ContainerOpenFailedError wraps an OS-level error opening a sidecar or
// partition file.
type ContainerOpenFailedError struct {
	Path string
	Err  error
}

func (e *ContainerOpenFailedError) Error() string {
	return fmt.Sprintf("iostore: open %q: %v", e.Path, e.Err)
}

func (e *ContainerOpenFailedError) Unwrap() error { return e.Err }

// ShortReadError indicates a partition read returned fewer bytes than the
// block pipeline required, a block routed to a partition index that is not
// open, or a ReadAt window that extends past the chunk's logical range.
type ShortReadError struct {
	Partition int
	Offset    uint64
	Want      int
	Got       int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("iostore: short read: partition %d offset %d: wanted %d bytes, got %d",
		e.Partition, e.Offset, e.Want, e.Got)
}

// DecompressFailedError indicates a registered codec reported a decompress
// failure, or reported a size mismatch the caller should be able to see.
type DecompressFailedError struct {
	Method   string
	Expected int
	Got      int
	Err      error
}

func (e *DecompressFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iostore: decompress %q failed: %v (expected %d bytes, got %d)",
			e.Method, e.Err, e.Expected, e.Got)
	}
	return fmt.Sprintf("iostore: decompress %q failed: expected %d bytes, got %d",
		e.Method, e.Expected, e.Got)
}

func (e *DecompressFailedError) Unwrap() error { return e.Err }

// DecryptFailedError indicates the AES-ECB decryptor was given a key of the
// wrong length or a buffer that isn't a multiple of the cipher block size.
type DecryptFailedError struct {
	Reason string
}

func (e *DecryptFailedError) Error() string {
	return fmt.Sprintf("iostore: decrypt failed: %s", e.Reason)
}

// UnsupportedCodecError indicates a compression-method name referenced by
// the method-name table has no registered, functional backend.
type UnsupportedCodecError struct {
	Method string
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("iostore: unsupported compression method %q", e.Method)
}

// UnexpectedEOFError indicates a primitiveReader read ran past the end of
// its underlying buffer.
type UnexpectedEOFError struct {
	Pos   int
	Need  int
	Avail int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("iostore: unexpected eof at position %d: need %d bytes, have %d", e.Pos, e.Need, e.Avail)
}

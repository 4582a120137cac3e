package iostore

import "encoding/binary"

// primitiveReader is a little-endian cursor over an in-memory byte slice.
// The TOC and directory-index blobs are both read fully into memory before
// parsing (§4.4, §4.5), so a slice-backed cursor is enough; there is no need
// for the generality of io.ReadSeeker here the way icza/mpq uses one over
// its archive source.
type primitiveReader struct {
	buf []byte
	pos int
}

func newPrimitiveReader(buf []byte) *primitiveReader {
	return &primitiveReader{buf: buf}
}

// position returns the current cursor offset.
func (r *primitiveReader) position() int { return r.pos }

// remaining returns the number of unread bytes.
func (r *primitiveReader) remaining() int { return len(r.buf) - r.pos }

// seek moves the cursor to an absolute offset.
func (r *primitiveReader) seek(abs int) error {
	if abs < 0 || abs > len(r.buf) {
		return &UnexpectedEOFError{Pos: r.pos, Need: abs - r.pos, Avail: r.remaining()}
	}
	r.pos = abs
	return nil
}

func (r *primitiveReader) need(n int) error {
	if n < 0 || r.remaining() < n {
		return &UnexpectedEOFError{Pos: r.pos, Need: n, Avail: r.remaining()}
	}
	return nil
}

// readBytes returns a fresh copy of the next n bytes and advances the cursor.
func (r *primitiveReader) readBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// readInto copies into dst, advancing the cursor by len(dst).
func (r *primitiveReader) readInto(dst []byte) error {
	if err := r.need(len(dst)); err != nil {
		return err
	}
	copy(dst, r.buf[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return nil
}

// peekBytes returns a slice view (no copy) of the next n bytes without
// advancing the cursor.
func (r *primitiveReader) peekBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n], nil
}

func (r *primitiveReader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

func (r *primitiveReader) readU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *primitiveReader) readI8() (int8, error) {
	v, err := r.readU8()
	return int8(v), err
}

func (r *primitiveReader) readU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *primitiveReader) readI16() (int16, error) {
	v, err := r.readU16()
	return int16(v), err
}

func (r *primitiveReader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *primitiveReader) readI32() (int32, error) {
	v, err := r.readU32()
	return int32(v), err
}

func (r *primitiveReader) readU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// readCString reads n bytes and trims everything from the first NUL
// onward, matching the method-name table's fixed-width NUL-terminated
// ASCII slots (§3, MethodNameTable).
func (r *primitiveReader) readCString(n int) (string, error) {
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

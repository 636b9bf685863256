package wire

import (
	"encoding/binary"
	"fmt"
)

// Field-level encoding for message payloads: each field is written as a
// 1-byte tag, a 1-byte wire kind, and then a kind-dependent body. Repeated
// scalars (AddressN) are written as consecutive same-tag fields rather than
// packed, mirroring the device family's own non-packed repeated encoding.
// This is a hand-rolled length-delimited scheme, not a reflection-driven
// one — every Message variant owns its own Marshal/Unmarshal, the same way
// the teacher's uapi layer packed fixed structs by hand with encoding/binary
// instead of reaching for a generic codec.
const (
	wireVarint byte = 0
	wireBool   byte = 1
	wireBytes  byte = 2
)

// fieldWriter accumulates a message payload one field at a time.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) Uint32(tag byte, v uint32) {
	w.buf = append(w.buf, tag, wireVarint)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *fieldWriter) Bool(tag byte, v bool) {
	w.buf = append(w.buf, tag, wireBool)
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *fieldWriter) String(tag byte, v string) {
	w.Bytes(tag, []byte(v))
}

func (w *fieldWriter) Bytes(tag byte, v []byte) {
	w.buf = append(w.buf, tag, wireBytes)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(v)))
	w.buf = append(w.buf, tmp[:n]...)
	w.buf = append(w.buf, v...)
}

func (w *fieldWriter) Finish() []byte {
	return w.buf
}

// fieldReader walks a payload previously produced by fieldWriter.
type fieldReader struct {
	buf []byte
	pos int
}

func newFieldReader(buf []byte) *fieldReader {
	return &fieldReader{buf: buf}
}

// Next reports the next field's tag and kind, or ok=false at end of input.
func (r *fieldReader) Next() (tag byte, kind byte, ok bool, err error) {
	if r.pos >= len(r.buf) {
		return 0, 0, false, nil
	}
	if r.pos+2 > len(r.buf) {
		return 0, 0, false, fmt.Errorf("wire: truncated field header at offset %d", r.pos)
	}
	tag, kind = r.buf[r.pos], r.buf[r.pos+1]
	r.pos += 2
	return tag, kind, true, nil
}

func (r *fieldReader) Uint32() (uint32, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("wire: invalid varint at offset %d", r.pos)
	}
	r.pos += n
	return uint32(v), nil
}

func (r *fieldReader) Bool() (bool, error) {
	if r.pos >= len(r.buf) {
		return false, fmt.Errorf("wire: truncated bool at offset %d", r.pos)
	}
	v := r.buf[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *fieldReader) String() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

func (r *fieldReader) Bytes() ([]byte, error) {
	length, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return nil, fmt.Errorf("wire: invalid length varint at offset %d", r.pos)
	}
	r.pos += n
	if r.pos+int(length) > len(r.buf) {
		return nil, fmt.Errorf("wire: field length %d overruns payload at offset %d", length, r.pos)
	}
	b := r.buf[r.pos : r.pos+int(length)]
	r.pos += int(length)
	return b, nil
}

// Skip discards the body of a field whose kind was already read via Next,
// used by variants that tolerate unrecognized tags from a newer schema.
func (r *fieldReader) Skip(kind byte) error {
	switch kind {
	case wireVarint:
		_, err := r.Uint32()
		return err
	case wireBool:
		_, err := r.Bool()
		return err
	case wireBytes:
		_, err := r.Bytes()
		return err
	default:
		return fmt.Errorf("wire: unknown field kind %d", kind)
	}
}

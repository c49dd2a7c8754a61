package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire types, mirroring the two shapes spec.md §6 calls for: varints for
// scalars, length-delimited blobs for byte strings, strings, and nested
// messages.
const (
	wireVarint = 0
	wireBytes  = 2
)

// ErrTruncated is returned when a buffer ends in the middle of a field.
var ErrTruncated = errors.New("wire: truncated record")

// ErrFieldLength is returned when a fixed-size field (a key, hash, or
// signature) decodes to the wrong number of bytes.
var ErrFieldLength = errors.New("wire: field has wrong length")

// PutFixed copies a fixed-length field into dst, failing if the wire
// value's length doesn't match. Used for [32]byte keys, [64]byte
// signatures, and similar fixed-size fields.
func PutFixed(dst []byte, b []byte) error {
	if len(b) != len(dst) {
		return fmt.Errorf("%w: got %d want %d", ErrFieldLength, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

// Writer accumulates a field-tagged binary record.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Finish returns the encoded record.
func (w *Writer) Finish() []byte { return w.buf.Bytes() }

func putUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func putTag(buf *bytes.Buffer, field uint32, wireType uint8) {
	putUvarint(buf, uint64(field)<<3|uint64(wireType))
}

// Uint writes an unsigned integer field (counts, indices, timestamps).
func (w *Writer) Uint(field uint32, v uint64) {
	if v == 0 {
		return
	}
	putTag(&w.buf, field, wireVarint)
	putUvarint(&w.buf, v)
}

// Bool writes a boolean field.
func (w *Writer) Bool(field uint32, v bool) {
	if !v {
		return
	}
	putTag(&w.buf, field, wireVarint)
	putUvarint(&w.buf, 1)
}

// Bytes writes a length-delimited byte-string field. Empty slices are
// omitted, matching the tagged-optional-field convention used throughout
// this schema; a zero-length byte string and an absent field are
// indistinguishable on the wire, which is always acceptable here since
// every consumer treats "absent" as "empty."
func (w *Writer) Bytes(field uint32, v []byte) {
	if len(v) == 0 {
		return
	}
	putTag(&w.buf, field, wireBytes)
	putUvarint(&w.buf, uint64(len(v)))
	w.buf.Write(v)
}

// String writes a length-delimited string field.
func (w *Writer) String(field uint32, v string) {
	if v == "" {
		return
	}
	w.Bytes(field, []byte(v))
}

// Message writes a nested record, already encoded by the caller, as a
// length-delimited field.
func (w *Writer) Message(field uint32, v []byte) {
	if len(v) == 0 {
		return
	}
	w.Bytes(field, v)
}

// Field is one decoded (tag, value) pair from a record. Exactly one of
// Varint / Bytes is meaningful, selected by WireType.
type Field struct {
	Number   uint32
	WireType uint8
	Varint   uint64
	Bytes    []byte
}

// ReadFields decodes data into its sequence of fields in wire order.
// Repeated field numbers are returned as repeated Field entries; callers
// that expect a repeated field accumulate them in encounter order, which
// this codec preserves (spec.md's ordered member/device lists depend on
// this).
func ReadFields(data []byte) ([]Field, error) {
	var fields []Field
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		tag, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: tag: %v", ErrTruncated, err)
		}
		field := uint32(tag >> 3)
		wireType := uint8(tag & 0x7)

		switch wireType {
		case wireVarint:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("%w: varint field %d: %v", ErrTruncated, field, err)
			}
			fields = append(fields, Field{Number: field, WireType: wireType, Varint: v})
		case wireBytes:
			n, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("%w: length field %d: %v", ErrTruncated, field, err)
			}
			b := make([]byte, n)
			if _, err := io.ReadFull(r, b); err != nil {
				return nil, fmt.Errorf("%w: payload field %d: %v", ErrTruncated, field, err)
			}
			fields = append(fields, Field{Number: field, WireType: wireType, Bytes: b})
		default:
			return nil, fmt.Errorf("wire: unsupported wire type %d on field %d", wireType, field)
		}
	}
	return fields, nil
}

package cdt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// --------------------------------------------------------------------------
// Binary Value Encoding
// --------------------------------------------------------------------------

// Every value is encoded as a one byte tag followed by its payload:
//
//	nil, false, true   tag only
//	int64              8 bytes big endian
//	float64            8 bytes big endian IEEE 754
//	string, []byte     uvarint length + data
//	list, ordered list uvarint count + elements
//	map                uvarint count + (key, value) pairs
const (
	tagNil byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagBytes
	tagList
	tagOrderedList
	tagMap
)

// maxDepth bounds the nesting of decoded values.
const maxDepth = 64

// ErrMalformed is returned when decoding truncated or corrupt data.
var ErrMalformed = errors.New("malformed encoding")

// EncodeValue returns the binary encoding of v.
func EncodeValue(v any) ([]byte, error) {
	return AppendValue(nil, v)
}

// DecodeValue decodes a value encoded by EncodeValue. Trailing bytes are an error.
func DecodeValue(b []byte) (any, error) {
	r := NewReader(b)
	v, err := r.ReadValue()
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Remaining())
	}
	return v, nil
}

// AppendValue appends the encoding of v to dst. Values outside the value
// model are normalized first.
func AppendValue(dst []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(dst, tagNil), nil
	case bool:
		if t {
			return append(dst, tagTrue), nil
		}
		return append(dst, tagFalse), nil
	case int64:
		return binary.BigEndian.AppendUint64(append(dst, tagInt), uint64(t)), nil
	case float64:
		return binary.BigEndian.AppendUint64(append(dst, tagFloat), math.Float64bits(t)), nil
	case string:
		return AppendString(append(dst, tagString), t), nil
	case []byte:
		return AppendBytes(append(dst, tagBytes), t), nil
	case []any:
		return appendItems(append(dst, tagList), t)
	case OrderedList:
		return appendItems(append(dst, tagOrderedList), t)
	case Map:
		dst = binary.AppendUvarint(append(dst, tagMap), uint64(len(t)))
		var err error
		for _, e := range t {
			if dst, err = AppendValue(dst, e.Key); err != nil {
				return nil, err
			}
			if dst, err = AppendValue(dst, e.Value); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return AppendValue(dst, n)
}

func appendItems(dst []byte, items []any) ([]byte, error) {
	dst = binary.AppendUvarint(dst, uint64(len(items)))
	var err error
	for _, item := range items {
		if dst, err = AppendValue(dst, item); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// AppendBytes appends b prefixed with its uvarint length.
func AppendBytes(dst, b []byte) []byte {
	return append(binary.AppendUvarint(dst, uint64(len(b))), b...)
}

// AppendString appends s prefixed with its uvarint length.
func AppendString(dst []byte, s string) []byte {
	return append(binary.AppendUvarint(dst, uint64(len(s))), s...)
}

// AppendVarint appends the zig-zag varint encoding of i.
func AppendVarint(dst []byte, i int64) []byte {
	return binary.AppendVarint(dst, i)
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// Reader decodes a byte slice written with the Append functions of this package.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b. b is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrMalformed)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *Reader) ReadUvarint() (uint64, error) {
	u, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad uvarint at offset %d", ErrMalformed, r.off)
	}
	r.off += n
	return u, nil
}

func (r *Reader) ReadVarint() (int64, error) {
	i, n := binary.Varint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint at offset %d", ErrMalformed, r.off)
	}
	r.off += n
	return i, nil
}

// ReadLen reads a uvarint count and checks that at least count bytes remain.
func (r *Reader) ReadLen() (int, error) {
	u, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if u > uint64(r.Remaining()) {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrMalformed, u, r.Remaining())
	}
	return int(u), nil
}

// ReadBytes reads a length prefixed byte slice. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.off:r.off+n])
	r.off += n
	return b, nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadLen()
	if err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s, nil
}

func (r *Reader) ReadValue() (any, error) {
	return r.readValue(0)
}

func (r *Reader) readValue(depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt, tagFloat:
		if r.Remaining() < 8 {
			return nil, fmt.Errorf("%w: truncated number", ErrMalformed)
		}
		u := binary.BigEndian.Uint64(r.buf[r.off:])
		r.off += 8
		if tag == tagInt {
			return int64(u), nil
		}
		return math.Float64frombits(u), nil
	case tagString:
		return r.ReadString()
	case tagBytes:
		return r.ReadBytes()
	case tagList, tagOrderedList:
		// every element takes at least one byte
		n, err := r.ReadLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, n)
		for i := range items {
			if items[i], err = r.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		if tag == tagOrderedList {
			return OrderedList(items), nil
		}
		return items, nil
	case tagMap:
		n, err := r.ReadLen()
		if err != nil {
			return nil, err
		}
		m := make(Map, n)
		for i := range m {
			if m[i].Key, err = r.readValue(depth + 1); err != nil {
				return nil, err
			}
			if m[i].Value, err = r.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformed, tag)
}

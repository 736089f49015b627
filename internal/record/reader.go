package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxDepth bounds nesting of lists, documents and variants.
const MaxDepth = 64

var (
	ErrTruncated = errors.New("record: truncated")
	ErrBadType   = errors.New("record: unknown value type")
	ErrTooDeep   = errors.New("record: nesting too deep")
	ErrOverflow  = errors.New("record: varint overflow")
	ErrBadMagic  = errors.New("record: bad payload magic")
)

// DecodeError carries the byte offset, relative to the payload start, at
// which decoding failed.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record: offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reader decodes values from a buffer. Unlike a lenient packet reader it
// reports every short read, since a record is only trusted if it decodes
// completely.
type Reader struct {
	data []byte
	off  int
	base int
}

// NewReader reads data; base is added to reported offsets.
func NewReader(data []byte, base int) *Reader {
	return &Reader{data: data, base: base}
}

func (r *Reader) fail(err error) error {
	return &DecodeError{Offset: r.base + r.off, Err: err}
}

// Offset returns the absolute offset of the next unread byte.
func (r *Reader) Offset() int   { return r.base + r.off }
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// ReadC reads 1 byte.
func (r *Reader) ReadC() (byte, error) {
	if r.off >= len(r.data) {
		return 0, r.fail(ErrTruncated)
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// ReadQ reads 8 bytes little-endian.
func (r *Reader) ReadQ() (uint64, error) {
	if r.off+8 > len(r.data) {
		return 0, r.fail(ErrTruncated)
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// ReadU reads an unsigned varint.
func (r *Reader) ReadU() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	switch {
	case n == 0:
		return 0, r.fail(ErrTruncated)
	case n < 0:
		return 0, r.fail(ErrOverflow)
	}
	r.off += n
	return v, nil
}

// ReadI reads a zigzag signed varint.
func (r *Reader) ReadI() (int64, error) {
	v, n := binary.Varint(r.data[r.off:])
	switch {
	case n == 0:
		return 0, r.fail(ErrTruncated)
	case n < 0:
		return 0, r.fail(ErrOverflow)
	}
	r.off += n
	return v, nil
}

// ReadBytes reads a length-prefixed byte slice. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, r.fail(ErrTruncated)
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:])
	r.off += int(n)
	return b, nil
}

// ReadS reads a length-prefixed string.
func (r *Reader) ReadS() (string, error) {
	n, err := r.ReadU()
	if err != nil {
		return "", err
	}
	if n > uint64(r.Remaining()) {
		return "", r.fail(ErrTruncated)
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// count reads a collection length, rejecting lengths that cannot fit in
// the remaining bytes (every element is at least one byte).
func (r *Reader) count() (int, error) {
	start := r.off
	n, err := r.ReadU()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Remaining()) {
		r.off = start
		return 0, r.fail(ErrTruncated)
	}
	return int(n), nil
}

func (r *Reader) ReadValue() (Value, error) {
	return r.readValue(0)
}

func (r *Reader) readValue(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, r.fail(ErrTooDeep)
	}
	start := r.off
	t, err := r.ReadC()
	if err != nil {
		return Value{}, err
	}
	v := Value{typ: Type(t)}
	switch v.typ {
	case TypeNull:
	case TypeBool:
		b, err := r.ReadC()
		if err != nil {
			return Value{}, err
		}
		if b != 0 {
			v.num = 1
		}
	case TypeInt:
		i, err := r.ReadI()
		if err != nil {
			return Value{}, err
		}
		v.num = uint64(i)
	case TypeUint:
		if v.num, err = r.ReadU(); err != nil {
			return Value{}, err
		}
	case TypeFloat:
		if v.num, err = r.ReadQ(); err != nil {
			return Value{}, err
		}
	case TypeString:
		if v.str, err = r.ReadS(); err != nil {
			return Value{}, err
		}
	case TypeBytes:
		if v.raw, err = r.ReadBytes(); err != nil {
			return Value{}, err
		}
	case TypeList:
		n, err := r.count()
		if err != nil {
			return Value{}, err
		}
		v.list = make([]Value, 0, n)
		for i := 0; i < n; i++ {
			item, err := r.readValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			v.list = append(v.list, item)
		}
	case TypeDoc:
		if v.doc, err = r.readDoc(depth + 1); err != nil {
			return Value{}, err
		}
	case TypeOwned, TypeRootRef:
		if v.num, err = r.ReadU(); err != nil {
			return Value{}, err
		}
		if v.aux, err = r.ReadU(); err != nil {
			return Value{}, err
		}
	case TypeVariant:
		if v.str, err = r.ReadS(); err != nil {
			return Value{}, err
		}
		inner, err := r.readValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		v.list = []Value{inner}
	default:
		r.off = start
		return Value{}, r.fail(fmt.Errorf("%w %d", ErrBadType, t))
	}
	return v, nil
}

func (r *Reader) ReadDoc() (*Document, error) {
	return r.readDoc(0)
}

func (r *Reader) readDoc(depth int) (*Document, error) {
	if depth > MaxDepth {
		return nil, r.fail(ErrTooDeep)
	}
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	d := &Document{fields: make([]Field, 0, n)}
	for i := 0; i < n; i++ {
		name, err := r.ReadS()
		if err != nil {
			return nil, err
		}
		v, err := r.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		d.Set(name, v)
	}
	return d, nil
}

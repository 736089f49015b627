package record

import (
	"encoding/binary"
	"math"
)

// Writer appends encoded values. All fixed-width writes are little-endian,
// integers are varints.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteQ writes 8 bytes little-endian.
func (w *Writer) WriteQ(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteU writes an unsigned varint.
func (w *Writer) WriteU(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// WriteI writes a zigzag signed varint.
func (w *Writer) WriteI(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

// WriteS writes a length-prefixed UTF-8 string.
func (w *Writer) WriteS(s string) {
	w.WriteU(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a length-prefixed byte slice.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteValue writes a type tag followed by the value body.
func (w *Writer) WriteValue(v Value) {
	w.WriteC(byte(v.typ))
	switch v.typ {
	case TypeNull:
	case TypeBool:
		w.WriteC(byte(v.num))
	case TypeInt:
		w.WriteI(int64(v.num))
	case TypeUint:
		w.WriteU(v.num)
	case TypeFloat:
		w.WriteQ(v.num)
	case TypeString:
		w.WriteS(v.str)
	case TypeBytes:
		w.WriteBytes(v.raw)
	case TypeList:
		w.WriteU(uint64(len(v.list)))
		for _, item := range v.list {
			w.WriteValue(item)
		}
	case TypeDoc:
		w.WriteDoc(v.doc)
	case TypeOwned, TypeRootRef:
		w.WriteU(v.num)
		w.WriteU(v.aux)
	case TypeVariant:
		w.WriteS(v.str)
		if len(v.list) == 1 {
			w.WriteValue(v.list[0])
		} else {
			w.WriteValue(Null())
		}
	}
}

// WriteDoc writes a field count followed by name/value pairs.
func (w *Writer) WriteDoc(d *Document) {
	if d == nil {
		w.WriteU(0)
		return
	}
	w.WriteU(uint64(len(d.fields)))
	for _, f := range d.fields {
		w.WriteS(f.Name)
		w.WriteValue(f.Value)
	}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

// float32 slices are packed as consecutive little-endian words.
func PackFloats(vs []float32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// UnpackFloats reverses PackFloats. A trailing partial word is ignored.
func UnpackFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

package record

import "fmt"

// Fields reads typed fields out of a document. A missing field yields the
// zero value; a present field of an incompatible type records an error and
// yields the zero value. Check Err once after reading everything.
type Fields struct {
	doc *Document
	err error
}

func Read(d *Document) *Fields {
	if d == nil {
		d = NewDocument()
	}
	return &Fields{doc: d}
}

func (f *Fields) Err() error { return f.err }

func (f *Fields) mismatch(name, want string, v Value) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: want %s, have %s", name, want, v.typ)
	}
}

func (f *Fields) lookup(name string) (Value, bool) {
	v, ok := f.doc.Get(name)
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

func (f *Fields) Has(name string) bool {
	_, ok := f.lookup(name)
	return ok
}

func (f *Fields) Value(name string) Value {
	v, _ := f.doc.Get(name)
	return v
}

func (f *Fields) String(name string) string {
	v, ok := f.lookup(name)
	if !ok {
		return ""
	}
	s, ok := v.AsString()
	if !ok {
		f.mismatch(name, "string", v)
	}
	return s
}

func (f *Fields) Bool(name string) bool {
	v, ok := f.lookup(name)
	if !ok {
		return false
	}
	b, ok := v.AsBool()
	if !ok {
		f.mismatch(name, "bool", v)
	}
	return b
}

func (f *Fields) Int(name string) int64 {
	v, ok := f.lookup(name)
	if !ok {
		return 0
	}
	i, ok := v.AsInt()
	if !ok {
		f.mismatch(name, "int", v)
	}
	return i
}

func (f *Fields) Uint(name string) uint64 {
	v, ok := f.lookup(name)
	if !ok {
		return 0
	}
	u, ok := v.AsUint()
	if !ok {
		f.mismatch(name, "uint", v)
	}
	return u
}

// FloatOr returns def when the field is missing.
func (f *Fields) FloatOr(name string, def float64) float64 {
	v, ok := f.lookup(name)
	if !ok {
		return def
	}
	x, ok := v.AsFloat()
	if !ok {
		f.mismatch(name, "float", v)
		return def
	}
	return x
}

func (f *Fields) Bytes(name string) []byte {
	v, ok := f.lookup(name)
	if !ok {
		return nil
	}
	b, ok := v.AsBytes()
	if !ok {
		f.mismatch(name, "bytes", v)
	}
	return b
}

func (f *Fields) List(name string) []Value {
	v, ok := f.lookup(name)
	if !ok {
		return nil
	}
	l, ok := v.AsList()
	if !ok {
		f.mismatch(name, "list", v)
	}
	return l
}

func (f *Fields) Doc(name string) *Document {
	v, ok := f.lookup(name)
	if !ok {
		return nil
	}
	d, ok := v.AsDoc()
	if !ok {
		f.mismatch(name, "doc", v)
	}
	return d
}

// OwnedList reads a list of owned references as {key, page} pairs. A
// non-reference element records an error and is left out.
func (f *Fields) OwnedList(name string) [][2]uint64 {
	var out [][2]uint64
	for i, v := range f.List(name) {
		k, p, ok := v.AsOwned()
		if !ok {
			f.mismatch(fmt.Sprintf("%s[%d]", name, i), "owned", v)
			continue
		}
		out = append(out, [2]uint64{k, p})
	}
	return out
}

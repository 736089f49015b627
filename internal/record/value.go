// Package record is the structured document stored in each page chain: an
// ordered set of named fields holding primitives, lists, nested documents,
// owned references, cross-file references and tagged variants.
package record

import (
	"fmt"
	"math"
)

// Type tags a Value.
type Type byte

const (
	TypeNull Type = iota
	TypeBool
	TypeInt
	TypeUint
	TypeFloat
	TypeString
	TypeBytes
	TypeList
	TypeDoc
	TypeOwned   // {key, page}: a nested object in the same file
	TypeRootRef // {key, root}: an object inside another root asset's file
	TypeVariant // tag + value
)

var typeNames = [...]string{"null", "bool", "int", "uint", "float", "string", "bytes", "list", "doc", "owned", "rootref", "variant"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// Value is one field value. The zero Value is null.
type Value struct {
	typ  Type
	num  uint64 // bool, int (two's complement), uint, float bits, key
	aux  uint64 // page or root key
	str  string // string, variant tag
	raw  []byte
	list []Value
	doc  *Document
}

func Null() Value            { return Value{} }
func Int(v int64) Value      { return Value{typ: TypeInt, num: uint64(v)} }
func Uint(v uint64) Value    { return Value{typ: TypeUint, num: v} }
func Float(v float64) Value  { return Value{typ: TypeFloat, num: math.Float64bits(v)} }
func String(v string) Value  { return Value{typ: TypeString, str: v} }
func Bytes(v []byte) Value   { return Value{typ: TypeBytes, raw: v} }
func List(vs ...Value) Value { return Value{typ: TypeList, list: vs} }
func Doc(d *Document) Value  { return Value{typ: TypeDoc, doc: d} }

func Bool(v bool) Value {
	if v {
		return Value{typ: TypeBool, num: 1}
	}
	return Value{typ: TypeBool}
}

// Owned references a nested object stored in the same file.
func Owned(key, page uint64) Value { return Value{typ: TypeOwned, num: key, aux: page} }

// RootRef references an object living in the file of root asset root.
func RootRef(key, root uint64) Value { return Value{typ: TypeRootRef, num: key, aux: root} }

// Variant wraps v with a tag naming the alternative it represents.
func Variant(tag string, v Value) Value {
	return Value{typ: TypeVariant, str: tag, list: []Value{v}}
}

func (v Value) Type() Type   { return v.typ }
func (v Value) IsNull() bool { return v.typ == TypeNull }

// The As* accessors coerce between numeric types where the value fits, so
// records written with an older field type still load.

func (v Value) AsBool() (bool, bool) {
	switch v.typ {
	case TypeBool, TypeUint, TypeInt:
		return v.num != 0, true
	}
	return false, false
}

func (v Value) AsInt() (int64, bool) {
	switch v.typ {
	case TypeInt:
		return int64(v.num), true
	case TypeUint:
		if v.num > math.MaxInt64 {
			return 0, false
		}
		return int64(v.num), true
	case TypeBool:
		return int64(v.num), true
	case TypeFloat:
		f := math.Float64frombits(v.num)
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func (v Value) AsUint() (uint64, bool) {
	switch v.typ {
	case TypeUint, TypeBool:
		return v.num, true
	case TypeInt:
		if int64(v.num) < 0 {
			return 0, false
		}
		return v.num, true
	case TypeFloat:
		f := math.Float64frombits(v.num)
		if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

func (v Value) AsFloat() (float64, bool) {
	switch v.typ {
	case TypeFloat:
		return math.Float64frombits(v.num), true
	case TypeInt:
		return float64(int64(v.num)), true
	case TypeUint:
		return float64(v.num), true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) {
	switch v.typ {
	case TypeString:
		return v.str, true
	case TypeBytes:
		return string(v.raw), true
	}
	return "", false
}

func (v Value) AsBytes() ([]byte, bool) {
	switch v.typ {
	case TypeBytes:
		return v.raw, true
	case TypeString:
		return []byte(v.str), true
	}
	return nil, false
}

func (v Value) AsList() ([]Value, bool) {
	if v.typ != TypeList {
		return nil, false
	}
	return v.list, true
}

func (v Value) AsDoc() (*Document, bool) {
	if v.typ != TypeDoc || v.doc == nil {
		return nil, false
	}
	return v.doc, true
}

// AsOwned returns key and page of an owned reference.
func (v Value) AsOwned() (key, page uint64, ok bool) {
	if v.typ != TypeOwned {
		return 0, 0, false
	}
	return v.num, v.aux, true
}

// AsRootRef returns key and root asset key of a cross-file reference.
func (v Value) AsRootRef() (key, root uint64, ok bool) {
	if v.typ != TypeRootRef {
		return 0, 0, false
	}
	return v.num, v.aux, true
}

// AsVariant returns the tag and wrapped value of a variant.
func (v Value) AsVariant() (string, Value, bool) {
	if v.typ != TypeVariant || len(v.list) != 1 {
		return "", Value{}, false
	}
	return v.str, v.list[0], true
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool, TypeInt, TypeUint, TypeFloat:
		return v.num == o.num
	case TypeString:
		return v.str == o.str
	case TypeBytes:
		return string(v.raw) == string(o.raw)
	case TypeOwned, TypeRootRef:
		return v.num == o.num && v.aux == o.aux
	case TypeDoc:
		return v.doc.Equal(o.doc)
	case TypeList, TypeVariant:
		if v.str != o.str || len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Field is one named value of a Document.
type Field struct {
	Name  string
	Value Value
}

// Document keeps fields in insertion order so encoding is deterministic.
type Document struct {
	fields []Field
}

func NewDocument() *Document { return &Document{} }

// Set adds or replaces a field.
func (d *Document) Set(name string, v Value) *Document {
	for i := range d.fields {
		if d.fields[i].Name == name {
			d.fields[i].Value = v
			return d
		}
	}
	d.fields = append(d.fields, Field{Name: name, Value: v})
	return d
}

func (d *Document) Get(name string) (Value, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (d *Document) Fields() []Field { return d.fields }
func (d *Document) Len() int        { return len(d.fields) }

func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.fields) != len(o.fields) {
		return false
	}
	for i, f := range d.fields {
		if f.Name != o.fields[i].Name || !f.Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

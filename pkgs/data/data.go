// Package data is the structured data model carried between pipeline stages.
//
// A stage receives one Data value as piped input and produces one as output.
// Data is a tagged union: Empty, a Value (scalar, record or list), a Record,
// a List, or a Table. Shapes classify data for input-contract checks.
package data

import (
	"fmt"
	"strconv"
	"strings"
)

// ScalarKind identifies the variant held by a Scalar.
type ScalarKind int

const (
	NullKind ScalarKind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
)

// Scalar is a single typed literal.
type Scalar struct {
	Kind  ScalarKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func Null() Scalar              { return Scalar{Kind: NullKind} }
func Bool(b bool) Scalar        { return Scalar{Kind: BoolKind, Bool: b} }
func Int(i int64) Scalar        { return Scalar{Kind: IntKind, Int: i} }
func Float(f float64) Scalar    { return Scalar{Kind: FloatKind, Float: f} }
func String(s string) Scalar    { return Scalar{Kind: StringKind, Str: s} }
func (s Scalar) IsNumber() bool { return s.Kind == IntKind || s.Kind == FloatKind }

// Number returns the scalar as a float64 when it is numeric.
func (s Scalar) Number() (float64, bool) {
	switch s.Kind {
	case IntKind:
		return float64(s.Int), true
	case FloatKind:
		return s.Float, true
	default:
		return 0, false
	}
}

// String renders the scalar the way it would be typed on a command line.
func (s Scalar) String() string {
	switch s.Kind {
	case NullKind:
		return "null"
	case BoolKind:
		return strconv.FormatBool(s.Bool)
	case IntKind:
		return strconv.FormatInt(s.Int, 10)
	case FloatKind:
		return strconv.FormatFloat(s.Float, 'g', -1, 64)
	default:
		return s.Str
	}
}

// Native converts the scalar to a plain Go value (nil, bool, int64,
// float64, string).
func (s Scalar) Native() interface{} {
	switch s.Kind {
	case NullKind:
		return nil
	case BoolKind:
		return s.Bool
	case IntKind:
		return s.Int
	case FloatKind:
		return s.Float
	default:
		return s.Str
	}
}

// CompareScalar orders two scalars. Numbers compare numerically, strings
// lexically, bools false<true, and null sorts first. Mixed kinds fall back
// to comparing their text.
func CompareScalar(a, b Scalar) int {
	if a.Kind == NullKind || b.Kind == NullKind {
		switch {
		case a.Kind == b.Kind:
			return 0
		case a.Kind == NullKind:
			return -1
		default:
			return 1
		}
	}
	if an, ok := a.Number(); ok {
		if bn, ok := b.Number(); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	if a.Kind == BoolKind && b.Kind == BoolKind {
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(a.String(), b.String())
}

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	ScalarValue ValueKind = iota
	RecordValue
	ListValue
)

// Value is a scalar, a record or a list of values.
type Value struct {
	Kind   ValueKind
	Scalar Scalar
	Record Record
	List   []Value
}

func ScalarOf(s Scalar) Value     { return Value{Kind: ScalarValue, Scalar: s} }
func RecordOf(r Record) Value     { return Value{Kind: RecordValue, Record: r} }
func ListOf(items ...Value) Value { return Value{Kind: ListValue, List: items} }
func Text(s string) Value         { return ScalarOf(String(s)) }

// Shape returns the shape of the value's variant.
func (v Value) Shape() Shape {
	switch v.Kind {
	case RecordValue:
		return ShapeRecord
	case ListValue:
		return ShapeList
	default:
		return ShapeScalar
	}
}

// String renders the value as compact single-line text.
func (v Value) String() string {
	switch v.Kind {
	case RecordValue:
		return v.Record.String()
	case ListValue:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Scalar.String()
	}
}

// Native converts the value to plain Go maps, slices and scalars.
func (v Value) Native() interface{} {
	switch v.Kind {
	case RecordValue:
		return v.Record.Native()
	case ListValue:
		items := make([]interface{}, len(v.List))
		for i, item := range v.List {
			items[i] = item.Native()
		}
		return items
	default:
		return v.Scalar.Native()
	}
}

// Field is one named entry of a record.
type Field struct {
	Name  string
	Value Value
}

// NewField builds a field.
func NewField(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

// Record is an ordered set of named fields addressed by name.
type Record struct {
	Fields []Field
}

// NewRecord builds a record from fields in order.
func NewRecord(fields ...Field) Record {
	return Record{Fields: fields}
}

// Get returns the first field with the given name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the named field or appends it.
func (r *Record) Set(name string, value Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, NewField(name, value))
}

// Select returns a record with only the named fields, in the order given.
// Missing names are skipped.
func (r Record) Select(names []string) Record {
	out := Record{Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		if v, ok := r.Get(name); ok {
			out.Fields = append(out.Fields, NewField(name, v))
		}
	}
	return out
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

func (r Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Native converts the record to a map.
func (r Record) Native() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value.Native()
	}
	return m
}

// Kind identifies the variant held by a Data value.
type Kind int

const (
	KindEmpty Kind = iota
	KindValue
	KindRecord
	KindList
	KindTable
)

// Data is the unit piped between stages.
type Data struct {
	Kind   Kind
	Value  Value
	Record Record
	List   []Value
	Table  *Table
}

func Empty() Data                 { return Data{Kind: KindEmpty} }
func FromValue(v Value) Data      { return Data{Kind: KindValue, Value: v} }
func FromRecord(r Record) Data    { return Data{Kind: KindRecord, Record: r} }
func FromList(items []Value) Data { return Data{Kind: KindList, List: items} }

// FromTable wraps a table. A nil table is Empty.
func FromTable(t *Table) Data {
	if t == nil {
		return Empty()
	}
	return Data{Kind: KindTable, Table: t}
}

// IsEmpty reports whether d carries nothing.
func (d Data) IsEmpty() bool { return d.Kind == KindEmpty }

// Shape returns the structural category of d.
func (d Data) Shape() Shape {
	switch d.Kind {
	case KindValue:
		return d.Value.Shape()
	case KindRecord:
		return ShapeRecord
	case KindList:
		return ShapeList
	case KindTable:
		return ShapeTable
	default:
		return ShapeEmpty
	}
}

// AsRecord returns the record carried directly or inside a Value.
func (d Data) AsRecord() (Record, bool) {
	switch {
	case d.Kind == KindRecord:
		return d.Record, true
	case d.Kind == KindValue && d.Value.Kind == RecordValue:
		return d.Value.Record, true
	default:
		return Record{}, false
	}
}

// AsList returns the list carried directly or inside a Value.
func (d Data) AsList() ([]Value, bool) {
	switch {
	case d.Kind == KindList:
		return d.List, true
	case d.Kind == KindValue && d.Value.Kind == ListValue:
		return d.Value.List, true
	default:
		return nil, false
	}
}

// Native converts d to plain Go values. Tables become a slice of row maps.
func (d Data) Native() interface{} {
	switch d.Kind {
	case KindValue:
		return d.Value.Native()
	case KindRecord:
		return d.Record.Native()
	case KindList:
		return ListOf(d.List...).Native()
	case KindTable:
		rows := make([]interface{}, len(d.Table.Rows))
		for i, row := range d.Table.Rows {
			rows[i] = row.Native()
		}
		return rows
	default:
		return nil
	}
}

// DisplayHint tells the presentation layer how to render a Data event.
type DisplayHint int

const (
	DisplayValue DisplayHint = iota
	DisplayRecord
	DisplayTable
	DisplayText
	DisplayHelp
)

var displayNames = [...]string{
	DisplayValue:  "value",
	DisplayRecord: "record",
	DisplayTable:  "table",
	DisplayText:   "text",
	DisplayHelp:   "help",
}

func (h DisplayHint) String() string {
	if int(h) >= 0 && int(h) < len(displayNames) {
		return displayNames[h]
	}
	return fmt.Sprintf("DisplayHint(%d)", int(h))
}

// HintFor picks the natural display hint for d's shape.
func HintFor(d Data) DisplayHint {
	switch d.Shape() {
	case ShapeTable:
		return DisplayTable
	case ShapeRecord:
		return DisplayRecord
	default:
		return DisplayValue
	}
}

package data

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes the record as an object with fields in order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes scalars as JSON scalars, records as ordered objects
// and lists as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case RecordValue:
		return json.Marshal(v.Record)
	case ListValue:
		items := v.List
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	default:
		return json.Marshal(v.Scalar.Native())
	}
}

type tableJSON struct {
	Columns  []string               `json:"columns"`
	Rows     []Record               `json:"rows"`
	Schema   map[string]interface{} `json:"schema,omitempty"`
	Fallback string                 `json:"fallback,omitempty"`
	Source   string                 `json:"source,omitempty"`
}

type dataJSON struct {
	Kind  string      `json:"kind"`
	Shape string      `json:"shape"`
	Value interface{} `json:"value,omitempty"`
	Table *tableJSON  `json:"table,omitempty"`
}

var kindNames = [...]string{
	KindEmpty:  "empty",
	KindValue:  "value",
	KindRecord: "record",
	KindList:   "list",
	KindTable:  "table",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalJSON encodes d with its variant and shape so a remote presentation
// layer can pick a renderer without inspecting the payload.
func (d Data) MarshalJSON() ([]byte, error) {
	out := dataJSON{Kind: d.Kind.String(), Shape: d.Shape().String()}
	switch d.Kind {
	case KindValue:
		out.Value = d.Value
	case KindRecord:
		out.Value = d.Record
	case KindList:
		out.Value = ListOf(d.List...)
	case KindTable:
		rows := d.Table.Rows
		if rows == nil {
			rows = []Record{}
		}
		out.Table = &tableJSON{
			Columns:  d.Table.Columns,
			Rows:     rows,
			Schema:   d.Table.Schema,
			Fallback: d.Table.Fallback,
			Source:   d.Table.Source,
		}
	}
	return json.Marshal(out)
}

package builtins

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"gopkg.in/yaml.v3"
)

func dataCommands() []command {
	return []command{
		{
			desc: registry.Descriptor{
				Path:   []string{"data", "select"},
				Args:   []registry.ArgSpec{{Name: "field", Required: true, Repeatable: true}},
				Input:  data.AnyInput(),
				Output: data.ShapeAny,
				Help: registry.Help{
					Summary:  "Keep only the named fields of a record or table",
					Examples: []registry.Example{{Command: "apps list | data select app_id", Summary: "only the ids"}},
				},
			},
			handler: dataSelect,
		},
		{
			desc: registry.Descriptor{
				Path: []string{"data", "where"},
				Args: []registry.ArgSpec{
					{Name: "field", Required: true},
					{Name: "op", Summary: "== != > >= < <= contains", Required: true},
					{Name: "value", Required: true},
				},
				Input:  data.Accepts(data.ShapeTable),
				Output: data.ShapeTable,
				Help:   registry.Help{Summary: "Keep the rows whose field satisfies a comparison"},
			},
			handler: dataWhere,
		},
		{
			desc: registry.Descriptor{
				Path:    []string{"data", "sort"},
				Args:    []registry.ArgSpec{{Name: "field", Required: true}},
				Options: []registry.OptionSpec{{Name: "desc", Short: 'd', Summary: "sort descending"}},
				Input:   data.Accepts(data.ShapeTable),
				Output:  data.ShapeTable,
				Help:    registry.Help{Summary: "Sort table rows by a field"},
			},
			handler: dataSort,
		},
		{
			desc: registry.Descriptor{
				Path:   []string{"data", "first"},
				Args:   []registry.ArgSpec{{Name: "count", Summary: "defaults to 1"}},
				Input:  data.AnyInput(),
				Output: data.ShapeAny,
				Help:   registry.Help{Summary: "Keep the first rows of a table or items of a list"},
			},
			handler: dataFirst,
		},
		{
			desc: registry.Descriptor{
				Path:   []string{"data", "get"},
				Args:   []registry.ArgSpec{{Name: "field", Required: true}},
				Input:  data.AnyInput(),
				Output: data.ShapeAny,
				Help:   registry.Help{Summary: "Extract a field from a record or a column from a table"},
			},
			handler: dataGet,
		},
		{
			desc: registry.Descriptor{
				Path:   []string{"data", "validate"},
				Input:  data.Accepts(data.ShapeTable),
				Output: data.ShapeTable,
				Help:   registry.Help{Summary: "Check table rows against the table's schema"},
			},
			handler: dataValidate,
		},
		{
			desc: registry.Descriptor{
				Path:   []string{"data", "to-yaml"},
				Input:  data.AnyInput(),
				Output: data.ShapeScalar,
				Help:   registry.Help{Summary: "Render piped data as YAML text"},
			},
			handler: dataToYAML,
		},
	}
}

func usage(ec *registry.ExecutionContext) error {
	return shellerrors.Usagef("usage: %s", ec.Descriptor.UsageLine())
}

func dataSelect(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Args) == 0 {
		return registry.Result{}, usage(ec)
	}
	fields := ec.Args

	switch in := ec.Input; {
	case in.IsEmpty():
		return registry.Result{}, nil
	case in.Kind == data.KindTable:
		rows := make([]data.Record, len(in.Table.Rows))
		for i, row := range in.Table.Rows {
			rows[i] = row.Select(fields)
		}
		t := data.NewTable(fields, rows, in.Table.Source)
		return registry.TableResult(t), nil
	default:
		if rec, ok := in.AsRecord(); ok {
			return registry.Output(data.FromRecord(rec.Select(fields))), nil
		}
		return registry.Result{}, shellerrors.NewShapeMismatchError("record or table", in.Shape().String())
	}
}

var whereOps = map[string]func(cmp int) bool{
	"==": func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	">":  func(c int) bool { return c > 0 },
	">=": func(c int) bool { return c >= 0 },
	"<":  func(c int) bool { return c < 0 },
	"<=": func(c int) bool { return c <= 0 },
}

func dataWhere(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Invocation.Values) != 3 {
		return registry.Result{}, usage(ec)
	}
	field, op := ec.Args[0], ec.Args[1]
	want := ec.Invocation.Values[2]

	var keep func(v data.Value) bool
	if op == "contains" {
		keep = func(v data.Value) bool { return strings.Contains(v.String(), want.Raw) }
	} else if test, ok := whereOps[op]; ok {
		keep = func(v data.Value) bool { return test(data.CompareScalar(scalarOf(v), want.Literal)) }
	} else {
		return registry.Result{}, shellerrors.Usagef("unknown operator %q", op)
	}

	if ec.Input.IsEmpty() {
		return registry.Result{}, nil
	}
	in := ec.Input.Table
	var rows []data.Record
	for _, row := range in.Rows {
		if v, ok := row.Get(field); ok && keep(v) {
			rows = append(rows, row)
		}
	}
	return registry.TableResult(in.WithRows(rows)), nil
}

func dataSort(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Args) != 1 {
		return registry.Result{}, usage(ec)
	}
	if ec.Input.IsEmpty() {
		return registry.Result{}, nil
	}
	field := ec.Args[0]
	desc := ec.Invocation.Flag("desc", 'd')

	in := ec.Input.Table
	rows := append([]data.Record(nil), in.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		c := data.CompareScalar(fieldScalar(rows[i], field), fieldScalar(rows[j], field))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return registry.TableResult(in.WithRows(rows)), nil
}

func dataFirst(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	count := 1
	if len(ec.Invocation.Values) > 1 {
		return registry.Result{}, usage(ec)
	}
	if len(ec.Invocation.Values) == 1 {
		lit := ec.Invocation.Values[0].Literal
		if lit.Kind != data.IntKind || lit.Int < 0 {
			return registry.Result{}, shellerrors.Usagef("count must be a non-negative integer, got %s", lit.String())
		}
		count = int(lit.Int)
	}

	in := ec.Input
	switch {
	case in.IsEmpty():
		return registry.Result{}, nil
	case in.Kind == data.KindTable:
		rows := in.Table.Rows
		if count < len(rows) {
			rows = rows[:count]
		}
		return registry.TableResult(in.Table.WithRows(rows)), nil
	default:
		if items, ok := in.AsList(); ok {
			if count < len(items) {
				items = items[:count]
			}
			return registry.Output(data.FromList(items)), nil
		}
		return registry.Result{}, shellerrors.NewShapeMismatchError("table or list", in.Shape().String())
	}
}

func dataGet(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Args) != 1 {
		return registry.Result{}, usage(ec)
	}
	field := ec.Args[0]

	in := ec.Input
	switch {
	case in.IsEmpty():
		return registry.Result{}, nil
	case in.Kind == data.KindTable:
		return registry.Output(data.FromList(in.Table.Column(field))), nil
	default:
		rec, ok := in.AsRecord()
		if !ok {
			return registry.Result{}, shellerrors.NewShapeMismatchError("record or table", in.Shape().String())
		}
		v, ok := rec.Get(field)
		if !ok {
			return registry.Result{}, shellerrors.Usagef("field not found: %s", field)
		}
		return registry.Output(data.FromValue(v)), nil
	}
}

func dataValidate(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if ec.Input.IsEmpty() {
		return registry.Result{}, nil
	}
	t := ec.Input.Table
	violations, err := t.ValidateRows()
	if err != nil {
		return registry.Result{}, shellerrors.Wrap(shellerrors.Usage, "invalid table schema", err)
	}

	res := registry.TableResult(t)
	for _, v := range violations {
		res.Notices = append(res.Notices, registry.Notice{
			Level:   registry.Warning,
			Message: fmt.Sprintf("row %d: %s", v.Row, v.Message),
		})
	}
	return res, nil
}

func dataToYAML(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(dataNode(ec.Input)); err != nil {
		return registry.Result{}, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return registry.Result{}, fmt.Errorf("encode yaml: %w", err)
	}
	return registry.Result{Output: data.FromValue(data.Text(buf.String())), Display: data.DisplayText}, nil
}

// dataNode builds a YAML node tree that keeps record field order.
func dataNode(d data.Data) *yaml.Node {
	switch d.Kind {
	case data.KindValue:
		return valueNode(d.Value)
	case data.KindRecord:
		return recordNode(d.Record)
	case data.KindList:
		return valueNode(data.ListOf(d.List...))
	case data.KindTable:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range d.Table.Rows {
			seq.Content = append(seq.Content, recordNode(row))
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func recordNode(r data.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r.Fields {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
			valueNode(f.Value))
	}
	return m
}

func valueNode(v data.Value) *yaml.Node {
	switch v.Kind {
	case data.RecordValue:
		return recordNode(v.Record)
	case data.ListValue:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.List {
			seq.Content = append(seq.Content, valueNode(item))
		}
		return seq
	}

	s := v.Scalar
	switch s.Kind {
	case data.NullKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case data.BoolKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: s.String()}
	case data.IntKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: s.String()}
	case data.FloatKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s.String()}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Str}
	}
}

// scalarOf compares non-scalar values by their text.
func scalarOf(v data.Value) data.Scalar {
	if v.Kind == data.ScalarValue {
		return v.Scalar
	}
	return data.String(v.String())
}

func fieldScalar(r data.Record, field string) data.Scalar {
	v, ok := r.Get(field)
	if !ok {
		return data.Null()
	}
	return scalarOf(v)
}

package data

import (
	"encoding/json"
	"strings"
	"testing"

	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appsTable() *Table {
	return NewTable(
		[]string{"app_id", "label"},
		[]Record{
			NewRecord(NewField("app_id", Text("notepad")), NewField("label", Text("Notepad"))),
			NewRecord(NewField("app_id", Text("terminal")), NewField("label", Text("Terminal"))),
		},
		"apps list",
	)
}

func TestShapes(t *testing.T) {
	tests := []struct {
		name string
		data Data
		want Shape
	}{
		{"empty", Empty(), ShapeEmpty},
		{"scalar value", FromValue(ScalarOf(Int(3))), ShapeScalar},
		{"record value", FromValue(RecordOf(NewRecord())), ShapeRecord},
		{"list value", FromValue(ListOf(Text("a"))), ShapeList},
		{"record", FromRecord(NewRecord()), ShapeRecord},
		{"list", FromList(nil), ShapeList},
		{"table", FromTable(appsTable()), ShapeTable},
		{"nil table", FromTable(nil), ShapeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.data.Shape())
		})
	}
}

func TestInputContractValidate(t *testing.T) {
	record := FromRecord(NewRecord(NewField("a", Text("b"))))
	tbl := FromTable(appsTable())

	t.Run("none rejects piped data", func(t *testing.T) {
		err := NoInput().Validate(record)
		require.Error(t, err)
		assert.Equal(t, "command does not accept piped input", err.Error())
		assert.True(t, shellerrors.IsKind(err, shellerrors.Usage))
		assert.NoError(t, NoInput().Validate(Empty()))
	})

	t.Run("any accepts everything", func(t *testing.T) {
		for _, d := range []Data{Empty(), record, tbl} {
			assert.NoError(t, AnyInput().Validate(d))
		}
		assert.Equal(t, AnyInput(), Accepts(ShapeAny))
	})

	t.Run("table contract", func(t *testing.T) {
		contract := Accepts(ShapeTable)
		assert.NoError(t, contract.Validate(Empty()))
		assert.NoError(t, contract.Validate(tbl))

		err := contract.Validate(record)
		require.Error(t, err)
		assert.True(t, shellerrors.IsKind(err, shellerrors.Usage))
		assert.Equal(t, "expected table input, got record", err.Error())
	})
}

func TestRenderTable(t *testing.T) {
	rows := []Record{
		NewRecord(NewField("name", Text("alpha")), NewField("size", ScalarOf(Int(12)))),
		NewRecord(NewField("name", Text("beta"))),
	}
	out := RenderTable([]string{"name", "size"}, rows)

	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "\x1b[1m", "header row is bold")

	lines := strings.Split(out, "\n")
	require.NotEmpty(t, lines)
	width := len([]rune(lines[0]))
	for _, line := range lines {
		if !strings.Contains(line, "\x1b") {
			assert.Equal(t, width, len([]rune(line)), "fixed width: %q", line)
		}
	}

	assert.Equal(t, out, RenderTable([]string{"name", "size"}, rows), "deterministic")
	assert.Equal(t, "", RenderTable(nil, rows))
}

func TestTableHelpers(t *testing.T) {
	tbl := appsTable()
	assert.Equal(t, RenderTable(tbl.Columns, tbl.Rows), tbl.Fallback)

	col := tbl.Column("label")
	require.Len(t, col, 2)
	assert.Equal(t, "Terminal", col[1].String())

	trimmed := tbl.WithRows(tbl.Rows[:1])
	assert.Len(t, trimmed.Rows, 1)
	assert.Len(t, tbl.Rows, 2, "source table untouched")
	assert.NotContains(t, trimmed.Fallback, "Terminal")
}

func TestValidateRows(t *testing.T) {
	tbl := appsTable()
	violations, err := tbl.ValidateRows()
	require.NoError(t, err)
	assert.Empty(t, violations, "no schema")

	tbl.Rows = append(tbl.Rows, NewRecord(NewField("label", ScalarOf(Int(7)))))
	tbl.Schema = map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"app_id"},
		"properties": map[string]interface{}{
			"app_id": map[string]interface{}{"type": "string"},
			"label":  map[string]interface{}{"type": "string"},
		},
	}

	violations, err = tbl.ValidateRows()
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].Row)
}

func TestCompareScalar(t *testing.T) {
	assert.Equal(t, -1, CompareScalar(Int(2), Float(2.5)))
	assert.Equal(t, 0, CompareScalar(Int(2), Float(2)))
	assert.Equal(t, 1, CompareScalar(String("b"), String("a")))
	assert.Equal(t, -1, CompareScalar(Null(), Int(0)))
	assert.Equal(t, -1, CompareScalar(Bool(false), Bool(true)))
}

func TestRecordOperations(t *testing.T) {
	r := NewRecord(NewField("a", ScalarOf(Int(1))), NewField("b", Text("x")))
	r.Set("a", ScalarOf(Int(2)))
	r.Set("c", ScalarOf(Bool(true)))

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Scalar.Int)
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.Equal(t, []string{"c", "a"}, r.Select([]string{"c", "missing", "a"}).Names())
	assert.Equal(t, "{a: 2, b: x, c: true}", r.String())
}

func TestDataJSON(t *testing.T) {
	raw, err := json.Marshal(FromRecord(NewRecord(
		NewField("z", ScalarOf(Int(1))),
		NewField("a", ListOf(Text("x"), ScalarOf(Null()))),
	)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"record","shape":"record","value":{"z":1,"a":["x",null]}}`, string(raw))
	assert.True(t, strings.Index(string(raw), `"z"`) < strings.Index(string(raw), `"a"`), "field order kept")

	raw, err = json.Marshal(FromTable(NewTable([]string{"n"}, nil, "")))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rows":[]`)

	raw, err = json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"empty","shape":"empty"}`, string(raw))
}

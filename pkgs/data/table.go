package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Table is a list of rows with a column order for display. Rows are
// addressed by field name and need not match Columns exactly.
type Table struct {
	Columns []string
	Rows    []Record
	// Schema is an optional JSON schema every row should satisfy.
	Schema map[string]interface{}
	// Fallback is plain-text rendering for presentation layers without
	// table support.
	Fallback string
	// Source is the canonical path of the command that produced the table.
	Source string
}

// NewTable builds a table and computes its fallback text.
func NewTable(columns []string, rows []Record, source string) *Table {
	return &Table{
		Columns:  columns,
		Rows:     rows,
		Fallback: RenderTable(columns, rows),
		Source:   source,
	}
}

// WithRows returns a copy of t holding rows, with fallback text recomputed.
func (t *Table) WithRows(rows []Record) *Table {
	out := *t
	out.Rows = rows
	out.Fallback = RenderTable(out.Columns, rows)
	return &out
}

// Column returns the named field of every row that has it.
func (t *Table) Column(name string) []Value {
	values := make([]Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v, ok := row.Get(name); ok {
			values = append(values, v)
		}
	}
	return values
}

// The renderer writes nowhere and has a fixed profile so the output depends
// only on the table contents, not on the terminal running the process.
var tableRenderer = func() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	return r
}()

// RenderTable draws columns and rows as a fixed-width box with a bold
// header row. Missing fields render as blank cells. A table without
// columns has no fallback text.
func RenderTable(columns []string, rows []Record) string {
	if len(columns) == 0 {
		return ""
	}

	headerStyle := tableRenderer.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := tableRenderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableRenderer.NewStyle()).
		Headers(columns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row.Get(col); ok {
				cells[i] = v.String()
			}
		}
		t.Row(cells...)
	}

	return t.String()
}

// RowViolation describes one row that failed schema validation.
type RowViolation struct {
	Row     int
	Message string
}

// ValidateRows checks every row against the table's schema. A table without
// a schema has no violations. The error is non-nil only when the schema
// itself cannot be compiled.
func (t *Table) ValidateRows() ([]RowViolation, error) {
	if len(t.Schema) == 0 {
		return nil, nil
	}

	schemaJSON, err := json.Marshal(t.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal table schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const url = "schema://table-row.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load table schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile table schema: %w", err)
	}

	var violations []RowViolation
	for i, row := range t.Rows {
		doc, err := jsonDocument(row)
		if err != nil {
			return nil, err
		}
		if err := schema.Validate(doc); err != nil {
			violations = append(violations, RowViolation{Row: i, Message: err.Error()})
		}
	}
	return violations, nil
}

// jsonDocument round-trips a record through JSON so the validator sees the
// same types a JSON decoder would produce.
func jsonDocument(row Record) (interface{}, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return doc, nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	"github.com/aledsdavies/pipeshell/pkgs/engine"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

// shouldUseColor determines if color output should be used for w.
// Respects --no-color flag and NO_COLOR environment variable.
func shouldUseColor(noColorFlag bool, w io.Writer) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// renderer prints session events for a terminal. Notices and progress are
// written as they arrive; only the final data of an execution is printed,
// when it completes.
type renderer struct {
	w        io.Writer
	useColor bool

	errorStyle lipgloss.Style
	warnStyle  lipgloss.Style
	hintStyle  lipgloss.Style
	dimStyle   lipgloss.Style
	boldStyle  lipgloss.Style

	mu   sync.Mutex
	last map[uint64]engine.Event
}

func newRenderer(w io.Writer, useColor bool) *renderer {
	lr := lipgloss.NewRenderer(w)
	if !useColor {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &renderer{
		w:          w,
		useColor:   useColor,
		errorStyle: lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warnStyle:  lr.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		hintStyle:  lr.NewStyle().Foreground(lipgloss.Color("3")),
		dimStyle:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		boldStyle:  lr.NewStyle().Bold(true),
		last:       make(map[uint64]engine.Event),
	}
}

func (r *renderer) render(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case engine.EventNotice:
		_, _ = fmt.Fprintf(r.w, "%s%s\n", r.noticePrefix(ev.Level), ev.Message)

	case engine.EventProgress:
		pct := " .. "
		if ev.Progress != nil {
			pct = fmt.Sprintf("%3.0f%%", *ev.Progress*100)
		}
		line := "[" + pct + "]"
		if ev.Label != "" {
			line += " " + ev.Label
		}
		_, _ = fmt.Fprintln(r.w, r.dimStyle.Render(line))

	case engine.EventData:
		r.last[ev.ExecutionID] = ev

	case engine.EventCancelled:
		_, _ = fmt.Fprintln(r.w, r.dimStyle.Render("Cancelled"))

	case engine.EventCompleted:
		if last, ok := r.last[ev.ExecutionID]; ok {
			delete(r.last, ev.ExecutionID)
			if out := r.formatData(last.Payload, last.Display); out != "" {
				_, _ = fmt.Fprint(r.w, ensureNewline(out))
			}
		}
	}
}

func (r *renderer) noticePrefix(level registry.NoticeLevel) string {
	switch level {
	case registry.Error:
		return r.errorStyle.Render("Error: ")
	case registry.Warning:
		return r.warnStyle.Render("Warning: ")
	default:
		return r.hintStyle.Render("Hint: ")
	}
}

func (r *renderer) formatData(d data.Data, hint data.DisplayHint) string {
	if d.IsEmpty() {
		return ""
	}
	if hint == data.DisplayHelp {
		if rec, ok := d.AsRecord(); ok {
			return r.formatHelp(rec)
		}
	}

	switch d.Kind {
	case data.KindTable:
		out := d.Table.Fallback
		if out == "" {
			out = data.RenderTable(d.Table.Columns, d.Table.Rows)
		}
		if !r.useColor {
			out = ansi.Strip(out)
		}
		return out
	case data.KindRecord:
		return formatRecord(d.Record)
	case data.KindList:
		lines := make([]string, len(d.List))
		for i, v := range d.List {
			lines[i] = v.String()
		}
		return strings.Join(lines, "\n")
	default:
		if rec, ok := d.AsRecord(); ok {
			return formatRecord(rec)
		}
		return d.Value.String()
	}
}

func formatRecord(rec data.Record) string {
	width := 0
	for _, f := range rec.Fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	var b strings.Builder
	for _, f := range rec.Fields {
		_, _ = fmt.Fprintf(&b, "%-*s  %s\n", width+1, f.Name+":", f.Value.String())
	}
	return b.String()
}

// formatHelp lays out a command help record.
func (r *renderer) formatHelp(rec data.Record) string {
	text := func(name string) string {
		v, ok := rec.Get(name)
		if !ok {
			return ""
		}
		return v.String()
	}
	list := func(name string) []data.Value {
		v, ok := rec.Get(name)
		if !ok || v.Kind != data.ListValue {
			return nil
		}
		return v.List
	}

	var b strings.Builder
	b.WriteString(r.boldStyle.Render(text("command")))
	if s := text("summary"); s != "" {
		b.WriteString(" - " + s)
	}
	b.WriteString("\n")
	if u := text("usage"); u != "" {
		b.WriteString("\nUsage: " + u + "\n")
	}
	if d := text("description"); d != "" {
		b.WriteString("\n" + d + "\n")
	}

	if aliases := list("aliases"); len(aliases) > 0 {
		names := make([]string, len(aliases))
		for i, a := range aliases {
			names[i] = a.String()
		}
		b.WriteString("\nAliases: " + strings.Join(names, ", ") + "\n")
	}

	field := func(item data.Record, name string) string {
		v, _ := item.Get(name)
		return v.String()
	}
	section := func(title string, items []data.Value, left func(data.Record) string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n" + title + ":\n")
		for _, item := range items {
			if item.Kind != data.RecordValue {
				continue
			}
			line := "  " + left(item.Record)
			if s := field(item.Record, "summary"); s != "" {
				line += "  " + r.dimStyle.Render(s)
			}
			b.WriteString(line + "\n")
		}
	}
	section("Arguments", list("args"), func(a data.Record) string { return field(a, "name") })
	section("Options", list("options"), func(o data.Record) string {
		flag := "--" + field(o, "name")
		if short, ok := o.Get("short"); ok && short.Scalar.Kind == data.StringKind && short.Scalar.Str != "" {
			flag += ", -" + short.Scalar.Str
		}
		return flag
	})
	section("Examples", list("examples"), func(e data.Record) string { return field(e, "command") })
	return b.String()
}

// formatError writes a non-session error, such as a config failure.
func formatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}
	r := newRenderer(w, useColor)
	_, _ = fmt.Fprintf(w, "%s%s\n", r.errorStyle.Render("Error: "), err.Error())
	if hint := shellerrors.Suggestion(err); hint != "" {
		_, _ = fmt.Fprintf(w, "%sdid you mean `%s`?\n", r.hintStyle.Render("Hint: "), hint)
	}
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

package registry

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/data"
)

// ScopeKind is which caller context a command is registered for.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeApp
	ScopeWindow
)

// Scope is a registration-time claim. The registrar authorizes it; the
// resolver only uses it for precedence.
type Scope struct {
	Kind     ScopeKind
	AppID    string
	WindowID string
}

func GlobalScope() Scope          { return Scope{Kind: ScopeGlobal} }
func AppScope(appID string) Scope { return Scope{Kind: ScopeApp, AppID: appID} }
func WindowScope(id string) Scope { return Scope{Kind: ScopeWindow, WindowID: id} }

// Rank orders scopes for resolution: Window 3, App 2, Global 1.
func (s Scope) Rank() int {
	switch s.Kind {
	case ScopeWindow:
		return 3
	case ScopeApp:
		return 2
	default:
		return 1
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeWindow:
		return fmt.Sprintf("window(%s)", s.WindowID)
	case ScopeApp:
		return fmt.Sprintf("app(%s)", s.AppID)
	default:
		return "global"
	}
}

// Visibility controls whether a command is listed and enumerated for
// completion. Hidden commands still resolve.
type Visibility int

const (
	Public Visibility = iota
	Hidden
)

// ArgSpec documents one positional argument.
type ArgSpec struct {
	Name       string
	Summary    string
	Required   bool
	Repeatable bool
}

// OptionSpec documents one named option.
type OptionSpec struct {
	Name       string
	Short      rune
	Summary    string
	TakesValue bool
}

// Example is one usage example shown in help.
type Example struct {
	Command string
	Summary string
}

// Help is the descriptive metadata of a command.
type Help struct {
	Summary     string
	Description string
	Usage       string
	Examples    []Example
}

// Descriptor is the identity and contract of a command.
type Descriptor struct {
	ID         string
	Path       []string
	Aliases    [][]string
	Scope      Scope
	Visibility Visibility
	Args       []ArgSpec
	Options    []OptionSpec
	Input      data.InputContract
	Output     data.Shape
	Help       Help
}

// CanonicalPath joins the path segments with single spaces.
func (d Descriptor) CanonicalPath() string {
	return strings.Join(d.Path, " ")
}

// Candidates returns every token sequence that invokes the command: its
// path followed by each alias.
func (d Descriptor) Candidates() [][]string {
	out := make([][]string, 0, 1+len(d.Aliases))
	out = append(out, d.Path)
	for _, alias := range d.Aliases {
		if len(alias) > 0 {
			out = append(out, alias)
		}
	}
	return out
}

// UsageLine returns the declared usage or one derived from the path, args
// and options.
func (d Descriptor) UsageLine() string {
	if d.Help.Usage != "" {
		return d.Help.Usage
	}

	parts := []string{d.CanonicalPath()}
	for _, opt := range d.Options {
		flag := "--" + opt.Name
		if opt.TakesValue {
			flag += " <value>"
		}
		parts = append(parts, "["+flag+"]")
	}
	for _, arg := range d.Args {
		name := arg.Name
		if arg.Repeatable {
			name += "..."
		}
		if arg.Required {
			parts = append(parts, "<"+name+">")
		} else {
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// HelpRecord renders the descriptor's help as structured data.
func (d Descriptor) HelpRecord() data.Record {
	aliases := make([]data.Value, 0, len(d.Aliases))
	for _, alias := range d.Aliases {
		aliases = append(aliases, data.Text(strings.Join(alias, " ")))
	}

	args := make([]data.Value, 0, len(d.Args))
	for _, arg := range d.Args {
		args = append(args, data.RecordOf(data.NewRecord(
			data.NewField("name", data.Text(arg.Name)),
			data.NewField("summary", data.Text(arg.Summary)),
			data.NewField("required", data.ScalarOf(data.Bool(arg.Required))),
		)))
	}

	options := make([]data.Value, 0, len(d.Options))
	for _, opt := range d.Options {
		short := data.Null()
		if opt.Short != 0 {
			short = data.String(string(opt.Short))
		}
		options = append(options, data.RecordOf(data.NewRecord(
			data.NewField("name", data.Text(opt.Name)),
			data.NewField("short", data.ScalarOf(short)),
			data.NewField("summary", data.Text(opt.Summary)),
		)))
	}

	examples := make([]data.Value, 0, len(d.Help.Examples))
	for _, ex := range d.Help.Examples {
		examples = append(examples, data.RecordOf(data.NewRecord(
			data.NewField("command", data.Text(ex.Command)),
			data.NewField("summary", data.Text(ex.Summary)),
		)))
	}

	return data.NewRecord(
		data.NewField("command", data.Text(d.CanonicalPath())),
		data.NewField("summary", data.Text(d.Help.Summary)),
		data.NewField("description", data.Text(d.Help.Description)),
		data.NewField("usage", data.Text(d.UsageLine())),
		data.NewField("aliases", data.ListOf(aliases...)),
		data.NewField("args", data.ListOf(args...)),
		data.NewField("options", data.ListOf(options...)),
		data.NewField("input", data.Text(d.Input.String())),
		data.NewField("output", data.Text(d.Output.String())),
		data.NewField("examples", data.ListOf(examples...)),
	)
}

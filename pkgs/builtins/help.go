package builtins

import (
	"context"
	"sort"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/lexer"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
)

type catalog interface {
	Descriptors() []registry.Descriptor
}

func helpCommands(c catalog) []command {
	return []command{
		{
			desc: registry.Descriptor{
				Path:   []string{"help"},
				Input:  data.NoInput(),
				Output: data.ShapeTable,
				Help: registry.Help{
					Summary:  "List available commands",
					Examples: []registry.Example{{Command: "help", Summary: "show every public command"}},
				},
			},
			handler: func(context.Context, *registry.ExecutionContext) (registry.Result, error) {
				return registry.TableResult(commandTable(c.Descriptors())), nil
			},
		},
		{
			desc: registry.Descriptor{
				Path:   []string{"help", "show"},
				Args:   []registry.ArgSpec{{Name: "command", Summary: "command path", Required: true, Repeatable: true}},
				Input:  data.NoInput(),
				Output: data.ShapeRecord,
				Help: registry.Help{
					Summary:  "Show help for one command",
					Examples: []registry.Example{{Command: "help show data sort", Summary: "describe data sort"}},
				},
			},
			completion: func(_ context.Context, req registry.CompletionRequest) ([]registry.CompletionItem, error) {
				return completePaths(c.Descriptors(), req), nil
			},
			handler: func(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
				if len(ec.Args) == 0 {
					return registry.Result{}, shellerrors.Usagef("usage: %s", ec.Descriptor.UsageLine())
				}
				path := strings.Join(ec.Args, " ")
				for _, d := range c.Descriptors() {
					if matchesPath(d, path) {
						out := data.FromRecord(d.HelpRecord())
						return registry.Result{Output: out, Display: data.DisplayHelp}, nil
					}
				}
				return registry.Result{}, shellerrors.NewCommandNotFoundError(path, "")
			},
		},
	}
}

func matchesPath(d registry.Descriptor, path string) bool {
	for _, cand := range d.Candidates() {
		if strings.Join(cand, " ") == path {
			return true
		}
	}
	return false
}

// commandTable lists descriptors with their aliases and summaries.
func commandTable(descs []registry.Descriptor) *data.Table {
	rows := make([]data.Record, 0, len(descs))
	for _, d := range descs {
		aliases := make([]string, 0, len(d.Aliases))
		for _, a := range d.Aliases {
			aliases = append(aliases, strings.Join(a, " "))
		}
		rows = append(rows, data.NewRecord(
			data.NewField("command", data.Text(d.CanonicalPath())),
			data.NewField("aliases", data.Text(strings.Join(aliases, ", "))),
			data.NewField("summary", data.Text(d.Help.Summary)),
		))
	}
	return data.NewTable([]string{"command", "aliases", "summary"}, rows, "help")
}

// completePaths offers the next path segment of the command named by the
// words after "help show" in the last stage of the line.
func completePaths(descs []registry.Descriptor, req registry.CompletionRequest) []registry.CompletionItem {
	tokens, err := lexer.Tokenize(req.Line)
	if err != nil {
		return nil
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type == lexer.PIPE {
			tokens = tokens[i+1:]
			break
		}
	}
	if len(tokens) < 2 {
		return nil
	}

	words := lexer.Words(tokens[2:])
	partial := ""
	if n := len(tokens); n > 2 && tokens[n-1].End == len(req.Line) {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}

	seen := make(map[string]bool)
	var items []registry.CompletionItem
	for _, d := range descs {
		if len(d.Path) <= len(words) || !hasPrefix(d.Path, words) {
			continue
		}
		seg := d.Path[len(words)]
		if seen[seg] || !strings.HasPrefix(seg, partial) {
			continue
		}
		seen[seg] = true
		detail := ""
		if len(d.Path) == len(words)+1 {
			detail = d.Help.Summary
		}
		items = append(items, registry.CompletionItem{Value: seg, Label: seg, Detail: detail})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func hasPrefix(path, prefix []string) bool {
	for i, p := range prefix {
		if path[i] != p {
			return false
		}
	}
	return true
}

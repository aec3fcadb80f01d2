package builtins

import (
	"context"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
)

func historyCommands(h HistoryReader, limit int) []command {
	return []command{{
		desc: registry.Descriptor{
			Path:   []string{"history", "list"},
			Args:   []registry.ArgSpec{{Name: "count"}},
			Input:  data.NoInput(),
			Output: data.ShapeTable,
			Help:   registry.Help{Summary: "List recently submitted lines, oldest first"},
		},
		handler: func(ctx context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
			n := limit
			switch len(ec.Invocation.Values) {
			case 0:
			case 1:
				lit := ec.Invocation.Values[0].Literal
				if lit.Kind != data.IntKind || lit.Int <= 0 {
					return registry.Result{}, shellerrors.Usagef("count must be a positive integer, got %s", lit.String())
				}
				n = int(lit.Int)
			default:
				return registry.Result{}, usage(ec)
			}

			entries, err := h.Recent(ctx, n)
			if err != nil {
				return registry.Result{}, shellerrors.Wrap(shellerrors.Unavailable, "read history", err)
			}

			rows := make([]data.Record, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, data.NewRecord(
					data.NewField("id", data.ScalarOf(data.Int(e.ID))),
					data.NewField("time", data.Text(e.StartedAt.UTC().Format(time.RFC3339))),
					data.NewField("line", data.Text(e.Line)),
					data.NewField("exit", data.ScalarOf(data.Int(int64(e.ExitCode)))),
				))
			}
			return registry.TableResult(data.NewTable([]string{"id", "time", "line", "exit"}, rows, "history list")), nil
		},
	}}
}

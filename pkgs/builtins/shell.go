package builtins

import (
	"context"
	"path"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
)

func shellCommands() []command {
	return []command{
		{
			desc: registry.Descriptor{
				Path:   []string{"pwd"},
				Input:  data.NoInput(),
				Output: data.ShapeRecord,
				Help:   registry.Help{Summary: "Print the working directory"},
			},
			handler: pwd,
		},
		{
			desc: registry.Descriptor{
				Path:    []string{"cd"},
				Aliases: [][]string{{"chdir"}},
				Args:    []registry.ArgSpec{{Name: "path", Summary: "absolute or relative directory"}},
				Input:   data.NoInput(),
				Output:  data.ShapeEmpty,
				Help: registry.Help{
					Summary: "Change the working directory",
					Examples: []registry.Example{
						{Command: "cd /home", Summary: "go to /home"},
						{Command: "cd ..", Summary: "go up one level"},
					},
				},
			},
			handler: cd,
		},
		{
			desc: registry.Descriptor{
				Path:       []string{"sleep"},
				Visibility: registry.Hidden,
				Args:       []registry.ArgSpec{{Name: "ms", Summary: "milliseconds", Required: true}},
				Input:      data.NoInput(),
				Output:     data.ShapeEmpty,
				Help:       registry.Help{Summary: "Wait, reporting progress, until done or cancelled"},
			},
			handler: sleep,
		},
	}
}

func pwd(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	return registry.Output(data.FromRecord(data.NewRecord(data.NewField("cwd", data.Text(ec.Cwd))))), nil
}

// cd resolves its argument against the current directory. No argument goes
// to the root.
func cd(_ context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Args) > 1 {
		return registry.Result{}, shellerrors.Usagef("usage: %s", ec.Descriptor.UsageLine())
	}

	target := "/"
	if len(ec.Args) == 1 {
		target = ec.Args[0]
	}
	if !path.IsAbs(target) {
		target = path.Join(ec.Cwd, target)
	}
	target = path.Clean(target)

	return registry.Result{Cwd: &target}, nil
}

const sleepTick = 10 * time.Millisecond

func sleep(ctx context.Context, ec *registry.ExecutionContext) (registry.Result, error) {
	if len(ec.Invocation.Values) != 1 || ec.Invocation.Values[0].Literal.Kind != data.IntKind || ec.Invocation.Values[0].Literal.Int < 0 {
		return registry.Result{}, shellerrors.Usagef("usage: sleep <ms>")
	}
	total := time.Duration(ec.Invocation.Values[0].Literal.Int) * time.Millisecond

	ticker := time.NewTicker(sleepTick)
	defer ticker.Stop()

	start := time.Now()
	reported := -1
	for {
		elapsed := time.Since(start)
		if elapsed >= total {
			done := 1.0
			ec.Progress(&done, "done")
			return registry.Result{}, nil
		}
		if ec.Cancelled() {
			return registry.Result{}, context.Canceled
		}
		// Report in tenths.
		if step := int(10 * elapsed / total); step > reported {
			reported = step
			fraction := float64(step) / 10
			ec.Progress(&fraction, "")
		}

		select {
		case <-ctx.Done():
			return registry.Result{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/aledsdavies/pipeshell/pkgs/metrics"
	"github.com/aledsdavies/pipeshell/pkgs/observer"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	debug      bool
	noColor    bool
}

// exitCode carries a pipeline's exit code out of cobra.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &options{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	var code exitCode
	switch {
	case err == nil:
		return 0
	case errors.As(err, &code):
		return int(code)
	default:
		formatError(stderr, err, shouldUseColor(opts.noColor, stderr))
		return 1
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "pipeshell",
		Short:         "A shell whose commands pipe structured data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default $HOME/.config/pipeshell/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug output")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newRunCmd(opts), newReplCmd(opts), newServeCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <line>",
		Short: "Run one line and exit with its code",
		Long:  "Run one line and exit with its code. Several arguments are joined with spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			s := a.engine.NewSession(a.cfg.Shell.Cwd)
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := newRenderer(cmd.OutOrStdout(), shouldUseColor(opts.noColor, cmd.OutOrStdout()))
			if code := runLine(ctx, s, out, strings.Join(args, " "), "cli"); code != 0 {
				return exitCode(code)
			}
			return nil
		},
	}
}

func newReplCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read lines interactively, recording history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			a.recordHistory()

			s := a.engine.NewSession(a.cfg.Shell.Cwd)
			defer s.Close()

			out := newRenderer(cmd.OutOrStdout(), shouldUseColor(opts.noColor, cmd.OutOrStdout()))
			return repl(cmd.Context(), s, a.cfg.Shell.Prompt, cmd.InOrStdin(), out)
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a shell whose events are streamed over WebSocket, with Prometheus metrics",
		Long: "Serve the event stream at ws://<observer.addr>/events and metrics at " +
			"http://<metrics.addr>/metrics, reading lines from stdin until it closes " +
			"and then serving until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			a.recordHistory()

			rec := metrics.New(true)
			obs := observer.NewServer(a.logger)
			a.engine.AddSessionHook(func(s *engine.Session) {
				rec.Attach(s)
				obs.Attach(s)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			eventsMux := http.NewServeMux()
			eventsMux.Handle("/events", obs)
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", rec.Handler())

			servers := []*http.Server{
				{Addr: a.cfg.Observer.Addr, Handler: eventsMux, ReadHeaderTimeout: 10 * time.Second},
				{Addr: a.cfg.Metrics.Addr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second},
			}
			errCh := make(chan error, len(servers))
			for _, srv := range servers {
				go func() {
					a.logger.Info().Str("addr", srv.Addr).Msg("listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
					}
				}()
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				for _, srv := range servers {
					_ = srv.Shutdown(shutdownCtx)
				}
			}()

			s := a.engine.NewSession(a.cfg.Shell.Cwd)
			defer s.Close()

			out := newRenderer(cmd.OutOrStdout(), shouldUseColor(opts.noColor, cmd.OutOrStdout()))
			replDone := make(chan error, 1)
			go func() { replDone <- repl(ctx, s, a.cfg.Shell.Prompt, cmd.InOrStdin(), out) }()

			for {
				select {
				case err := <-errCh:
					return err
				case err := <-replDone:
					if err != nil {
						return err
					}
					replDone = nil
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
}

// repl reads lines from in until EOF, "exit" or ctx being done. An
// interrupt while a line runs cancels that line only.
func repl(ctx context.Context, s *engine.Session, prompt string, in io.Reader, out *renderer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	for {
		_, _ = fmt.Fprint(out.w, prompt)

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out.w)
				return <-readErr
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return nil
		}

		// An interrupt at the prompt does nothing.
		select {
		case <-interrupts:
		default:
		}

		lineCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-interrupts:
				cancel()
			case <-lineCtx.Done():
			}
		}()
		runLine(lineCtx, s, out, line, "repl")
		cancel()
	}
}

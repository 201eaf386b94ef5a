package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/engine"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/runtime"
	"github.com/roach88/weft/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Data     string
	Database string
	Output   string
	Watch    bool

	// Sessions overrides the session token source (for testing).
	// If nil, defaults to runtime.UUIDv7Generator.
	Sessions runtime.SessionGenerator
}

// RenderResult is the outcome of one render.
type RenderResult struct {
	Session     string                 `json:"session"`
	Seeds       seedSource             `json:"seeds"`
	Collections map[string][]ir.Record `json:"collections"`
	Diagnostics []runtime.Diagnostic   `json:"diagnostics"`
	HTML        string                 `json:"html"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <page.html>",
		Short: "Render a page's bound containers",
		Long: `Load a page, initialize its typed elements and render every bound
container from the initial data.

Initial data comes from --data (.cue, .yaml, .yml or .json). With --db,
every seed is journaled, and a journal that already holds a session
seeds the page from that session's final state instead.

With --watch the page is re-rendered whenever it or the data file
changes, until interrupted. Once the data file changes, it seeds every
later render; the journal keeps recording each one as a new session.

Examples:
  weft render page.html --data data.yaml
  weft render page.html --data data.cue -o out.html
  weft render page.html --db ./weft.db --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "initial data file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write HTML to this file")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-render on file changes")

	return cmd
}

func runRender(opts *RenderOptions, page string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	if !opts.Watch {
		return renderAndReport(parentCtx, opts, page, journalFirst, formatter)
	}

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndRender(ctx, opts, page, formatter)
}

func renderAndReport(ctx context.Context, opts *RenderOptions, page string, order seedOrder, formatter *OutputFormatter) error {
	res, err := renderPage(ctx, opts, page, order)
	if err != nil {
		return exitForLoad(err)
	}
	formatter.VerboseLog("Rendered %s (session %s, seeds from %s)", page, res.Session, res.Seeds.Kind)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(res.HTML), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	return formatter.Success(res, func(w io.Writer) {
		if opts.Output == "" {
			fmt.Fprintln(w, res.HTML)
		} else {
			fmt.Fprintf(w, "Wrote %s\n", opts.Output)
		}
		writeDiagnostics(w, res.Diagnostics)
	})
}

// renderPage performs one full load of page.
func renderPage(ctx context.Context, opts *RenderOptions, page string, order seedOrder) (*RenderResult, error) {
	doc, err := loadPage(page)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	st, err := openJournal(opts.Database, false)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}

	seeds, src, err := loadSeeds(ctx, st, opts.Data, nil, order)
	if err != nil {
		return nil, err
	}

	rtOpts, err := journalOptions(ctx, st, opts.Sessions)
	if err != nil {
		return nil, err
	}
	rt := runtime.New(doc, reg, seeds, rtOpts...)
	if err := rt.Load(ctx); err != nil {
		return nil, err
	}

	out, err := rt.Render()
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Session:     rt.Session(),
		Seeds:       src,
		Collections: rt.Snapshot(),
		Diagnostics: rt.Diagnostics(),
		HTML:        out,
	}, nil
}

// journalOptions wires a journal into a runtime, resuming its clock after
// the last journaled seq so seqs stay strictly increasing across runs.
func journalOptions(ctx context.Context, st *store.Store, sessions runtime.SessionGenerator) ([]runtime.Option, error) {
	var opts []runtime.Option
	if sessions != nil {
		opts = append(opts, runtime.WithSessions(sessions))
	}
	if st == nil {
		return opts, nil
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeJournal, Message: err.Error()}
	}
	return append(opts,
		runtime.WithJournal(st),
		runtime.WithClock(engine.NewClockAt(last)),
	), nil
}

// watchAndRender renders once, then again after each change to the page
// or data file. Events are batched so one editor save renders once.
func watchAndRender(ctx context.Context, opts *RenderOptions, page string, formatter *OutputFormatter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()

	// Watch directories: editors often replace files rather than write them.
	// The value marks the data file.
	watched := map[string]bool{}
	for _, path := range []string{page, opts.Data} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve path", err)
		}
		watched[abs] = path == opts.Data
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch "+path, err)
		}
	}

	// The first render resumes from the journal. After the data file is
	// edited, the edit is what the user wants to see.
	order := journalFirst
	render := func() {
		if err := renderAndReport(ctx, opts, page, order, formatter); err != nil {
			// A broken intermediate save should not end the watch.
			slog.Error("render failed", "page", page, "error", err)
		}
	}
	render()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped", "page", page)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			isData, ok := watched[abs]
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("watched file changed", "path", event.Name, "op", event.Op.String())
				pending = true
				if isData {
					order = dataFirst
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-ticker.C:
			if pending {
				pending = false
				render()
			}
		}
	}
}

func writeDiagnostics(w io.Writer, diags []runtime.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "! %s\n", d)
	}
}

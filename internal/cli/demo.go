package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/demo/todo"
	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/runtime"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Add      []string
	Delete   []string
	Database string
	HTML     bool

	// Sessions overrides the session token source (for testing).
	Sessions runtime.SessionGenerator
}

// DemoResult is the state of the todo list after the requested edits.
type DemoResult struct {
	Session     string               `json:"session"`
	Seeds       seedSource           `json:"seeds"`
	Items       []ir.Record          `json:"items"`
	Diagnostics []runtime.Diagnostic `json:"diagnostics"`
	HTML        string               `json:"html,omitempty"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in todo list",
		Long: `Load the built-in todo page, then delete and add items by
dispatching the same click and submit events a browser would.

Deletes run first, against the items present when the page loads. Adds
run after, in order. With --db the list is journaled and the next run
continues where this one stopped.

Examples:
  weft demo
  weft demo --add "walk the dog" --add "water plants"
  weft demo --delete 1 --db ./todo.db
  weft demo --html`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Add, "add", nil, "add an item with this text (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Delete, "delete", nil, "delete the item with this id (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "print the rendered page")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	res, err := playDemo(ctx, opts)
	if err != nil {
		return exitForLoad(err)
	}

	return formatter.Success(res, func(w io.Writer) {
		if opts.HTML {
			fmt.Fprintln(w, res.HTML)
		} else {
			for _, item := range res.Items {
				fmt.Fprintf(w, "%s\t%s\n", ir.Text(item["id"]), ir.Text(item["text"]))
			}
		}
		writeDiagnostics(w, res.Diagnostics)
	})
}

// playDemo loads the todo page and feeds the requested edits through the
// runtime's event loop.
func playDemo(ctx context.Context, opts *DemoOptions) (*DemoResult, error) {
	doc, err := todo.Parse()
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	manifest, err := todo.Manifest()
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

	seeds, src, err := loadSeeds(ctx, st, "", manifest.Data, journalFirst)
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

	events, err := demoEvents(doc, opts.Delete, opts.Add)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		rt.Enqueue(ev)
	}
	rt.Close()
	if err := rt.Run(ctx); err != nil {
		return nil, err
	}

	res := &DemoResult{
		Session:     rt.Session(),
		Seeds:       src,
		Items:       rt.Snapshot()[todo.Collection],
		Diagnostics: rt.Diagnostics(),
	}
	if res.Items == nil {
		res.Items = []ir.Record{}
	}
	if opts.HTML {
		if res.HTML, err = rt.Render(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// demoEvents builds the click events for deletes and the submit events for
// adds. Delete targets are resolved now, so an unknown id fails before
// anything changes.
func demoEvents(doc *html.Node, deletes, adds []string) ([]ir.Event, error) {
	var events []ir.Event
	for _, id := range deletes {
		button := deleteButton(doc, id)
		if button == nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no item with id %s", id)}
		}
		events = append(events, ir.Event{Type: "click", Target: button})
	}

	if len(adds) > 0 {
		form := dom.FindByID(doc, todo.AddFormID)
		if form == nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "page has no add form"}
		}
		for _, text := range adds {
			events = append(events, ir.Event{
				Type:   "submit",
				Target: form,
				Detail: ir.Obj(ir.O("text", ir.IRString(text))),
			})
		}
	}
	return events, nil
}

func deleteButton(doc *html.Node, id string) *html.Node {
	items := dom.FindAll(doc, func(n *html.Node) bool {
		v, ok := dom.Attr(n, dom.AttrID)
		return dom.IsElement(n) && ok && v == id
	})
	if len(items) == 0 {
		return nil
	}
	buttons := dom.FindAll(items[0], func(n *html.Node) bool {
		handler, ok := dom.HandlerFor(n, "click")
		return ok && handler == "itemDelete"
	})
	if len(buttons) == 0 {
		return nil
	}
	return buttons[0]
}

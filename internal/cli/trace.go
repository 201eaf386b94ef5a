package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database     string
	Session      string
	Collection   string
	After        int64
	Limit        int
	ListSessions bool
}

// TraceResult is the output of the trace command. Exactly one of
// Sessions and Entries is set.
type TraceResult struct {
	Session  string              `json:"session,omitempty"`
	Sessions []store.SessionInfo `json:"sessions,omitempty"`
	Entries  []ir.JournalEntry   `json:"entries,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled weave operations",
		Long: `Print the journal: one line per successful weave operation, in seq
order. Without --session the latest session is shown.

Examples:
  weft trace --db weft.db
  weft trace --db weft.db --sessions
  weft trace --db weft.db --collection list --limit 20
  weft trace --db weft.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (default: latest)")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only entries of this collection")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only entries with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to show (0 = all)")
	cmd.Flags().BoolVar(&opts.ListSessions, "sessions", false, "list sessions instead of entries")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	st, err := openJournal(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.ListSessions {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		return formatter.Success(TraceResult{Sessions: sessions}, func(w io.Writer) {
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions.")
				return
			}
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\tseq %d-%d\t%d entries\n", s.Session, s.FirstSeq, s.LastSeq, s.Entries)
			}
		})
	}

	session := opts.Session
	if session == "" {
		latest, ok, err := st.LatestSession(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		if !ok {
			return formatter.Success(TraceResult{}, func(w io.Writer) {
				fmt.Fprintln(w, "Journal is empty.")
			})
		}
		session = latest
	}

	entries, err := st.ReadEntries(ctx, store.Filter{
		Session:    session,
		Collection: opts.Collection,
		AfterSeq:   opts.After,
		Limit:      opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return formatter.Success(TraceResult{Session: session, Entries: entries}, func(w io.Writer) {
		fmt.Fprintf(w, "Session %s\n", session)
		for _, e := range entries {
			fmt.Fprintf(w, "%6d  %-6s  %-12s  %-8s  %s\n", e.Seq, e.Op, e.Collection, e.Key, ir.Text(e.Record))
		}
	})
}

package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // empty replays the latest session
}

// CollectionSummary is the replayed state of one collection.
type CollectionSummary struct {
	Count int    `json:"count"`
	Hash  string `json:"hash"`
}

// ReplayReport is the output of the replay command.
type ReplayReport struct {
	Session       string                       `json:"session"`
	Entries       int                          `json:"entries"`
	LastSeq       int64                        `json:"last_seq"`
	Deterministic bool                         `json:"deterministic"`
	Collections   map[string]CollectionSummary `json:"collections"`
	Problems      []string                     `json:"problems,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild collections from the journal and check them",
		Long: `Rebuild the collections of one journaled session and verify the
journal: every record hash must match its record, and replaying twice
must produce identical collection hashes.

Exit codes:
  0 - Journal consistent
  1 - Hash mismatch or inconsistent journal
  2 - Command error (missing database, unknown session)

Examples:
  weft replay --db weft.db
  weft replay --db weft.db --session 0192...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to replay (default: latest)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openJournal(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	session := opts.Session
	if session == "" {
		latest, ok, err := st.LatestSession(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		if !ok {
			return NewExitError(ExitCommandError, "journal is empty")
		}
		session = latest
	}

	entries, err := st.ReadEntries(ctx, store.Filter{Session: session})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(entries) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", session))
	}
	formatter.VerboseLog("Replaying %d entries of session %s", len(entries), session)

	report := ReplayReport{
		Session:     session,
		Entries:     len(entries),
		LastSeq:     entries[len(entries)-1].Seq,
		Collections: map[string]CollectionSummary{},
	}
	report.Problems = append(report.Problems, verifyRecordHashes(entries)...)

	first, err := st.ReplaySession(ctx, session)
	if err != nil {
		report.Problems = append(report.Problems, err.Error())
		return reportReplay(formatter, report)
	}
	second, err := st.ReplaySession(ctx, session)
	if err != nil {
		report.Problems = append(report.Problems, err.Error())
		return reportReplay(formatter, report)
	}

	report.Deterministic = true
	for _, name := range slices.Sorted(maps.Keys(first.Collections)) {
		records := first.Collections[name]
		h1, err := ir.CollectionHash(name, records)
		if err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		h2, err := ir.CollectionHash(name, second.Collections[name])
		if err != nil || h1 != h2 {
			report.Deterministic = false
			report.Problems = append(report.Problems, fmt.Sprintf("%s: replay is not deterministic", name))
		}
		report.Collections[name] = CollectionSummary{Count: len(records), Hash: h1}
	}

	return reportReplay(formatter, report)
}

// verifyRecordHashes recomputes the hash of every journaled record.
func verifyRecordHashes(entries []ir.JournalEntry) []string {
	var problems []string
	for _, e := range entries {
		got, err := ir.RecordHash(e.Record)
		if err != nil {
			problems = append(problems, fmt.Sprintf("seq %d: %v", e.Seq, err))
			continue
		}
		if got != e.RecordHash {
			problems = append(problems, fmt.Sprintf("seq %d: record hash mismatch (%s %s key=%s)", e.Seq, e.Op, e.Collection, e.Key))
		}
	}
	return problems
}

func reportReplay(formatter *OutputFormatter, report ReplayReport) error {
	text := func(w io.Writer) {
		fmt.Fprintf(w, "Session:  %s\n", report.Session)
		fmt.Fprintf(w, "Entries:  %d (last seq %d)\n", report.Entries, report.LastSeq)
		for _, name := range slices.Sorted(maps.Keys(report.Collections)) {
			c := report.Collections[name]
			fmt.Fprintf(w, "  %-16s %3d records  %s\n", name, c.Count, c.Hash[:12])
		}
		for _, p := range report.Problems {
			fmt.Fprintf(w, "  ✗ %s\n", p)
		}
	}

	if len(report.Problems) == 0 {
		return formatter.Success(report, func(w io.Writer) {
			text(w)
			fmt.Fprintln(w, "✓ Journal consistent")
		})
	}
	msg := fmt.Sprintf("%d journal problem(s)", len(report.Problems))
	if err := formatter.Failure(ErrCodeJournal, msg, report, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/weft/internal/ir"
)

// ReplayResult is the state of every collection a session touched, after
// applying its entries in seq order.
type ReplayResult struct {
	Session     string                 `json:"session"`
	LastSeq     int64                  `json:"last_seq"`
	Entries     int                    `json:"entries"`
	Collections map[string][]ir.Record `json:"collections"`
}

// Replay rebuilds the collections of the most recent session. An empty
// journal yields an empty result.
func (s *Store) Replay(ctx context.Context) (ReplayResult, error) {
	session, ok, err := s.LatestSession(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	if !ok {
		return ReplayResult{Collections: map[string][]ir.Record{}}, nil
	}
	return s.ReplaySession(ctx, session)
}

// ReplaySession rebuilds the collections of one session.
func (s *Store) ReplaySession(ctx context.Context, session string) (ReplayResult, error) {
	entries, err := s.ReadEntries(ctx, Filter{Session: session})
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", session, err)
	}

	collections, err := Apply(entries)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", session, err)
	}

	res := ReplayResult{
		Session:     session,
		Entries:     len(entries),
		Collections: collections,
	}
	if len(entries) > 0 {
		res.LastSeq = entries[len(entries)-1].Seq
	}

	slog.Debug("journal replayed",
		"session", session,
		"entries", res.Entries,
		"collections", len(collections),
	)
	return res, nil
}

// Apply folds entries, in the order given, into collections. The journal
// holds only successful mutations, so a duplicate insert or a delete of an
// unknown key means the journal is inconsistent and is an error.
func Apply(entries []ir.JournalEntry) (map[string][]ir.Record, error) {
	out := make(map[string][]ir.Record)
	for _, e := range entries {
		records := out[e.Collection]
		idx := slices.IndexFunc(records, func(r ir.Record) bool {
			key, ok := ir.KeyOf(r, e.KeyField)
			return ok && key == e.Key
		})

		switch e.Op {
		case ir.JournalSeed, ir.OpInsert.String():
			if idx >= 0 {
				return nil, fmt.Errorf("seq %d: %s: key %s already present", e.Seq, e.Op, e.Key)
			}
			out[e.Collection] = append(records, e.Record.Clone())
		case ir.OpDelete.String():
			if idx < 0 {
				return nil, fmt.Errorf("seq %d: delete: key %s not present", e.Seq, e.Key)
			}
			out[e.Collection] = slices.Delete(records, idx, idx+1)
		case ir.OpUpdate.String():
			if idx < 0 {
				return nil, fmt.Errorf("seq %d: update: key %s not present", e.Seq, e.Key)
			}
			records[idx] = e.Record.Clone()
		default:
			return nil, fmt.Errorf("seq %d: unknown op %q", e.Seq, e.Op)
		}
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/weft/internal/ir"
)

// Filter narrows ReadEntries. Zero fields match everything.
type Filter struct {
	Session    string
	Collection string
	AfterSeq   int64
	Limit      int
}

// ReadEntries returns journal entries matching f, ordered by seq.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadEntries(ctx context.Context, f Filter) ([]ir.JournalEntry, error) {
	query := `
		SELECT seq, session, collection, key_field, op, record_key, record, record_hash
		FROM weave_ops
		WHERE seq > ?
		  AND (? = '' OR session = ?)
		  AND (? = '' OR collection = ?)
		ORDER BY seq ASC
	`
	args := []any{f.AfterSeq, f.Session, f.Session, f.Collection, f.Collection}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.JournalEntry{}
	for rows.Next() {
		var (
			e       ir.JournalEntry
			recJSON string
		)
		if err := rows.Scan(&e.Seq, &e.Session, &e.Collection, &e.KeyField, &e.Op, &e.Key, &recJSON, &e.RecordHash); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Record, err = unmarshalRecord(recJSON); err != nil {
			return nil, fmt.Errorf("entry seq %d: %w", e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest seq in the journal, or 0 when empty.
// A restarted engine resumes its clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM weave_ops`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// LatestSession returns the session that wrote the highest seq.
// ok is false for an empty journal.
func (s *Store) LatestSession(ctx context.Context) (session string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT session FROM weave_ops ORDER BY seq DESC LIMIT 1`,
	).Scan(&session)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest session: %w", err)
	}
	return session, true, nil
}

// SessionInfo summarizes one session of the journal.
type SessionInfo struct {
	Session  string `json:"session"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
	Entries  int    `json:"entries"`
}

// Sessions lists every session in the order it started.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, MIN(seq), MAX(seq), COUNT(*)
		FROM weave_ops
		GROUP BY session
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []SessionInfo{}
	for rows.Next() {
		var si SessionInfo
		if err := rows.Scan(&si.Session, &si.FirstSeq, &si.LastSeq, &si.Entries); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/weft/internal/ir"
)

// Append writes entries in one transaction. An entry whose seq is already
// present is skipped, so retrying a batch is safe.
func (s *Store) Append(ctx context.Context, entries ...ir.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weave_ops
		(seq, session, collection, key_field, op, record_key, record, record_hash, engine_version, journal_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		recJSON, err := marshalRecord(e.Record)
		if err != nil {
			return fmt.Errorf("append seq %d: %w", e.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.Seq,
			e.Session,
			e.Collection,
			e.KeyField,
			e.Op,
			e.Key,
			recJSON,
			e.RecordHash,
			ir.EngineVersion,
			ir.JournalVersion,
		); err != nil {
			return fmt.Errorf("append seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

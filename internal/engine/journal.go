package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/weft/internal/ir"
)

func (e *Engine) journalSeed(ctx context.Context, c *container) {
	if e.journal == nil {
		return
	}
	entries := make([]ir.JournalEntry, 0, c.items.Len())
	for elem := c.items.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, e.entryFor(c, ir.JournalSeed, elem.Value.(*entry)))
	}
	e.appendJournal(ctx, c, entries)
}

func (e *Engine) journalOp(ctx context.Context, c *container, op ir.Op, ent *entry) {
	if e.journal == nil {
		return
	}
	e.appendJournal(ctx, c, []ir.JournalEntry{e.entryFor(c, op.String(), ent)})
}

func (e *Engine) entryFor(c *container, op string, ent *entry) ir.JournalEntry {
	hash, err := ir.RecordHash(ent.rec)
	if err != nil {
		slog.Warn("record hash failed", "collection", c.binding.Collection, "error", err)
	}
	return ir.JournalEntry{
		Seq:        e.clock.Next(),
		Session:    e.session,
		Collection: c.binding.Collection,
		KeyField:   c.binding.KeyField,
		Op:         op,
		Key:        ent.key,
		Record:     ent.rec.Clone(),
		RecordHash: hash,
	}
}

// appendJournal never fails the caller: the tree already changed.
func (e *Engine) appendJournal(ctx context.Context, c *container, entries []ir.JournalEntry) {
	if len(entries) == 0 {
		return
	}
	if err := e.journal.Append(ctx, entries...); err != nil {
		slog.Error("journal append failed",
			"collection", c.binding.Collection,
			"entries", len(entries),
			"first_seq", entries[0].Seq,
			"error", err,
		)
	}
}

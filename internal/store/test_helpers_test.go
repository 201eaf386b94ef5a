package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/weft/internal/ir"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func todo(id int, text string) ir.Record {
	return ir.Obj(ir.O("id", ir.IRInt(id)), ir.O("text", ir.IRString(text)))
}

// entry builds a journal entry for the "list" collection keyed by id.
func entry(seq int64, session, op string, rec ir.Record) ir.JournalEntry {
	key, _ := ir.KeyOf(rec, "id")
	return ir.JournalEntry{
		Seq:        seq,
		Session:    session,
		Collection: "list",
		KeyField:   "id",
		Op:         op,
		Key:        key,
		Record:     rec,
	}
}

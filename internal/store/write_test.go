package store

import (
	"context"
	"testing"

	"github.com/roach88/weft/internal/ir"
)

func TestAppend_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := entry(1, "s1", ir.JournalSeed, ir.Obj(
		ir.O("id", ir.IRInt(1)),
		ir.O("text", ir.IRString("clean the house")),
		ir.O("tags", ir.IRArray{ir.IRString("home")}),
		ir.O("done", ir.IRBool(false)),
	))
	hash, err := ir.RecordHash(want.Record)
	if err != nil {
		t.Fatal(err)
	}
	want.RecordHash = hash

	if err := s.Append(ctx, want); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	got, err := s.ReadEntries(ctx, Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(got))
	}
	if got[0].Seq != 1 || got[0].Session != "s1" || got[0].Op != ir.JournalSeed {
		t.Errorf("entry header = %+v", got[0])
	}
	if got[0].Key != "1" || got[0].KeyField != "id" {
		t.Errorf("key = %q/%q, want 1/id", got[0].Key, got[0].KeyField)
	}
	if !ir.Equal(got[0].Record, want.Record) {
		t.Errorf("record = %v, want %v", got[0].Record, want.Record)
	}
	if got[0].RecordHash != hash {
		t.Errorf("record_hash = %q, want %q", got[0].RecordHash, hash)
	}
}

func TestAppend_IdempotentPerSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := entry(1, "s1", "insert", todo(1, "a"))
	for i := 0; i < 2; i++ {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append() #%d failed: %v", i, err)
		}
	}

	// Same seq, different content: first write wins.
	if err := s.Append(ctx, entry(1, "s1", "insert", todo(1, "b"))); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadEntries(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(got))
	}
	if got[0].Record["text"] != ir.IRString("a") {
		t.Errorf("text = %v, want a", got[0].Record["text"])
	}
}

func TestAppend_BatchIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bad := entry(2, "s1", "rename", todo(2, "b")) // violates the op CHECK constraint
	err := s.Append(ctx, entry(1, "s1", "insert", todo(1, "a")), bad)
	if err == nil {
		t.Fatal("Append() with an invalid op should fail")
	}

	got, err := s.ReadEntries(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("len(entries) = %d after failed batch, want 0", len(got))
	}
}

func TestAppend_EmptyAndNilRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx); err != nil {
		t.Fatalf("Append() with no entries = %v", err)
	}

	e := ir.JournalEntry{Seq: 1, Session: "s", Collection: "c", KeyField: "id", Op: "delete", Key: "1"}
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("Append() nil record = %v", err)
	}
	got, err := s.ReadEntries(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got[0].Record) != 0 {
		t.Errorf("record = %v, want empty", got[0].Record)
	}
}

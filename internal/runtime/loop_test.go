package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/ir"
)

func TestRun_DrainsInOrderThenStopsOnClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))

	// Targets are looked up before the loop owns the tree.
	rm1, rm2, add := h.byID("rm-1"), h.byID("rm-2"), h.byID("add")

	done := make(chan error, 1)
	go func() { done <- h.rt.Run(ctx) }()

	// Delete both seeded cards, then add one; order matters for the id.
	require.True(t, h.rt.Enqueue(ir.Event{Type: "click", Target: rm1}))
	require.True(t, h.rt.Enqueue(ir.Event{Type: "click", Target: rm2}))
	require.True(t, h.rt.Enqueue(ir.Event{
		Type:   "submit",
		Target: add,
		Detail: ir.Obj(ir.O("title", ir.IRString("fresh"))),
	}))
	h.rt.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	assert.Equal(t, []string{"fresh"}, h.titles(t))
	records, err := h.rt.Engine().List(h.byID("cards"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), records[0]["id"])
	assert.False(t, h.rt.Enqueue(ir.Event{Type: "click"}))
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.rt.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

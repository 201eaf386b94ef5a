package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/datastore"
	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/engine"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
)

const boardMarkup = `<main>` +
	`<section data-w-type="Board">` +
	`<ul id="cards" data-w-list="cards"><template><li data-w-type="Card"><b>{{title}}</b><button id="rm-{{id}}" data-w-on="click:remove">x</button></li></template></ul>` +
	`<form id="add" data-w-on="submit:add"><input name="title"/><select name="lane"><option value="todo">todo</option><option value="done" selected>done</option></select></form>` +
	`<button id="ghost" data-w-on="click:vanish">?</button>` +
	`<button id="boom" data-w-on="click:explode">!</button>` +
	`<button id="fail" data-w-on="click:fail">!</button>` +
	`</section>` +
	`<ul id="broken" data-w-list="other"><li>no template</li></ul>` +
	`<p id="orphan" data-w-on="click:add">orphan</p>` +
	`</main>`

func card(id int, title string) ir.Record {
	return ir.Obj(ir.O("id", ir.IRInt(id)), ir.O("title", ir.IRString(title)))
}

type harness struct {
	rt    *Runtime
	doc   *html.Node
	inits map[string]int
	args  []ir.IRObject
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	doc, err := dom.ParseString(boardMarkup)
	require.NoError(t, err)

	ds := datastore.New()
	require.NoError(t, ds.Define(map[string][]ir.Record{
		"cards": {card(1, "first"), card(2, "second")},
	}))

	h := &harness{doc: doc, inits: map[string]int{}}
	reg := registry.New().MustRegister(
		&registry.Module{
			Name: "Board",
			Init: func(el registry.Element, app *registry.AppState) (any, error) {
				h.inits["Board"]++
				return "board:" + app.Session, nil
			},
			Handlers: map[string]registry.HandlerFunc{
				"add": func(el registry.Element, _ ir.Event, args ir.IRObject) error {
					h.args = append(h.args, args)
					records, err := el.List()
					if err != nil {
						return err
					}
					return el.Weave(ir.OpInsert, ir.Obj(
						ir.O("id", engine.NextKey(records, "id")),
						ir.O("title", args["title"]),
					))
				},
				"explode": func(registry.Element, ir.Event, ir.IRObject) error {
					panic("kaboom")
				},
				"fail": func(registry.Element, ir.Event, ir.IRObject) error {
					return errors.New("nope")
				},
			},
		},
		&registry.ItemType{Module: registry.Module{
			Name: "Card",
			Init: func(registry.Element, *registry.AppState) (any, error) {
				h.inits["Card"]++
				return nil, nil
			},
			Handlers: map[string]registry.HandlerFunc{
				"remove": func(el registry.Element, _ ir.Event, _ ir.IRObject) error {
					return el.Weave(ir.OpDelete, nil)
				},
			},
		}},
	)

	opts = append([]Option{WithSessions(NewFixedGenerator("sess-1"))}, opts...)
	h.rt = New(doc, reg, ds, opts...)
	return h
}

func (h *harness) byID(id string) *html.Node { return dom.FindByID(h.doc, id) }

func (h *harness) click(id string) Result {
	return h.rt.Dispatch(context.Background(), ir.Event{Type: "click", Target: h.byID(id)})
}

func (h *harness) titles(t *testing.T) []string {
	t.Helper()
	records, err := h.rt.Engine().List(h.byID("cards"))
	require.NoError(t, err)
	var out []string
	for _, rec := range records {
		out = append(out, ir.Text(rec["title"]))
	}
	return out
}

func TestRuntime_LoadIsolatesBrokenContainer(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rt.Load(context.Background()))

	assert.Equal(t, []string{"first", "second"}, h.titles(t))

	diags := h.rt.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindContainer, diags[0].Kind)
	assert.True(t, engine.IsMissingTemplate(diags[0].Err))
	assert.Contains(t, diags[0].Message, "collection other")

	// Load runs once.
	require.NoError(t, h.rt.Load(context.Background()))
	assert.Len(t, h.rt.Diagnostics(), 1)
	assert.Equal(t, 1, h.inits["Board"])
	assert.Equal(t, 2, h.inits["Card"])
}

func TestRuntime_LoadHonorsCancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.rt.Load(ctx), context.Canceled)
}

func TestRuntime_InitializerState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rt.Load(context.Background()))

	board := dom.Find(h.doc, dom.HasAttr(dom.AttrType))
	state, ok := h.rt.State(board)
	require.True(t, ok)
	assert.Equal(t, "board:sess-1", state)
	assert.Equal(t, "sess-1", h.rt.Session())
}

func TestRuntime_DispatchFormArgsAndDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))

	dom.SetValue(dom.Find(h.byID("add"), dom.HasAttr("name")), "third")
	res := h.rt.Dispatch(ctx, ir.Event{
		Type:   "submit",
		Target: h.byID("add"),
		Detail: ir.Obj(ir.O("lane", ir.IRString("override")), ir.O("extra", ir.IRBool(true))),
	})
	require.NoError(t, res.Err)
	assert.True(t, res.Handled)
	assert.Equal(t, "Board", res.TypeName)
	assert.Equal(t, "add", res.Handler)

	require.Len(t, h.args, 1)
	assert.Equal(t, ir.Obj(
		ir.O("title", ir.IRString("third")),
		ir.O("lane", ir.IRString("override")),
		ir.O("extra", ir.IRBool(true)),
	), h.args[0])
	assert.Equal(t, []string{"first", "second", "third"}, h.titles(t))

	// The new card's Item element was initialized as it rendered.
	assert.Equal(t, 3, h.inits["Card"])
}

func TestRuntime_DispatchDelegatesFromDescendant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))

	// The click lands on the text inside the button.
	res := h.rt.Dispatch(ctx, ir.Event{Type: "click", Target: h.byID("rm-1").FirstChild})
	require.NoError(t, res.Err)
	assert.Equal(t, "Card", res.TypeName)
	assert.Equal(t, []string{"second"}, h.titles(t))
}

func TestRuntime_DispatchFailuresAreDiagnostics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))
	base := len(h.rt.Diagnostics())

	tests := []struct {
		id      string
		handled bool
		kind    DiagnosticKind
		check   func(error) bool
	}{
		{"ghost", false, KindUnresolved, registry.IsHandlerNotFound},
		{"orphan", false, KindUnresolved, registry.IsHandlerNotFound},
		{"boom", true, KindPanic, isPanic},
		{"fail", true, KindHandlerError, func(err error) bool { return err.Error() == "nope" }},
	}
	for i, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := h.click(tt.id)
			assert.Equal(t, tt.handled, res.Handled)
			require.Error(t, res.Err)
			assert.True(t, tt.check(res.Err), "unexpected error %v", res.Err)

			diags := h.rt.Diagnostics()
			require.Len(t, diags, base+i+1)
			assert.Equal(t, tt.kind, diags[len(diags)-1].Kind)
		})
	}

	// Unrelated handlers keep working.
	require.NoError(t, h.click("rm-2").Err)
	assert.Equal(t, []string{"first"}, h.titles(t))
}

func TestRuntime_UnboundEventIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))
	base := len(h.rt.Diagnostics())

	res := h.rt.Dispatch(ctx, ir.Event{Type: "mouseover", Target: h.byID("rm-1")})
	assert.False(t, res.Handled)
	assert.NoError(t, res.Err)

	res = h.rt.Dispatch(ctx, ir.Event{Type: "click"})
	assert.False(t, res.Handled)
	assert.Len(t, h.rt.Diagnostics(), base)
}

func TestRuntime_DiagnosticSink(t *testing.T) {
	var seen []Diagnostic
	h := newHarness(t, WithDiagnosticSink(func(d Diagnostic) { seen = append(seen, d) }))
	require.NoError(t, h.rt.Load(context.Background()))
	h.click("fail")

	require.Len(t, seen, 2)
	assert.Equal(t, KindContainer, seen[0].Kind)
	assert.Equal(t, KindHandlerError, seen[1].Kind)
	assert.Equal(t, "handler_error: nope (Board.fail)", seen[1].String())
}

func TestRuntime_RemovedFragmentsForgotten(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))

	frag := h.byID("rm-1").Parent
	_, ok := h.rt.State(frag)
	require.True(t, ok)

	require.NoError(t, h.click("rm-1").Err)
	_, ok = h.rt.State(frag)
	assert.False(t, ok)
}

func TestRuntime_ContainerDefaultsFromType(t *testing.T) {
	doc, err := dom.ParseString(`<ol id="l" data-w-type="Stock"><template><li>{{sku}}</li></template></ol>`)
	require.NoError(t, err)
	ds := datastore.New()
	require.NoError(t, ds.Define(map[string][]ir.Record{
		"stock": {ir.Obj(ir.O("sku", ir.IRString("A-1")))},
	}))
	reg := registry.New().MustRegister(&registry.ContainerType{
		Module:     registry.Module{Name: "Stock"},
		Collection: "stock",
		KeyField:   "sku",
	})

	rt := New(doc, reg, ds, WithSessions(NewFixedGenerator("s")))
	require.NoError(t, rt.Load(context.Background()))
	assert.Empty(t, rt.Diagnostics())

	b, err := rt.Engine().Binding(dom.FindByID(doc, "l"))
	require.NoError(t, err)
	assert.Equal(t, ir.Binding{Collection: "stock", KeyField: "sku", TypeName: "Stock"}, b)
	assert.Equal(t, map[string][]ir.Record{
		"stock": {ir.Obj(ir.O("sku", ir.IRString("A-1")))},
	}, rt.Snapshot())
}

func TestRuntime_UnregisteredTypeReported(t *testing.T) {
	doc, err := dom.ParseString(`<div data-w-type="Nobody"></div>`)
	require.NoError(t, err)
	rt := New(doc, registry.New(), datastore.New(), WithSessions(NewFixedGenerator("s")))
	require.NoError(t, rt.Load(context.Background()))

	diags := rt.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindUnresolved, diags[0].Kind)
	assert.Equal(t, "newNobody", diags[0].Handler)
}

func TestRuntime_InitializerPanicAndError(t *testing.T) {
	doc, err := dom.ParseString(`<div data-w-type="P"></div><div data-w-type="E"></div>`)
	require.NoError(t, err)
	reg := registry.New().MustRegister(
		&registry.Module{Name: "P", Init: func(registry.Element, *registry.AppState) (any, error) { panic("init") }},
		&registry.Module{Name: "E", Init: func(registry.Element, *registry.AppState) (any, error) { return nil, errors.New("bad") }},
	)
	rt := New(doc, reg, datastore.New(), WithSessions(NewFixedGenerator("s")))
	require.NoError(t, rt.Load(context.Background()))

	diags := rt.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, KindPanic, diags[0].Kind)
	assert.Equal(t, KindInitError, diags[1].Kind)
}

func TestRuntime_WeaveJournaled(t *testing.T) {
	j := &memJournal{}
	h := newHarness(t, WithJournal(j), WithClock(engine.NewClockAt(100)))
	ctx := context.Background()
	require.NoError(t, h.rt.Load(ctx))

	require.NoError(t, h.rt.Weave(ctx, h.byID("cards"), ir.OpInsert, card(7, "seven")))
	require.Len(t, j.entries, 3)
	assert.Equal(t, int64(103), j.entries[2].Seq)
	assert.Equal(t, "sess-1", j.entries[2].Session)
	assert.Equal(t, "insert", j.entries[2].Op)
}

type memJournal struct {
	entries []ir.JournalEntry
}

func (j *memJournal) Append(_ context.Context, entries ...ir.JournalEntry) error {
	j.entries = append(j.entries, entries...)
	return nil
}

package engine

import (
	"container/list"
	"context"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
)

// Seeder supplies the initial records of a collection.
// Implemented by datastore.Store.
type Seeder interface {
	Seed(name string) []ir.Record
}

// Journal receives successful mutations in sequence order.
// Implemented by store.Store.
type Journal interface {
	Append(ctx context.Context, entries ...ir.JournalEntry) error
}

// Hooks observe fragments entering and leaving the tree.
type Hooks struct {
	// Rendered is called with each new fragment root after it is attached.
	Rendered func(frag *html.Node)
	// Removed is called with each fragment root after it is detached.
	Removed func(frag *html.Node)
}

// Engine weaves bound collections into their containers.
type Engine struct {
	seeder  Seeder
	journal Journal
	clock   Sequencer
	session string
	hooks   Hooks

	containers map[*html.Node]*container
	order      []*container // attach order, for Snapshot and Bindings
	fragments  map[*html.Node]fragmentRef
}

// fragmentRef locates the record a rendered fragment belongs to.
type fragmentRef struct {
	c    *container
	elem *list.Element
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal appends every successful mutation to j, tagged with session.
func WithJournal(j Journal, session string) Option {
	return func(e *Engine) {
		e.journal = j
		e.session = session
	}
}

// WithClock sets the sequencer used to stamp journal entries.
// Default: NewClock().
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithHooks installs fragment lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// New creates an engine seeding first renders from seeder.
func New(seeder Seeder, opts ...Option) *Engine {
	e := &Engine{
		seeder:     seeder,
		clock:      NewClock(),
		containers: make(map[*html.Node]*container),
		fragments:  make(map[*html.Node]fragmentRef),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weave runs op against the container el belongs to. rec is the record for
// insert and update; for delete it is consulted only when el does not lie
// inside a rendered fragment, and then names the record by its key.
//
// Insert, delete and update on a container that has never rendered seed it
// first.
func (e *Engine) Weave(ctx context.Context, el *html.Node, op ir.Op, rec ir.Record) error {
	op = op.Normalize()

	if op == ir.OpDelete {
		if ref, ok := e.enclosingFragment(el); ok {
			e.remove(ctx, ref.c, ref.elem)
			return nil
		}
	}

	c, err := e.containerFor(el)
	if err != nil {
		return err
	}

	if op == ir.OpRender {
		return e.render(ctx, c)
	}
	if !c.seeded {
		if err := e.render(ctx, c); err != nil {
			return err
		}
	}

	switch op {
	case ir.OpInsert:
		return e.insert(ctx, c, rec)
	case ir.OpDelete:
		return e.deleteByKey(ctx, c, rec)
	case ir.OpUpdate:
		return e.update(ctx, c, rec)
	}
	return nil
}

// Attach performs the first render of the container el belongs to. A
// container that already rendered is left alone.
func (e *Engine) Attach(ctx context.Context, el *html.Node) error {
	c, err := e.containerFor(el)
	if err != nil {
		return err
	}
	if c.seeded {
		return nil
	}
	return e.render(ctx, c)
}

// List returns a copy of the collection bound to the container el belongs
// to, in render order.
func (e *Engine) List(el *html.Node) ([]ir.Record, error) {
	node := Resolve(el)
	if node == nil {
		return nil, notFound("", "", "element is not inside a bound container")
	}
	c, ok := e.containers[node]
	if !ok || !c.seeded {
		name, _ := dom.Attr(node, dom.AttrList)
		return nil, notFound(name, "", "container has not rendered")
	}
	return c.records(), nil
}

// Binding returns the descriptor of the container el belongs to.
func (e *Engine) Binding(el *html.Node) (ir.Binding, error) {
	c, err := e.containerFor(el)
	if err != nil {
		return ir.Binding{}, err
	}
	return c.binding, nil
}

// Bindings lists the descriptors of attached containers in attach order.
func (e *Engine) Bindings() []ir.Binding {
	out := make([]ir.Binding, 0, len(e.order))
	for _, c := range e.order {
		out = append(out, c.binding)
	}
	return out
}

// Snapshot returns every rendered collection by name. When two containers
// share a collection name the first attached wins.
func (e *Engine) Snapshot() map[string][]ir.Record {
	out := make(map[string][]ir.Record, len(e.order))
	for _, c := range e.order {
		if !c.seeded {
			continue
		}
		if _, dup := out[c.binding.Collection]; dup {
			continue
		}
		out[c.binding.Collection] = c.records()
	}
	return out
}

// Resolve finds the container an element operates on: its nearest
// ancestor-or-self container, or else the first container inside the
// nearest enclosing scope that has one. The second rule lets a form that
// sits next to a list act on it.
func Resolve(el *html.Node) *html.Node {
	if el == nil {
		return nil
	}
	if c := dom.Closest(el, dom.IsContainer); c != nil {
		return c
	}
	for scope := el.Parent; scope != nil; scope = scope.Parent {
		if c := firstContainer(scope); c != nil {
			return c
		}
	}
	return nil
}

func firstContainer(scope *html.Node) *html.Node {
	var found *html.Node
	dom.Walk(scope, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if dom.IsContainer(n) {
			found = n
			return false
		}
		return n.DataAtom != atom.Template
	})
	return found
}

func (e *Engine) containerFor(el *html.Node) (*container, error) {
	node := Resolve(el)
	if node == nil {
		return nil, notFound("", "", "element is not inside a bound container")
	}
	return e.attach(node)
}

// attach resolves and caches the binding descriptor of a container node.
// A node whose template is unusable is not cached, so fixing the markup
// and rendering again succeeds.
func (e *Engine) attach(node *html.Node) (*container, error) {
	if c, ok := e.containers[node]; ok {
		return c, nil
	}

	binding := bindingOf(node)
	_, root, err := dom.Template(node)
	if err != nil {
		slog.Warn("container has no usable template",
			"collection", binding.Collection,
			"error", err,
		)
		return nil, &WeaveError{
			Code:       ErrCodeMissingTemplate,
			Message:    "cannot render container",
			Collection: binding.Collection,
			Err:        err,
		}
	}

	c := newContainer(node, binding, root)
	e.containers[node] = c
	e.order = append(e.order, c)

	slog.Debug("container attached",
		"collection", binding.Collection,
		"key_field", binding.KeyField,
		"type", binding.TypeName,
	)
	return c, nil
}

func bindingOf(node *html.Node) ir.Binding {
	b := ir.Binding{KeyField: ir.DefaultKeyField}
	b.Collection, _ = dom.Attr(node, dom.AttrList)
	if key, ok := dom.Attr(node, dom.AttrKey); ok && key != "" {
		b.KeyField = key
	}
	b.TypeName, _ = dom.TypeName(node)
	return b
}

// render (re)builds every fragment of c. On first render the collection is
// seeded and validated as a whole; one bad record rejects the seed.
func (e *Engine) render(ctx context.Context, c *container) error {
	if !c.seeded {
		records := e.seed(c.binding.Collection)
		items, index, err := c.build(records)
		if err != nil {
			slog.Warn("seed rejected",
				"collection", c.binding.Collection,
				"error", err,
			)
			return err
		}
		c.items, c.index, c.seeded = items, index, true
		e.journalSeed(ctx, c)
	}

	for elem := c.items.Front(); elem != nil; elem = elem.Next() {
		if ent := elem.Value.(*entry); ent.frag != nil {
			e.detach(ent)
		}
	}
	for elem := c.items.Front(); elem != nil; elem = elem.Next() {
		ent := elem.Value.(*entry)
		ent.frag = c.fragment(ent.rec)
		c.node.AppendChild(ent.frag)
		e.track(c, elem)
	}

	slog.Debug("container rendered",
		"collection", c.binding.Collection,
		"records", c.items.Len(),
	)
	return nil
}

func (e *Engine) seed(name string) []ir.Record {
	if e.seeder == nil {
		return nil
	}
	return e.seeder.Seed(name)
}

func (e *Engine) insert(ctx context.Context, c *container, rec ir.Record) error {
	key, ok := ir.KeyOf(rec, c.binding.KeyField)
	if !ok {
		return missingKey(c.binding.Collection, c.binding.KeyField)
	}
	if _, dup := c.index[key]; dup {
		return duplicateKey(c.binding.Collection, key)
	}

	ent := &entry{key: key, rec: rec.Clone()}
	ent.frag = c.fragment(ent.rec)

	var anchor *html.Node
	if last := c.items.Back(); last != nil {
		anchor = last.Value.(*entry).frag.NextSibling
	}
	c.node.InsertBefore(ent.frag, anchor)

	elem := c.items.PushBack(ent)
	c.index[key] = elem
	e.track(c, elem)

	e.journalOp(ctx, c, ir.OpInsert, ent)
	return nil
}

func (e *Engine) deleteByKey(ctx context.Context, c *container, rec ir.Record) error {
	key, ok := ir.KeyOf(rec, c.binding.KeyField)
	if !ok {
		return notFound(c.binding.Collection, "", "target does not map to a tracked fragment")
	}
	elem, ok := c.index[key]
	if !ok {
		return notFound(c.binding.Collection, key, "no record with this key")
	}
	e.remove(ctx, c, elem)
	return nil
}

func (e *Engine) remove(ctx context.Context, c *container, elem *list.Element) {
	ent := elem.Value.(*entry)
	c.items.Remove(elem)
	delete(c.index, ent.key)
	e.detach(ent)
	e.journalOp(ctx, c, ir.OpDelete, ent)
}

func (e *Engine) update(ctx context.Context, c *container, rec ir.Record) error {
	key, ok := ir.KeyOf(rec, c.binding.KeyField)
	if !ok {
		return missingKey(c.binding.Collection, c.binding.KeyField)
	}
	elem, ok := c.index[key]
	if !ok {
		return notFound(c.binding.Collection, key, "no record with this key")
	}

	ent := elem.Value.(*entry)
	frag := c.fragment(rec)
	c.node.InsertBefore(frag, ent.frag)
	e.detach(ent)

	ent.rec = rec.Clone()
	ent.frag = frag
	e.track(c, elem)

	e.journalOp(ctx, c, ir.OpUpdate, ent)
	return nil
}

func (e *Engine) track(c *container, elem *list.Element) {
	frag := elem.Value.(*entry).frag
	e.fragments[frag] = fragmentRef{c: c, elem: elem}
	if e.hooks.Rendered != nil {
		e.hooks.Rendered(frag)
	}
}

func (e *Engine) detach(ent *entry) {
	frag := ent.frag
	delete(e.fragments, frag)
	dom.Detach(frag)
	ent.frag = nil
	if e.hooks.Removed != nil {
		e.hooks.Removed(frag)
	}
}

// enclosingFragment walks from el to the nearest tracked fragment root.
func (e *Engine) enclosingFragment(el *html.Node) (fragmentRef, bool) {
	for cur := el; cur != nil; cur = cur.Parent {
		if ref, ok := e.fragments[cur]; ok {
			return ref, true
		}
	}
	return fragmentRef{}, false
}

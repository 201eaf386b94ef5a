package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/engine"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
)

// Runtime is one loaded document.
type Runtime struct {
	doc      *html.Node
	registry *registry.Registry
	engine   *engine.Engine
	app      *registry.AppState
	queue    *eventQueue
	session  string

	mu     sync.Mutex // guards diags and sink
	diags  []Diagnostic
	sink   func(Diagnostic)
	loaded bool

	// ctx of the operation in progress, used by fragment hooks that the
	// engine calls synchronously.
	hookCtx context.Context
}

type config struct {
	journal  engine.Journal
	clock    engine.Sequencer
	sessions SessionGenerator
	sink     func(Diagnostic)
}

// Option configures a Runtime.
type Option func(*config)

// WithJournal records every successful mutation in j.
func WithJournal(j engine.Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithClock sets the journal sequencer, typically resumed past the last
// journaled seq.
func WithClock(seq engine.Sequencer) Option {
	return func(c *config) { c.clock = seq }
}

// WithSessions sets the session token source. Default: UUIDv7Generator.
func WithSessions(g SessionGenerator) Option {
	return func(c *config) { c.sessions = g }
}

// WithDiagnosticSink calls fn with every diagnostic as it is reported.
func WithDiagnosticSink(fn func(Diagnostic)) Option {
	return func(c *config) { c.sink = fn }
}

// New binds doc to reg and seeds containers from data.
func New(doc *html.Node, reg *registry.Registry, data engine.Seeder, opts ...Option) *Runtime {
	cfg := config{sessions: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runtime{
		doc:      doc,
		registry: reg,
		queue:    newEventQueue(),
		session:  cfg.sessions.Generate(),
		sink:     cfg.sink,
		hookCtx:  context.Background(),
	}
	r.app = registry.NewAppState(r.session)

	engOpts := []engine.Option{
		engine.WithHooks(engine.Hooks{
			Rendered: r.fragmentRendered,
			Removed:  r.registry.Forget,
		}),
	}
	if cfg.journal != nil {
		engOpts = append(engOpts, engine.WithJournal(cfg.journal, r.session))
	}
	if cfg.clock != nil {
		engOpts = append(engOpts, engine.WithClock(cfg.clock))
	}
	r.engine = engine.New(data, engOpts...)
	return r
}

// Session returns the token tagging this runtime's journal entries.
func (r *Runtime) Session() string { return r.session }

// Document returns the live document.
func (r *Runtime) Document() *html.Node { return r.doc }

// Engine returns the weave engine.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// AppState returns the handle shared by initializers.
func (r *Runtime) AppState() *registry.AppState { return r.app }

// Load initializes typed elements and renders every container. Failures
// are isolated per element and per container and reported as diagnostics.
// Calling Load twice is a no-op.
func (r *Runtime) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.loaded {
		return nil
	}
	r.loaded = true

	restore := r.withHookCtx(ctx)
	defer restore()

	r.initTyped(ctx, r.doc)

	containers := dom.FindAll(r.doc, dom.IsContainer)
	failed := 0
	for _, c := range containers {
		if err := r.engine.Attach(ctx, c); err != nil {
			failed++
			name, _ := dom.Attr(c, dom.AttrList)
			r.report(ctx, Diagnostic{
				Kind:     KindContainer,
				TypeName: typeOf(c),
				Message:  fmt.Sprintf("collection %s: %v", name, err),
				Err:      err,
			})
		}
	}

	slog.Info("document loaded",
		"session", r.session,
		"containers", len(containers),
		"failed", failed,
	)
	return nil
}

// State returns the private state of an initialized typed element.
func (r *Runtime) State(n *html.Node) (any, bool) {
	return r.registry.State(n)
}

// Render serializes the live document.
func (r *Runtime) Render() (string, error) {
	return dom.Render(r.doc)
}

// Weave runs an operation on the container target belongs to, from outside
// any handler.
func (r *Runtime) Weave(ctx context.Context, target *html.Node, op ir.Op, rec ir.Record) error {
	restore := r.withHookCtx(ctx)
	defer restore()
	return r.engine.Weave(ctx, target, op, rec)
}

// Snapshot returns every rendered collection by name.
func (r *Runtime) Snapshot() map[string][]ir.Record {
	return r.engine.Snapshot()
}

func (r *Runtime) withHookCtx(ctx context.Context) func() {
	prev := r.hookCtx
	r.hookCtx = ctx
	return func() { r.hookCtx = prev }
}

func (r *Runtime) fragmentRendered(frag *html.Node) {
	r.initTyped(r.hookCtx, frag)
}

// initTyped initializes every typed element under root, once each.
func (r *Runtime) initTyped(ctx context.Context, root *html.Node) {
	for _, n := range dom.FindAll(root, dom.HasAttr(dom.AttrType)) {
		typeName, ok := dom.TypeName(n)
		if !ok || r.registry.Initialized(n) {
			continue
		}
		r.applyContainerDefaults(n, typeName)
		r.initialize(ctx, n, typeName)
	}
}

// applyContainerDefaults binds an element of a container type to the
// type's default collection and key when its markup names neither.
func (r *Runtime) applyContainerDefaults(n *html.Node, typeName string) {
	m, ok := r.registry.Lookup(typeName)
	if !ok {
		return
	}
	ct, ok := m.(*registry.ContainerType)
	if !ok || ct.Collection == "" {
		return
	}
	if _, named := dom.Attr(n, dom.AttrList); !named {
		dom.SetAttr(n, dom.AttrList, ct.Collection)
	}
	if _, named := dom.Attr(n, dom.AttrKey); !named && ct.KeyField != "" {
		dom.SetAttr(n, dom.AttrKey, ct.KeyField)
	}
}

func (r *Runtime) initialize(ctx context.Context, n *html.Node, typeName string) {
	el := r.element(ctx, n, n, typeName)
	_, err := r.safeInit(el, typeName)
	if err == nil {
		return
	}
	d := Diagnostic{TypeName: typeName, Handler: registry.InitializerName(typeName), Err: err}
	switch {
	case registry.IsHandlerNotFound(err):
		d.Kind = KindUnresolved
	case isPanic(err):
		d.Kind = KindPanic
	default:
		d.Kind = KindInitError
	}
	r.report(ctx, d)
}

func (r *Runtime) safeInit(el *element, typeName string) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return r.registry.Initialize(el, typeName, r.app)
}

func typeOf(n *html.Node) string {
	if t := dom.Closest(n, dom.HasAttr(dom.AttrType)); t != nil {
		name, _ := dom.TypeName(t)
		return name
	}
	return ""
}

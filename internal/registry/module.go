package registry

import (
	"sync"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/ir"
)

// Element is the handle a handler or initializer receives: the bound DOM
// element plus access back into the weave engine.
type Element interface {
	// Node is the element the handler is bound on.
	Node() *html.Node
	// TypeName is the resolved data-w-type.
	TypeName() string
	// State is the private value the type's initializer returned.
	State() any
	// Weave runs a weave operation on the collection this element belongs
	// to (its own container, or the one in its scope).
	Weave(op ir.Op, rec ir.Record) error
	// List returns the bound collection in the element's scope.
	List() ([]ir.Record, error)
	// Reset clears the form controls under the element.
	Reset()
	// Report records a user-facing, non-fatal message.
	Report(msg string)
}

// HandlerFunc handles one event on one element.
type HandlerFunc func(el Element, ev ir.Event, args ir.IRObject) error

// InitFunc is a type's new<TypeName> initializer. The returned value
// becomes the element's private state.
type InitFunc func(el Element, app *AppState) (any, error)

// TypeModule is the sealed interface over module variants.
type TypeModule interface {
	TypeName() string
	Variant() ir.Variant
	Handler(name string) (HandlerFunc, bool)
	HandlerNames() []string
	Initializer() InitFunc
	typeModule()
}

// Module is a plain type module.
type Module struct {
	Name     string
	Handlers map[string]HandlerFunc
	Init     InitFunc
}

func (*Module) typeModule() {}

// TypeName returns the module's registered name.
func (m *Module) TypeName() string { return m.Name }

// Variant returns ir.VariantPlain.
func (m *Module) Variant() ir.Variant { return ir.VariantPlain }

// Handler looks up a handler by name.
func (m *Module) Handler(name string) (HandlerFunc, bool) {
	h, ok := m.Handlers[name]
	return h, ok && h != nil
}

// HandlerNames lists the module's handlers in no particular order.
func (m *Module) HandlerNames() []string {
	names := make([]string, 0, len(m.Handlers))
	for name := range m.Handlers {
		names = append(names, name)
	}
	return names
}

// Initializer returns the module's initializer, possibly nil.
func (m *Module) Initializer() InitFunc { return m.Init }

// ContainerType is a module whose elements own a bound collection.
// Collection and KeyField are defaults used when the element's markup does
// not name them.
type ContainerType struct {
	Module
	Collection string
	KeyField   string
}

// Variant returns ir.VariantContainer.
func (c *ContainerType) Variant() ir.Variant { return ir.VariantContainer }

// ItemType is a module for rendered fragment roots.
type ItemType struct {
	Module
}

// Variant returns ir.VariantItem.
func (i *ItemType) Variant() ir.Variant { return ir.VariantItem }

// AppState is the shared application-state handle passed to initializers.
//
// Thread-safety: all methods are safe for concurrent use.
type AppState struct {
	// Session identifies the running runtime.
	Session string

	mu     sync.RWMutex
	values map[string]any
}

// NewAppState creates an empty state handle for a session.
func NewAppState(session string) *AppState {
	return &AppState{Session: session, values: map[string]any{}}
}

// Get returns a shared value.
func (a *AppState) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// Set stores a shared value.
func (a *AppState) Set(key string, v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.values == nil {
		a.values = map[string]any{}
	}
	a.values[key] = v
}

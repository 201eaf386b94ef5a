package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/ir"
)

// Registry resolves type names to modules and tracks which elements have
// been initialized.
//
// Thread-safety: all methods are safe for concurrent use. Initializers run
// outside the lock so they may call back into the registry.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]TypeModule
	states  map[*html.Node]elementState
}

type elementState struct {
	typeName string
	value    any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		modules: make(map[string]TypeModule),
		states:  make(map[*html.Node]elementState),
	}
}

// Register stores m under its type name, replacing any previous module of
// that name.
func (r *Registry) Register(m TypeModule) error {
	if m == nil {
		return &RegistryError{Code: ErrCodeInvalidModule, Message: "module is nil"}
	}
	name := m.TypeName()
	if name == "" {
		return &RegistryError{Code: ErrCodeInvalidModule, Message: "module has no name"}
	}

	r.mu.Lock()
	_, replaced := r.modules[name]
	r.modules[name] = m
	r.mu.Unlock()

	if replaced {
		slog.Debug("type module replaced", "type", name, "variant", m.Variant())
	} else {
		slog.Debug("type module registered", "type", name, "variant", m.Variant())
	}
	return nil
}

// MustRegister is like Register but panics on error. Use at startup with
// literal modules.
func (r *Registry) MustRegister(modules ...TypeModule) *Registry {
	for _, m := range modules {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (TypeModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the handler bound to (typeName, handler). Resolution
// happens at call time, so a re-registered module takes effect at once.
func (r *Registry) Resolve(typeName, handler string) (HandlerFunc, error) {
	m, ok := r.Lookup(typeName)
	if !ok {
		return nil, handlerNotFound(typeName, handler, "type is not registered")
	}
	h, ok := m.Handler(handler)
	if !ok {
		return nil, handlerNotFound(typeName, handler, "handler is not defined")
	}
	return h, nil
}

// Initialize binds el to typeName. The first call per element runs the
// type's initializer (if any) and stores its return value; later calls
// return the stored value without running anything. An initializer error
// is returned once and the element is still considered initialized.
func (r *Registry) Initialize(el Element, typeName string, app *AppState) (any, error) {
	node := el.Node()

	r.mu.RLock()
	st, done := r.states[node]
	r.mu.RUnlock()
	if done {
		return st.value, nil
	}

	m, ok := r.Lookup(typeName)
	if !ok {
		return nil, handlerNotFound(typeName, InitializerName(typeName), "type is not registered")
	}

	// Claim the element before running user code so a re-entrant call
	// cannot initialize it twice.
	r.mu.Lock()
	if st, done := r.states[node]; done {
		r.mu.Unlock()
		return st.value, nil
	}
	r.states[node] = elementState{typeName: typeName}
	r.mu.Unlock()

	init := m.Initializer()
	if init == nil {
		return nil, nil
	}

	value, err := init(el, app)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", InitializerName(typeName), err)
	}

	r.mu.Lock()
	r.states[node] = elementState{typeName: typeName, value: value}
	r.mu.Unlock()

	slog.Debug("element initialized", "type", typeName, "tag", node.Data)
	return value, nil
}

// State returns the private state of an initialized element.
func (r *Registry) State(node *html.Node) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[node]
	return st.value, ok
}

// Initialized reports whether node has been bound to a type.
func (r *Registry) Initialized(node *html.Node) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.states[node]
	return ok
}

// Forget drops the state of node and every node under it. Called when a
// fragment leaves the tree.
func (r *Registry) Forget(root *html.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		delete(r.states, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// InitializerName is the conventional initializer name of a type.
func InitializerName(typeName string) string {
	return "new" + typeName
}

// Verify checks declared type specs against registered modules. Every
// declared type must be registered with a matching variant, every declared
// handler must exist, and a declared initializer must be present.
func (r *Registry) Verify(specs []ir.TypeSpec) []error {
	var errs []error
	for _, decl := range specs {
		m, ok := r.Lookup(decl.Name)
		if !ok {
			errs = append(errs, &RegistryError{
				Code:     ErrCodeManifestMismatch,
				TypeName: decl.Name,
				Message:  "declared type is not registered",
			})
			continue
		}
		want := decl.Variant
		if want == "" {
			want = ir.VariantPlain
		}
		if m.Variant() != want {
			errs = append(errs, &RegistryError{
				Code:     ErrCodeManifestMismatch,
				TypeName: decl.Name,
				Message:  fmt.Sprintf("declared variant %s, registered %s", want, m.Variant()),
			})
		}
		for _, h := range decl.Handlers {
			if _, ok := m.Handler(h); !ok {
				errs = append(errs, &RegistryError{
					Code:     ErrCodeManifestMismatch,
					TypeName: decl.Name,
					Handler:  h,
					Message:  "declared handler is not defined",
				})
			}
		}
		if decl.Initializer != "" && m.Initializer() == nil {
			errs = append(errs, &RegistryError{
				Code:     ErrCodeManifestMismatch,
				TypeName: decl.Name,
				Handler:  decl.Initializer,
				Message:  "declared initializer is not defined",
			})
		}
		if c, ok := m.(*ContainerType); ok && decl.Collection != "" && c.Collection != "" &&
			!strings.EqualFold(c.Collection, decl.Collection) {
			errs = append(errs, &RegistryError{
				Code:     ErrCodeManifestMismatch,
				TypeName: decl.Name,
				Message:  fmt.Sprintf("declared collection %s, registered %s", decl.Collection, c.Collection),
			})
		}
	}
	return errs
}

// Undeclared lists registered type names that no decl declares.
func (r *Registry) Undeclared(specs []ir.TypeSpec) []string {
	var out []string
	for _, name := range r.Names() {
		if !slices.ContainsFunc(specs, func(s ir.TypeSpec) bool { return s.Name == name }) {
			out = append(out, name)
		}
	}
	return out
}

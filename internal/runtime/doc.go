// Package runtime wires a parsed document to the registry, the data store
// and the weave engine, and delivers DOM events to handlers.
//
// Load initializes every typed element, then renders every container.
// Fragments rendered later have their typed elements initialized as they
// enter the tree; removed fragments have their element state dropped.
//
// Dispatch is delegated: an event on any element walks up to the nearest
// element whose data-w-on binds the event type, and the handler is
// resolved against the nearest data-w-type at or above that element.
// Handler arguments are the named form controls under the handler element
// merged with the event detail.
//
// Failures never escape to the caller loop. Unresolved handlers, handler
// errors, panics, initializer failures and container configuration errors
// become Diagnostics, and unrelated elements keep working.
//
// Run drains the event queue on a single goroutine. Enqueue may be called
// from any goroutine; every other method must be called from the goroutine
// running Run, or before it starts.
package runtime

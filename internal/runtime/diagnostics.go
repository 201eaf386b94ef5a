package runtime

import (
	"context"
	"fmt"
	"log/slog"
)

// DiagnosticKind classifies a non-fatal runtime problem.
type DiagnosticKind string

const (
	// KindUnresolved: no registered type or handler for a binding.
	KindUnresolved DiagnosticKind = "unresolved"
	// KindHandlerError: a handler returned an error.
	KindHandlerError DiagnosticKind = "handler_error"
	// KindPanic: a handler or initializer panicked.
	KindPanic DiagnosticKind = "panic"
	// KindInitError: an initializer returned an error.
	KindInitError DiagnosticKind = "init_error"
	// KindContainer: a container could not render.
	KindContainer DiagnosticKind = "container"
	// KindReport: a handler reported a message to the user.
	KindReport DiagnosticKind = "report"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	TypeName string         `json:"type,omitempty"`
	Handler  string         `json:"handler,omitempty"`
	Event    string         `json:"event,omitempty"`
	Message  string         `json:"message"`
	Err      error          `json:"-"`
}

func (d Diagnostic) String() string {
	switch {
	case d.TypeName != "" && d.Handler != "":
		return fmt.Sprintf("%s: %s (%s.%s)", d.Kind, d.Message, d.TypeName, d.Handler)
	case d.TypeName != "":
		return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, d.TypeName)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
}

func (r *Runtime) report(ctx context.Context, d Diagnostic) {
	if d.Message == "" && d.Err != nil {
		d.Message = d.Err.Error()
	}

	level := slog.LevelWarn
	if d.Kind == KindReport {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "runtime diagnostic",
		"kind", d.Kind,
		"type", d.TypeName,
		"handler", d.Handler,
		"event", d.Event,
		"message", d.Message,
	)

	r.mu.Lock()
	r.diags = append(r.diags, d)
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink(d)
	}
}

// Diagnostics returns a copy of everything reported so far.
func (r *Runtime) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

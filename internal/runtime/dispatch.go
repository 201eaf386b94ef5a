package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
)

// Result describes what Dispatch did with one event.
type Result struct {
	// Handled is true when a handler ran, whether or not it failed.
	Handled  bool
	TypeName string
	Handler  string
	// Err is the handler's error, a recovered panic, or the resolution
	// failure. It is also reported as a diagnostic.
	Err error
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func isPanic(err error) bool {
	var p *panicError
	return errors.As(err, &p)
}

// Dispatch delivers ev synchronously. An event no element binds is
// ignored. Nothing is returned as an error: problems are in the Result and
// in Diagnostics.
func (r *Runtime) Dispatch(ctx context.Context, ev ir.Event) Result {
	handlerNode, handler, ok := bindingFor(ev)
	if !ok {
		slog.Debug("event not bound", "event", ev.Type)
		return Result{}
	}

	res := Result{Handler: handler}
	typeNode := dom.Closest(handlerNode, dom.HasAttr(dom.AttrType))
	if typeNode == nil {
		res.Err = &registry.RegistryError{
			Code:    registry.ErrCodeHandlerNotFound,
			Handler: handler,
			Message: "no data-w-type at or above the handler element",
		}
		r.report(ctx, Diagnostic{Kind: KindUnresolved, Handler: handler, Event: ev.Type, Err: res.Err})
		return res
	}
	res.TypeName, _ = dom.TypeName(typeNode)

	fn, err := r.registry.Resolve(res.TypeName, handler)
	if err != nil {
		res.Err = err
		r.report(ctx, Diagnostic{
			Kind:     KindUnresolved,
			TypeName: res.TypeName,
			Handler:  handler,
			Event:    ev.Type,
			Err:      err,
		})
		return res
	}

	restore := r.withHookCtx(ctx)
	defer restore()

	// Elements added after Load are initialized on first use.
	if !r.registry.Initialized(typeNode) {
		r.initialize(ctx, typeNode, res.TypeName)
	}

	args := dom.FormValues(handlerNode)
	for k, v := range ev.Detail {
		args[k] = v
	}

	el := r.element(ctx, handlerNode, typeNode, res.TypeName)
	res.Handled = true
	res.Err = invoke(fn, el, ev, args)
	if res.Err != nil {
		kind := KindHandlerError
		if isPanic(res.Err) {
			kind = KindPanic
		}
		r.report(ctx, Diagnostic{
			Kind:     kind,
			TypeName: res.TypeName,
			Handler:  handler,
			Event:    ev.Type,
			Err:      res.Err,
		})
		return res
	}

	slog.Debug("event dispatched",
		"event", ev.Type,
		"type", res.TypeName,
		"handler", handler,
	)
	return res
}

func invoke(fn registry.HandlerFunc, el registry.Element, ev ir.Event, args ir.IRObject) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return fn(el, ev, args)
}

// bindingFor walks from the event target to the nearest element binding
// the event type.
func bindingFor(ev ir.Event) (*html.Node, string, bool) {
	for cur := ev.Target; cur != nil; cur = cur.Parent {
		if !dom.IsElement(cur) {
			continue
		}
		if handler, ok := dom.HandlerFor(cur, ev.Type); ok {
			return cur, handler, true
		}
	}
	return nil, "", false
}

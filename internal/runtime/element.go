package runtime

import (
	"context"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
)

// element implements registry.Element for one handler invocation.
type element struct {
	rt       *Runtime
	ctx      context.Context
	node     *html.Node // element carrying the handler binding
	typeNode *html.Node // element carrying data-w-type
	typeName string
}

var _ registry.Element = (*element)(nil)

func (r *Runtime) element(ctx context.Context, node, typeNode *html.Node, typeName string) *element {
	return &element{rt: r, ctx: ctx, node: node, typeNode: typeNode, typeName: typeName}
}

func (e *element) Node() *html.Node { return e.node }

func (e *element) TypeName() string { return e.typeName }

func (e *element) State() any {
	v, _ := e.rt.registry.State(e.typeNode)
	return v
}

func (e *element) Weave(op ir.Op, rec ir.Record) error {
	return e.rt.engine.Weave(e.ctx, e.node, op, rec)
}

func (e *element) List() ([]ir.Record, error) {
	return e.rt.engine.List(e.node)
}

func (e *element) Reset() {
	dom.ResetForm(e.node)
}

func (e *element) Report(msg string) {
	e.rt.report(e.ctx, Diagnostic{
		Kind:     KindReport,
		TypeName: e.typeName,
		Message:  msg,
	})
}

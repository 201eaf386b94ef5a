// Package todo is the built-in demo: a list of things to do with an add
// form and a delete button per item.
package todo

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/compiler"
	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/engine"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
)

//go:embed todo.html
var markup string

//go:embed todo.cue
var manifestSrc []byte

// Collection is the bound collection the demo renders.
const Collection = "list"

// AddFormID is the id of the page's add form.
const AddFormID = "add-item"

// EmptyTextMessage is reported when an add is submitted without text.
const EmptyTextMessage = "Please enter a todo!"

// Board is the private state of a ToDo element.
type Board struct {
	Session string
}

// Markup returns the demo page.
func Markup() string { return markup }

// Parse parses a fresh copy of the demo page.
func Parse() (*html.Node, error) {
	return dom.ParseString(markup)
}

// Manifest compiles the demo's type declarations and initial data.
func Manifest() (*ir.Manifest, error) {
	return compiler.Compile(manifestSrc, "todo.cue")
}

// Modules returns the demo's type modules.
func Modules() []registry.TypeModule {
	return []registry.TypeModule{
		&registry.ContainerType{
			Module: registry.Module{
				Name: "ToDo",
				Init: newTodo,
			},
			Collection: Collection,
			KeyField:   ir.DefaultKeyField,
		},
		&registry.ItemType{
			Module: registry.Module{
				Name: "Item",
				Handlers: map[string]registry.HandlerFunc{
					"itemAdd":    itemAdd,
					"itemDelete": itemDelete,
				},
			},
		},
	}
}

// Register adds the demo's modules to reg.
func Register(reg *registry.Registry) error {
	var errs []error
	for _, m := range Modules() {
		errs = append(errs, reg.Register(m))
	}
	return errors.Join(errs...)
}

func newTodo(_ registry.Element, app *registry.AppState) (any, error) {
	return &Board{Session: app.Session}, nil
}

func itemAdd(el registry.Element, _ ir.Event, args ir.IRObject) error {
	text := strings.TrimSpace(ir.Text(args["text"]))
	if text == "" {
		el.Report(EmptyTextMessage)
		return nil
	}

	records, err := el.List()
	if err != nil {
		return fmt.Errorf("itemAdd: %w", err)
	}
	rec := ir.Obj(
		ir.O("id", engine.NextKey(records, "id")),
		ir.O("text", ir.IRString(text)),
	)
	if err := el.Weave(ir.OpInsert, rec); err != nil {
		return fmt.Errorf("itemAdd: %w", err)
	}
	el.Reset()
	return nil
}

func itemDelete(el registry.Element, _ ir.Event, _ ir.IRObject) error {
	return el.Weave(ir.OpDelete, nil)
}

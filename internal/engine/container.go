package engine

import (
	"container/list"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
)

// entry is one record of a bound collection and the fragment rendering it.
type entry struct {
	key  string // canonical identity key
	rec  ir.Record
	frag *html.Node // nil while not rendered
}

// container is the mirror of one bound container element.
//
// INVARIANTS:
//   - items order is render order
//   - index holds exactly the keys of items
//   - every rendered entry's frag is a child of node, in items order
type container struct {
	node    *html.Node
	binding ir.Binding
	tmpl    *html.Node // template root, cloned per record

	seeded bool
	items  *list.List // of *entry
	index  map[string]*list.Element
}

func newContainer(node *html.Node, binding ir.Binding, tmpl *html.Node) *container {
	return &container{
		node:    node,
		binding: binding,
		tmpl:    tmpl,
		items:   list.New(),
		index:   make(map[string]*list.Element),
	}
}

// build validates records and returns a fresh list and index for them.
// Nothing on c changes.
func (c *container) build(records []ir.Record) (*list.List, map[string]*list.Element, error) {
	items := list.New()
	index := make(map[string]*list.Element, len(records))
	for _, rec := range records {
		key, ok := ir.KeyOf(rec, c.binding.KeyField)
		if !ok {
			return nil, nil, missingKey(c.binding.Collection, c.binding.KeyField)
		}
		if _, dup := index[key]; dup {
			return nil, nil, duplicateKey(c.binding.Collection, key)
		}
		index[key] = items.PushBack(&entry{key: key, rec: rec.Clone()})
	}
	return items, index, nil
}

// fragment clones the template root for rec and stamps its identity key.
func (c *container) fragment(rec ir.Record) *html.Node {
	frag := dom.Clone(c.tmpl)
	dom.Substitute(frag, rec)
	dom.SetAttr(frag, dom.AttrID, ir.Text(rec[c.binding.KeyField]))
	return frag
}

func (c *container) records() []ir.Record {
	out := make([]ir.Record, 0, c.items.Len())
	for elem := c.items.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*entry).rec.Clone())
	}
	return out
}

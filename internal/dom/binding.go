package dom

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/weft/internal/ir"
)

var (
	// ErrNoTemplate means a container has no <template> child.
	ErrNoTemplate = errors.New("container has no <template> child")
	// ErrTemplateRoot means the template does not hold exactly one element root.
	ErrTemplateRoot = errors.New("template must contain exactly one element root")
)

// HandlerBinding is one event:handler pair from a data-w-on attribute.
type HandlerBinding struct {
	Event   string
	Handler string
}

// HandlerBindings parses the data-w-on attribute of n. Malformed entries
// (missing colon or empty half) are skipped.
func HandlerBindings(n *html.Node) []HandlerBinding {
	raw, ok := Attr(n, AttrOn)
	if !ok {
		return nil
	}
	var out []HandlerBinding
	for _, field := range strings.Fields(raw) {
		ev, handler, found := strings.Cut(field, ":")
		if !found || ev == "" || handler == "" {
			continue
		}
		out = append(out, HandlerBinding{Event: ev, Handler: handler})
	}
	return out
}

// HandlerFor returns the handler n binds for the event type.
func HandlerFor(n *html.Node, event string) (string, bool) {
	for _, b := range HandlerBindings(n) {
		if b.Event == event {
			return b.Handler, true
		}
	}
	return "", false
}

// TypeName returns the data-w-type of n.
func TypeName(n *html.Node) (string, bool) {
	v, ok := Attr(n, AttrType)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// IsContainer reports whether n declares a bound collection.
func IsContainer(n *html.Node) bool {
	v, ok := Attr(n, AttrList)
	return IsElement(n) && ok && v != ""
}

// Template returns the <template> element of a container and its single
// element root.
func Template(container *html.Node) (tmpl, root *html.Node, err error) {
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Template {
			tmpl = c
			break
		}
	}
	if tmpl == nil {
		return nil, nil, ErrNoTemplate
	}
	for c := tmpl.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if root != nil {
				return nil, nil, ErrTemplateRoot
			}
			root = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil, nil, ErrTemplateRoot
			}
		}
	}
	if root == nil {
		return nil, nil, ErrTemplateRoot
	}
	return tmpl, root, nil
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Substitute replaces {{path}} placeholders in every text node and
// attribute value under n with the record's field values. Unknown paths
// render as the empty string.
func Substitute(n *html.Node, rec ir.Record) {
	expand := func(s string) string {
		if !strings.Contains(s, "{{") {
			return s
		}
		return placeholder.ReplaceAllStringFunc(s, func(m string) string {
			path := placeholder.FindStringSubmatch(m)[1]
			v, _ := rec.Lookup(path)
			return ir.Text(v)
		})
	}
	Walk(n, func(c *html.Node) bool {
		switch c.Type {
		case html.TextNode:
			c.Data = expand(c.Data)
		case html.ElementNode:
			for i := range c.Attr {
				c.Attr[i].Val = expand(c.Attr[i].Val)
			}
		}
		return true
	})
}

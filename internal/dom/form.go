package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/weft/internal/ir"
)

// FormValues collects the named controls under n: input values, textarea
// text and the selected option of each select. Unchecked checkboxes and
// radios are omitted; checked ones without a value report "on".
func FormValues(n *html.Node) ir.IRObject {
	out := ir.IRObject{}
	for _, c := range FindAll(n, IsElement) {
		name, ok := Attr(c, "name")
		if !ok || name == "" {
			continue
		}
		switch c.DataAtom {
		case atom.Input:
			kind, _ := Attr(c, "type")
			if kind == "checkbox" || kind == "radio" {
				if _, checked := Attr(c, "checked"); !checked {
					continue
				}
				v, ok := Attr(c, "value")
				if !ok {
					v = "on"
				}
				out[name] = ir.IRString(v)
				continue
			}
			v, _ := Attr(c, "value")
			out[name] = ir.IRString(v)
		case atom.Textarea:
			out[name] = ir.IRString(TextContent(c))
		case atom.Select:
			if v, ok := selectedOption(c); ok {
				out[name] = ir.IRString(v)
			}
		}
	}
	return out
}

func selectedOption(sel *html.Node) (string, bool) {
	options := FindAll(sel, func(n *html.Node) bool {
		return IsElement(n) && n.DataAtom == atom.Option
	})
	if len(options) == 0 {
		return "", false
	}
	chosen := options[0]
	for _, o := range options {
		if _, ok := Attr(o, "selected"); ok {
			chosen = o
			break
		}
	}
	if v, ok := Attr(chosen, "value"); ok {
		return v, true
	}
	return TextContent(chosen), true
}

// SetValue sets a control's current value: the value attribute of an input
// or the text of a textarea.
func SetValue(n *html.Node, value string) {
	if n.DataAtom == atom.Textarea {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		if value != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		}
		return
	}
	SetAttr(n, "value", value)
}

// ResetForm clears text inputs and textareas under n and unchecks
// checkboxes and radios.
func ResetForm(n *html.Node) {
	for _, c := range FindAll(n, IsElement) {
		switch c.DataAtom {
		case atom.Input:
			kind, _ := Attr(c, "type")
			switch kind {
			case "checkbox", "radio":
				RemoveAttr(c, "checked")
			case "submit", "button", "reset", "hidden":
			default:
				RemoveAttr(c, "value")
			}
		case atom.Textarea:
			SetValue(c, "")
		}
	}
}

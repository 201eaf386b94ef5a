package harness

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
)

// compileSelector parses a step target as a CSS selector group.
// Unquoted attribute values must be CSS identifiers, so numeric keys
// are written quoted: li[data-w-id="2"].
func compileSelector(s string) (cascadia.Selector, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty selector")
	}
	sel, err := cascadia.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	return sel, nil
}

// Select returns the first element under root, in document order, that
// matches sel. Template contents are not searched.
func Select(root *html.Node, sel string) (*html.Node, error) {
	compiled, err := compileSelector(sel)
	if err != nil {
		return nil, err
	}
	// FindAll never descends into <template>, so a match inside one is
	// skipped even though cascadia would accept it.
	found := dom.FindAll(root, compiled.Match)
	if len(found) == 0 {
		return nil, fmt.Errorf("selector %q matched nothing", sel)
	}
	return found[0], nil
}

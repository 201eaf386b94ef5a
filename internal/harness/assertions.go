package harness

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
)

// EvaluateAssertions checks each assertion against the result and the
// final document. It returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, doc *html.Node) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCollection:
			err = assertCollection(result, a)
		case AssertFragments:
			err = assertFragments(doc, a)
		case AssertJournal:
			err = assertJournal(result, a)
		case AssertDiagnostics:
			err = assertDiagnostics(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func assertCollection(result *Result, a Assertion) error {
	want, err := ir.RecordsFromGo(a.Records)
	if err != nil {
		return err
	}
	got, ok := result.Collections[a.Collection]
	if !ok {
		return fmt.Errorf("collection %q was never rendered", a.Collection)
	}
	if !recordsEqual(want, got) {
		return mismatch(canonicalText(want), canonicalText(got))
	}
	return nil
}

// assertFragments compares the data-w-id of each fragment root under the
// container bound to the collection.
func assertFragments(doc *html.Node, a Assertion) error {
	container := dom.Find(doc, func(n *html.Node) bool {
		name, ok := dom.Attr(n, dom.AttrList)
		return dom.IsElement(n) && ok && name == a.Collection
	})
	if container == nil {
		return fmt.Errorf("no container bound to %q", a.Collection)
	}

	got := []string{}
	for _, child := range dom.ElementChildren(container) {
		if id, ok := dom.Attr(child, dom.AttrID); ok {
			got = append(got, id)
		}
	}
	want := a.Keys
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return mismatch(fmt.Sprint(want), fmt.Sprint(got))
	}
	return nil
}

func assertJournal(result *Result, a Assertion) error {
	got := []string{}
	for _, e := range result.Journal {
		if a.Collection == "" || e.Collection == a.Collection {
			got = append(got, e.Op)
		}
	}
	want := a.Ops
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return mismatch(strings.Join(want, ","), strings.Join(got, ","))
	}
	return nil
}

func assertDiagnostics(result *Result, a Assertion) error {
	got := []string{}
	for _, d := range result.Diagnostics {
		got = append(got, string(d.Kind))
	}
	want := a.Kinds
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return mismatch(strings.Join(want, ","), strings.Join(got, ","))
	}
	return nil
}

func mismatch(want, got string) error {
	return fmt.Errorf("expected %s, got %s", want, got)
}

func recordsEqual(a, b []ir.Record) bool {
	return ir.Equal(recordArray(a), recordArray(b))
}

func recordArray(records []ir.Record) ir.IRArray {
	arr := make(ir.IRArray, len(records))
	for i, rec := range records {
		arr[i] = rec
	}
	return arr
}

func canonicalText(records []ir.Record) string {
	data, err := ir.MarshalCanonical(recordArray(records))
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

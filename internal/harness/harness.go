package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/datastore"
	"github.com/roach88/weft/internal/demo/todo"
	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/engine"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
	"github.com/roach88/weft/internal/runtime"
	"github.com/roach88/weft/internal/store"
	"github.com/roach88/weft/internal/testutil"
)

// ErrCodeUnhandled is the step error code for an event no element binds.
const ErrCodeUnhandled = "UNHANDLED"

// Harness holds the pieces of one scenario run.
type Harness struct {
	store   *store.Store
	runtime *runtime.Runtime
	clock   *testutil.DeterministicClock
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns its result. An error means
// the scenario could not be set up or its state could not be read back;
// step and assertion failures are reported in the Result.
//
// Each run uses a fresh in-memory journal.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	doc, reg, data, err := setupPage(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to set up page: %w", err)
	}

	seeds := datastore.New()
	if err := seeds.Define(data); err != nil {
		return nil, fmt.Errorf("failed to define data: %w", err)
	}

	clock := testutil.NewDeterministicClock()
	rt := runtime.New(doc, reg, seeds,
		runtime.WithJournal(st),
		runtime.WithClock(clock),
		runtime.WithSessions(testutil.NewFixedSessionGenerator(scenario.Session)),
	)

	h := &Harness{
		store:   st,
		runtime: rt,
		clock:   clock,
	}

	if err := rt.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.runStep(ctx, i, step, result)
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}
	h.checkReplay(ctx, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, rt.Document()) {
		result.AddError(msg)
	}
	return result, nil
}

// setupPage builds the document, registry and initial data a scenario
// names. Scenario data replaces the page's own.
func setupPage(s *Scenario) (*html.Node, *registry.Registry, map[string][]ir.Record, error) {
	reg := registry.New()
	data := map[string][]ir.Record{}

	var (
		doc *html.Node
		err error
	)
	switch s.Demo {
	case DemoTodo:
		if doc, err = todo.Parse(); err != nil {
			return nil, nil, nil, err
		}
		if err := todo.Register(reg); err != nil {
			return nil, nil, nil, err
		}
		manifest, err := todo.Manifest()
		if err != nil {
			return nil, nil, nil, err
		}
		data = manifest.Data
	case "":
		if doc, err = dom.ParseString(s.Markup); err != nil {
			return nil, nil, nil, err
		}
	default:
		return nil, nil, nil, fmt.Errorf("unknown demo %q", s.Demo)
	}

	if s.Data != nil {
		data = make(map[string][]ir.Record, len(s.Data))
		for name, raw := range s.Data {
			records, err := ir.RecordsFromGo(raw)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("data.%s: %w", name, err)
			}
			data[name] = records
		}
	}
	return doc, reg, data, nil
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) {
	var (
		trace StepTrace
		err   error
	)
	switch {
	case step.Weave != nil:
		trace, err = h.weave(ctx, step.Weave)
	case step.Dispatch != nil:
		trace, err = h.dispatch(ctx, step.Dispatch)
	}
	trace.Index = i
	trace.Error = errorCode(err)

	slog.Debug("scenario step",
		"index", i,
		"kind", trace.Kind,
		"target", trace.Target,
		"action", trace.Action,
		"error", trace.Error,
	)
	result.Steps = append(result.Steps, trace)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case step.ExpectError != "" && trace.Error != step.ExpectError:
		got := trace.Error
		if got == "" {
			got = "success"
		}
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s", i, step.ExpectError, got))
	}
}

func (h *Harness) weave(ctx context.Context, w *WeaveStep) (StepTrace, error) {
	op, ok := ir.ParseOp(w.Op)
	if !ok {
		return StepTrace{Kind: "weave", Target: w.Target, Action: w.Op}, fmt.Errorf("unknown op %q", w.Op)
	}
	trace := StepTrace{Kind: "weave", Target: w.Target, Action: op.String()}

	target, err := Select(h.runtime.Document(), w.Target)
	if err != nil {
		return trace, err
	}
	rec, err := recordOf(w.Record)
	if err != nil {
		return trace, err
	}
	return trace, h.runtime.Weave(ctx, target, op, rec)
}

func (h *Harness) dispatch(ctx context.Context, d *DispatchStep) (StepTrace, error) {
	trace := StepTrace{Kind: "dispatch", Target: d.Target, Action: d.Event}

	target, err := Select(h.runtime.Document(), d.Target)
	if err != nil {
		return trace, err
	}
	if err := setValues(target, d.Values); err != nil {
		return trace, err
	}
	detail, err := recordOf(d.Detail)
	if err != nil {
		return trace, err
	}

	res := h.runtime.Dispatch(ctx, ir.Event{Type: d.Event, Target: target, Detail: detail})
	trace.Handler = res.Handler
	if !res.Handled && res.Err == nil {
		return trace, &stepError{code: ErrCodeUnhandled, msg: fmt.Sprintf("no handler bound for %s on %s", d.Event, d.Target)}
	}
	return trace, res.Err
}

// setValues fills the named form controls under target.
func setValues(target *html.Node, values map[string]string) error {
	for name, value := range values {
		control := dom.Find(target, func(n *html.Node) bool {
			v, ok := dom.Attr(n, "name")
			return dom.IsElement(n) && ok && v == name
		})
		if control == nil {
			return fmt.Errorf("no control named %q under target", name)
		}
		dom.SetValue(control, value)
	}
	return nil
}

// collect reads the final state into result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	result.Session = h.runtime.Session()
	result.Collections = h.runtime.Snapshot()
	result.Diagnostics = append(result.Diagnostics, h.runtime.Diagnostics()...)

	entries, err := h.store.ReadEntries(ctx, store.Filter{})
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	result.Journal = entries

	out, err := h.runtime.Render()
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	result.HTML = out
	return nil
}

// checkReplay rebuilds the collections from the journal and compares
// them to what the engine holds.
func (h *Harness) checkReplay(ctx context.Context, result *Result) {
	replayed, err := h.store.Replay(ctx)
	if err != nil {
		result.AddError(fmt.Sprintf("journal replay failed: %v", err))
		return
	}
	for name, records := range result.Collections {
		if !recordsEqual(records, replayed.Collections[name]) {
			result.AddError(fmt.Sprintf("journal replay of %s diverges from the rendered collection", name))
		}
	}
	for name, records := range replayed.Collections {
		if _, ok := result.Collections[name]; !ok && len(records) > 0 {
			result.AddError(fmt.Sprintf("journal holds records for %s, which is not rendered", name))
		}
	}
	if last := h.clock.Current(); replayed.LastSeq != last {
		result.AddError(fmt.Sprintf("journal last seq is %d, clock is at %d", replayed.LastSeq, last))
	}
}

type stepError struct {
	code string
	msg  string
}

func (e *stepError) Error() string { return e.code + ": " + e.msg }

// errorCode maps an error to the code scenarios name in expect_error.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	var re *registry.RegistryError
	if errors.As(err, &re) {
		return re.Code
	}
	var se *stepError
	if errors.As(err, &se) {
		return se.code
	}
	return "ERROR"
}

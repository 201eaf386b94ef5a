package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/weft/internal/ir"
)

// Snapshot is the golden form of a run: everything a scenario observes,
// with no timestamps or random tokens.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// Canonical renders the snapshot as canonical JSON. Journal entries keep
// their seq, op, collection and key; record bodies are covered by the
// collections.
func (s Snapshot) Canonical() ([]byte, error) {
	collections := ir.IRObject{}
	for name, records := range s.Result.Collections {
		collections[name] = recordArray(records)
	}

	journal := make(ir.IRArray, len(s.Result.Journal))
	for i, e := range s.Result.Journal {
		journal[i] = ir.Obj(
			ir.O("seq", ir.IRInt(e.Seq)),
			ir.O("op", ir.IRString(e.Op)),
			ir.O("collection", ir.IRString(e.Collection)),
			ir.O("key", ir.IRString(e.Key)),
		)
	}

	diagnostics := make(ir.IRArray, len(s.Result.Diagnostics))
	for i, d := range s.Result.Diagnostics {
		diagnostics[i] = ir.Obj(
			ir.O("kind", ir.IRString(d.Kind)),
			ir.O("message", ir.IRString(d.Message)),
		)
	}

	steps := make(ir.IRArray, len(s.Result.Steps))
	for i, st := range s.Result.Steps {
		obj := ir.Obj(
			ir.O("index", ir.IRInt(st.Index)),
			ir.O("kind", ir.IRString(st.Kind)),
			ir.O("target", ir.IRString(st.Target)),
			ir.O("action", ir.IRString(st.Action)),
		)
		if st.Handler != "" {
			obj["handler"] = ir.IRString(st.Handler)
		}
		if st.Error != "" {
			obj["error"] = ir.IRString(st.Error)
		}
		steps[i] = obj
	}

	return ir.MarshalCanonical(ir.Obj(
		ir.O("scenario_name", ir.IRString(s.ScenarioName)),
		ir.O("session", ir.IRString(s.Result.Session)),
		ir.O("steps", steps),
		ir.O("collections", collections),
		ir.O("journal", journal),
		ir.O("diagnostics", diagnostics),
	))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot{ScenarioName: scenarioName, Result: result}.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

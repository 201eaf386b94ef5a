package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/weft/internal/ir"
)

// DemoTodo names the built-in todo demo as a scenario page.
const DemoTodo = "todo"

// Scenario is one scripted run against a page: load it, apply steps in
// order, then check assertions against the final state.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario demonstrates.
	Description string `yaml:"description"`

	// Demo selects a built-in page with its types and data. Exactly one of
	// Demo and Markup is set.
	Demo string `yaml:"demo,omitempty"`

	// Markup is an inline page. No types are registered for it, so it is
	// driven with weave steps only.
	Markup string `yaml:"markup,omitempty"`

	// Data replaces the page's initial collections when set.
	Data map[string][]any `yaml:"data,omitempty"`

	// Session is the journal session token. Defaults to
	// testutil.DefaultSession.
	Session string `yaml:"session,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a direct weave or a dispatched event.
type Step struct {
	Weave    *WeaveStep    `yaml:"weave,omitempty"`
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// ExpectError is the error code the step must fail with. A step
	// without it must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// WeaveStep calls the engine directly on the element Target selects.
type WeaveStep struct {
	Target string         `yaml:"target"`
	Op     string         `yaml:"op"`
	Record map[string]any `yaml:"record,omitempty"`
}

// DispatchStep fires an event at the element Target selects. Values set
// named form controls under the target first.
type DispatchStep struct {
	Event  string            `yaml:"event"`
	Target string            `yaml:"target"`
	Values map[string]string `yaml:"values,omitempty"`
	Detail map[string]any    `yaml:"detail,omitempty"`
}

// Assertion checks the state after all steps ran.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Collection names the bound collection (collection, fragments, and
	// optionally journal).
	Collection string `yaml:"collection,omitempty"`

	// Records is the exact expected collection content, in order.
	Records []any `yaml:"records,omitempty"`

	// Keys is the expected data-w-id of each rendered fragment, in order.
	Keys []string `yaml:"keys,omitempty"`

	// Ops is the expected journal op sequence.
	Ops []string `yaml:"ops,omitempty"`

	// Kinds is the expected diagnostic kind sequence.
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion types.
const (
	AssertCollection  = "collection"
	AssertFragments   = "fragments"
	AssertJournal     = "journal"
	AssertDiagnostics = "diagnostics"
)

// LoadScenario reads a scenario file. Unknown fields are rejected so a
// typo fails loudly instead of silently skipping a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Demo != "" && s.Markup != "":
		return fmt.Errorf("demo and markup are mutually exclusive")
	case s.Demo == "" && s.Markup == "":
		return fmt.Errorf("one of demo or markup is required")
	case s.Demo != "" && s.Demo != DemoTodo:
		return fmt.Errorf("unknown demo %q", s.Demo)
	}

	for name, records := range s.Data {
		if _, err := ir.RecordsFromGo(records); err != nil {
			return fmt.Errorf("data.%s: %w", name, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	switch {
	case step.Weave != nil && step.Dispatch != nil:
		return fmt.Errorf("steps[%d]: weave and dispatch are mutually exclusive", i)
	case step.Weave != nil:
		if _, err := compileSelector(step.Weave.Target); err != nil {
			return fmt.Errorf("steps[%d].weave: %w", i, err)
		}
		if _, ok := ir.ParseOp(step.Weave.Op); !ok {
			return fmt.Errorf("steps[%d].weave: unknown op %q", i, step.Weave.Op)
		}
		if _, err := recordOf(step.Weave.Record); err != nil {
			return fmt.Errorf("steps[%d].weave.record: %w", i, err)
		}
	case step.Dispatch != nil:
		if step.Dispatch.Event == "" {
			return fmt.Errorf("steps[%d].dispatch: event is required", i)
		}
		if _, err := compileSelector(step.Dispatch.Target); err != nil {
			return fmt.Errorf("steps[%d].dispatch: %w", i, err)
		}
		if _, err := recordOf(step.Dispatch.Detail); err != nil {
			return fmt.Errorf("steps[%d].dispatch.detail: %w", i, err)
		}
	default:
		return fmt.Errorf("steps[%d]: one of weave or dispatch is required", i)
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	case AssertCollection:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", i, a.Type)
		}
		if _, err := ir.RecordsFromGo(a.Records); err != nil {
			return fmt.Errorf("assertions[%d].records: %w", i, err)
		}
	case AssertFragments:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", i, a.Type)
		}
	case AssertJournal:
		for j, op := range a.Ops {
			if !journalOps[op] {
				return fmt.Errorf("assertions[%d].ops[%d]: unknown journal op %q", i, j, op)
			}
		}
	case AssertDiagnostics:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}

var journalOps = map[string]bool{
	ir.JournalSeed:       true,
	ir.OpInsert.String(): true,
	ir.OpDelete.String(): true,
	ir.OpUpdate.String(): true,
}

// recordOf converts a decoded YAML mapping. A missing mapping stays nil.
func recordOf(m map[string]any) (ir.Record, error) {
	if m == nil {
		return nil, nil
	}
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRObject), nil
}

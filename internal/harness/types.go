package harness

import (
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/runtime"
)

// StepTrace records what one step did.
type StepTrace struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"` // "weave" or "dispatch"
	Target  string `json:"target"`
	Action  string `json:"action"`            // op name or event type
	Handler string `json:"handler,omitempty"` // dispatch only
	Error   string `json:"error,omitempty"`   // error code, if the step failed
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	Errors      []string               `json:"errors,omitempty"`
	Session     string                 `json:"session"`
	Steps       []StepTrace            `json:"steps"`
	Collections map[string][]ir.Record `json:"collections"`
	Journal     []ir.JournalEntry      `json:"journal"`
	Diagnostics []runtime.Diagnostic   `json:"diagnostics"`

	// HTML is the serialized document after the last step.
	HTML string `json:"-"`
}

// NewResult creates a passing result with nothing recorded yet.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Errors:      []string{},
		Steps:       []StepTrace{},
		Collections: map[string][]ir.Record{},
		Journal:     []ir.JournalEntry{},
		Diagnostics: []runtime.Diagnostic{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRun_TodoDemo(t *testing.T) {
	s := mustParse(t, `
name: add_one
description: add one item
demo: todo
steps:
  - dispatch:
      event: submit
      target: form
      values: { text: "water plants" }
assertions:
  - type: collection
    collection: list
    records:
      - { id: 1, text: "clean the house" }
      - { id: 2, text: "buy milk" }
      - { id: 3, text: "water plants" }
`)
	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "test-session-default", result.Session)
	require.Len(t, result.Journal, 3)
	assert.Equal(t, "insert", result.Journal[2].Op)
	assert.Contains(t, result.HTML, `data-w-id="3"`)
	assert.Contains(t, result.HTML, "water plants")
}

func TestRun_FormIsResetAfterAdd(t *testing.T) {
	s := mustParse(t, `
name: reset
description: the add form clears its input
demo: todo
steps:
  - dispatch:
      event: submit
      target: form
      values: { text: "one" }
  - dispatch:
      event: submit
      target: form
assertions:
  - type: diagnostics
    kinds: [report]
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "Please enter a todo!", result.Diagnostics[0].Message)
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	s := mustParse(t, `
name: dup
description: duplicate insert without expect_error
demo: todo
steps:
  - weave:
      target: ul
      op: insert
      record: { id: 1, text: "dup" }
assertions:
  - type: journal
    ops: [seed, seed]
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0]: unexpected error")
	assert.Equal(t, "DUPLICATE_KEY", result.Steps[0].Error)
}

func TestRun_ExpectedErrorThatDoesNotHappen(t *testing.T) {
	s := mustParse(t, `
name: no_dup
description: expect_error on a step that succeeds
demo: todo
steps:
  - weave:
      target: ul
      op: insert
      record: { id: 9, text: "fresh" }
    expect_error: DUPLICATE_KEY
assertions:
  - type: fragments
    collection: list
    keys: ["1", "2", "9"]
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"steps[0]: expected error DUPLICATE_KEY, got success"}, result.Errors)
}

func TestRun_MissingTargetIsStepError(t *testing.T) {
	s := mustParse(t, `
name: nowhere
description: selector that matches nothing
demo: todo
steps:
  - dispatch:
      event: click
      target: "#missing"
    expect_error: ERROR
assertions:
  - type: diagnostics
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownControlIsStepError(t *testing.T) {
	s := mustParse(t, `
name: bad_control
description: values naming a control that does not exist
demo: todo
steps:
  - dispatch:
      event: submit
      target: form
      values: { title: "x" }
assertions:
  - type: journal
    ops: [seed, seed]
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `no control named "title"`)
}

func TestRun_MissingTemplateIsIsolated(t *testing.T) {
	s := mustParse(t, `
name: broken
description: one container without a template next to a working one
markup: |
  <ul id="bad" data-w-list="bad"></ul>
  <ol id="good" data-w-list="good"><template><li>{{name}}</li></template></ol>
data:
  bad: [{ id: 1 }]
  good: [{ id: 1, name: "kept" }]
assertions:
  - type: fragments
    collection: good
    keys: ["1"]
  - type: fragments
    collection: bad
    keys: []
  - type: diagnostics
    kinds: [container]
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotContains(t, result.Collections, "bad")
}

func TestRunContext_Cancelled(t *testing.T) {
	s := mustParse(t, `
name: cancelled
description: cancelled before load
demo: todo
assertions:
  - type: diagnostics
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, s)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to load page"))
}

func TestRun_UnknownWeaveOpIsStepError(t *testing.T) {
	s := &Scenario{
		Name:        "typo",
		Description: "a weave op that is neither a name nor a sentinel",
		Demo:        DemoTodo,
		Session:     "typo-session",
		Steps: []Step{
			{Weave: &WeaveStep{Target: "ul", Op: "delte", Record: map[string]any{"id": 1}}},
		},
		Assertions: []Assertion{
			{Type: AssertJournal, Ops: []string{"seed", "seed"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown op "delte"`)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, "delte", result.Steps[0].Action)
	assert.Equal(t, "ERROR", result.Steps[0].Error)
	assert.Len(t, result.Collections["list"], 2, "no record may be removed")
}

// Package harness runs scripted scenarios against a page and checks the
// resulting collections, fragments, journal and diagnostics.
//
// # Scenario Format
//
//	name: todo_add_and_delete
//	description: "Add an item through the form, then delete the first"
//	demo: todo
//	session: todo-session
//	steps:
//	  - dispatch:
//	      event: submit
//	      target: form
//	      values: { text: "walk the dog" }
//	  - dispatch:
//	      event: click
//	      target: 'li[data-w-id="1"] button'
//	  - weave:
//	      target: ul
//	      op: insert
//	      record: { id: 2, text: "again" }
//	    expect_error: DUPLICATE_KEY
//	assertions:
//	  - type: collection
//	    collection: list
//	    records: [{ id: 2, text: "buy milk" }, { id: 3, text: "walk the dog" }]
//	  - type: fragments
//	    collection: list
//	    keys: ["2", "3"]
//	  - type: journal
//	    ops: [seed, seed, insert, delete]
//	  - type: diagnostics
//	    kinds: []
//
// A page is either a built-in demo (with its types and data registered)
// or inline markup. Targets are CSS selectors; numeric attribute values
// must be quoted.
//
// # Determinism
//
// Every run gets a fresh in-memory SQLite journal, a
// testutil.DeterministicClock and a fixed session token, so identical
// scenarios produce byte-identical golden snapshots. After the steps the
// journal is replayed and must reproduce the engine's collections.
package harness

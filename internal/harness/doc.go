// Package harness runs registration scenarios end to end.
//
// A scenario drives one session through lookup, selection, form edits and
// submission against an in-process stub backend and an in-memory SQLite
// log, then evaluates assertions over the resulting trace and side
// effects.
//
// # Scenario Format
//
//	name: ambiguous_select_submit
//	description: "Name search, pick second candidate, submit"
//	backend:
//	  lookups:
//	    Lebron: '{"ok":true,"candidates":[...]}'
//	  submit_reply: '{"ok":true,"updatedRow":4}'
//	flow:
//	  - lookup: Lebron
//	    expect: { outcome: candidates, state: ambiguous }
//	  - select: 1
//	  - upper_size: L
//	  - shorts_size: M
//	  - paid: true
//	  - submit: true
//	    expect: { outcome: persisted, state: submitted }
//	assertions:
//	  - type: final_state
//	    state: submitted
//	  - type: request_count
//	    endpoint: submit
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: a step with the given action (and input) ran
//   - trace_order: actions appear in the given order
//   - trace_count: an action ran exactly N times
//   - final_state: the session ended in the given state
//   - request_count: the backend saw N lookup or submit requests
//   - local_log_count: the local log holds N entries
//   - notification: the last notification has the given text
//
// # Deterministic Testing
//
// Every run uses a frozen clock, fixed submission IDs and a fresh
// in-memory database, so identical scenarios produce identical traces
// and golden files stay stable.
package harness

package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/store"
	"github.com/roach88/jersey/internal/testutil"
)

// AssertionContext provides the side effects assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Backend *testutil.Backend
	Notices *notify.Recorder
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Step, event.Action, event.Input, event.State)
	}
	return buf.String()
}

// EvaluateAssertions runs all assertions and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertRequestCount:
		return assertRequestCount(result.Trace, a, actx)
	case AssertLocalLogCount:
		return assertLocalLogCount(result.Trace, a, actx)
	case AssertNotification:
		return assertNotification(result.Trace, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that a step with the action (and input, if
// given) ran.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Action == a.Action && (a.Input == "" || event.Input == a.Input) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with input %q", a.Action, a.Input),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions first appear in the given order.
// Intervening actions are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Action] == 0 {
			positions[event.Action] = i + 1 // 1-indexed for readability
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the action ran exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s ran %d times", a.Action, a.Count),
			Actual:   fmt.Sprintf("ran %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalState(result *Result, a Assertion) error {
	if result.FinalState != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: a.State,
			Actual:   result.FinalState,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertRequestCount(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	var count int
	if a.Endpoint == "lookup" {
		count = len(actx.Backend.Queries())
	} else {
		count = len(actx.Backend.Submissions())
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertRequestCount,
			Expected: fmt.Sprintf("%d %s requests", a.Count, a.Endpoint),
			Actual:   fmt.Sprintf("%d requests", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertLocalLogCount(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	entries, err := actx.Store.Entries(actx.Ctx, store.SubmissionsKey)
	if err != nil {
		return fmt.Errorf("local_log_count: %w", err)
	}
	if len(entries) != a.Count {
		return &AssertionError{
			Type:     AssertLocalLogCount,
			Expected: fmt.Sprintf("%d local log entries", a.Count),
			Actual:   fmt.Sprintf("%d entries", len(entries)),
			Trace:    trace,
		}
	}
	return nil
}

func assertNotification(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	if last := actx.Notices.Last(); last != a.Text {
		return &AssertionError{
			Type:     AssertNotification,
			Expected: fmt.Sprintf("last notification %q", a.Text),
			Actual:   fmt.Sprintf("%q", last),
			Trace:    trace,
		}
	}
	return nil
}

// checkExpect compares a step's trace event with its expect clause.
func checkExpect(ev TraceEvent, expect *ExpectClause) []string {
	if expect == nil {
		if ev.Reject != "" {
			return []string{"unexpectedly rejected: " + ev.Reject}
		}
		return nil
	}

	var errs []string
	mismatch := func(field, want, got string) {
		errs = append(errs, fmt.Sprintf("%s: expected %q, got %q", field, want, got))
	}

	switch {
	case expect.Rejected != "" && !strings.Contains(ev.Reject, expect.Rejected):
		mismatch("rejected", expect.Rejected, ev.Reject)
	case expect.Rejected == "" && ev.Reject != "":
		errs = append(errs, "unexpectedly rejected: "+ev.Reject)
	}
	if expect.Outcome != "" && ev.Outcome != expect.Outcome {
		mismatch("outcome", expect.Outcome, ev.Outcome)
	}
	if expect.State != "" && ev.State != expect.State {
		mismatch("state", expect.State, ev.State)
	}
	if expect.Error != "" && ev.Error != expect.Error {
		mismatch("error", expect.Error, ev.Error)
	}
	if expect.Notice != "" && ev.Notice != expect.Notice {
		mismatch("notice", expect.Notice, ev.Notice)
	}
	return errs
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/session"
	"github.com/roach88/jersey/internal/store"
	"github.com/roach88/jersey/internal/submit"
	"github.com/roach88/jersey/internal/testutil"
)

// DefaultLookupTimeout is the lookup bound used when a scenario does not
// set one.
const DefaultLookupTimeout = 200 * time.Millisecond

// Epoch is the frozen clock time of every run.
var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// errClipboard is returned by the scenario clipboard when it is set to fail.
var errClipboard = errors.New("clipboard unavailable")

// Harness executes one scenario. It is not reusable.
type Harness struct {
	store    *store.Store
	backend  *testutil.Backend
	notices  *notify.Recorder
	session  *session.Session
	clipText string
	logger   *slog.Logger
}

// scenarioClipboard records the last copied text.
type scenarioClipboard struct {
	h    *Harness
	fail bool
}

func (c scenarioClipboard) WriteAll(text string) error {
	if c.fail {
		return errClipboard
	}
	c.h.clipText = text
	return nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database and its own stub
// backend.
//
// Execution flow:
// 1. Start the stub backend and open the store
// 2. Wire a session with a frozen clock and fixed submission IDs
// 3. Execute flow steps, recording the trace and checking expectations
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	backend := newBackend(scenario.Backend)
	defer backend.Close()

	timeout := DefaultLookupTimeout
	if scenario.LookupTimeout != "" {
		if timeout, err = time.ParseDuration(scenario.LookupTimeout); err != nil {
			return nil, fmt.Errorf("lookup_timeout: %w", err)
		}
	}

	h := &Harness{
		store:   st,
		backend: backend,
		notices: &notify.Recorder{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.session = session.New(session.Config{
		Resolver: lookup.New(backend.URL(),
			lookup.WithTimeout(timeout),
			lookup.WithLogger(h.logger)),
		Sink: submit.New(backend.URL(),
			submit.WithLocalLog(st),
			submit.WithNotifier(h.notices),
			submit.WithLogger(h.logger)),
		Notifier:  h.notices,
		Copier:    scenarioClipboard{h: h, fail: scenario.ClipboardFails},
		PaymentID: scenario.PaymentID,
		IDs:       form.NewFixedGenerator(submissionIDs(scenario)...),
		Now:       testutil.NewFakeClock(Epoch).Now,
		Logger:    h.logger,
	})

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}
	result.FinalState = h.session.State().Name()

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Backend: backend,
		Notices: h.notices,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newBackend(spec BackendSpec) *testutil.Backend {
	b := testutil.NewBackend()
	for q, body := range spec.Lookups {
		b.OnLookup(q, body)
	}
	if spec.DefaultLookup != "" {
		b.SetDefaultLookup(spec.DefaultLookup)
	}
	if spec.SubmitReply != "" {
		b.SetSubmitReply(spec.SubmitReply)
	}
	if spec.HangLookups {
		b.HangLookups()
	}
	return b
}

// submissionIDs returns enough IDs for every submit step.
func submissionIDs(s *Scenario) []string {
	if len(s.IDs) > 0 {
		return s.IDs
	}
	ids := make([]string, 0, len(s.Flow))
	for i := range s.Flow {
		ids = append(ids, "submission-"+strconv.Itoa(i+1))
	}
	return ids
}

// executeStep runs one step, appends its trace event and checks the
// step's expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) {
	ev := TraceEvent{Step: index + 1, Action: step.Action()}
	noticesBefore := len(h.notices.Messages())

	var err error
	switch ev.Action {
	case ActionLookup:
		ev.Input = *step.Lookup
		var res lookup.Result
		if res, err = h.session.Lookup(ctx, *step.Lookup); err == nil {
			ev.Outcome = res.Kind.String()
		}
	case ActionSelect:
		ev.Input = strconv.Itoa(*step.Select)
		_, err = h.session.Select(*step.Select)
	case ActionBack:
		err = h.session.Back()
	case ActionUpperSize:
		ev.Input = *step.UpperSize
		err = h.setSize(h.session.SetUpperSize, *step.UpperSize)
	case ActionShortsSize:
		ev.Input = *step.ShortsSize
		err = h.setSize(h.session.SetShortsSize, *step.ShortsSize)
	case ActionPaid:
		ev.Input = strconv.FormatBool(*step.Paid)
		err = h.session.SetPaid(*step.Paid)
	case ActionSubmit:
		var out submit.Outcome
		if out, err = h.session.Submit(ctx); err == nil {
			ev.Outcome = out.Kind.String()
		}
	case ActionCopyID:
		if h.session.CopyPaymentID() {
			ev.Input = h.clipText
			ev.Outcome = "copied"
		} else {
			ev.Outcome = "manual"
		}
	}

	ev.State = h.session.State().Name()
	ev.Error = h.session.ErrorText()
	if msgs := h.notices.Messages(); len(msgs) > noticesBefore {
		ev.Notice = msgs[len(msgs)-1].Text
	}
	if err != nil {
		ev.Reject = err.Error()
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(ev, step.Expect) {
		result.AddError(fmt.Sprintf("flow[%d] %s: %s", index, ev.Action, msg))
	}
}

func (h *Harness) setSize(set func(form.Size) error, raw string) error {
	size, err := form.ParseSize(raw)
	if err != nil {
		return err
	}
	return set(size)
}

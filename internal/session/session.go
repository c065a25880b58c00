// Package session is the registration state machine.
//
// A Session owns exactly one State plus the form fields and the last
// error text. Operations validate the current state, release the lock
// for network calls, and apply the outcome afterwards. An in-flight flag
// rejects overlapping operations with ErrBusy; it is cleared by a defer
// so every exit path, panics included, releases it.
//
//	Unidentified --Lookup--> Searching --exact--> Identified --Submit--> Submitted
//	                              |                   ^
//	                              +--candidates--> Ambiguous --Select--+
//	                                                  |
//	                                 Unidentified <---Back
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/jersey/internal/clipboard"
	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/submit"
)

// Resolver resolves a raw query; implemented by *lookup.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, raw string) lookup.Result
}

// Sink persists a payload; implemented by *submit.Sink.
type Sink interface {
	Submit(ctx context.Context, p form.Payload) submit.Outcome
}

// Config wires a Session. Resolver and Sink are required.
type Config struct {
	Resolver  Resolver
	Sink      Sink
	Notifier  notify.Notifier
	Copier    clipboard.Copier
	PaymentID string
	IDs       form.IDGenerator
	Now       func() time.Time
	Logger    *slog.Logger
}

// Session is one user's pass through the registration flow.
//
// Thread-safety: Session is safe for concurrent use; overlapping
// operations are rejected rather than queued.
type Session struct {
	resolver  Resolver
	sink      Sink
	notifier  notify.Notifier
	copier    clipboard.Copier
	paymentID string
	ids       form.IDGenerator
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	form    form.Form
	errText string
	busy    bool
}

// New creates a session in the Unidentified state.
func New(cfg Config) *Session {
	s := &Session{
		resolver:  cfg.Resolver,
		sink:      cfg.Sink,
		notifier:  cfg.Notifier,
		copier:    cfg.Copier,
		paymentID: cfg.PaymentID,
		ids:       cfg.IDs,
		now:       cfg.Now,
		logger:    cfg.Logger,
		state:     Unidentified{},
	}
	if s.notifier == nil {
		s.notifier = notify.NewChannel(nil)
	}
	if s.copier == nil {
		s.copier = clipboard.System{}
	}
	if s.ids == nil {
		s.ids = form.UUIDv7Generator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Form returns the current form fields.
func (s *Session) Form() form.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Record returns the resolved record, or nil before resolution.
func (s *Session) Record() *identity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordOf(s.state)
}

// ErrorText returns the message of the last failed lookup, or "".
func (s *Session) ErrorText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errText
}

// Busy reports whether a lookup or submit is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Lookup resolves raw and moves the session accordingly. Invalid input
// sets the error text without any network call. Lookup is allowed from
// Unidentified and Identified; a successful exact match overwrites the
// record.
func (s *Session) Lookup(ctx context.Context, raw string) (lookup.Result, error) {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return lookup.Result{}, err
	}
	switch s.state.(type) {
	case Unidentified, Identified:
	default:
		st := s.state.Name()
		s.mu.Unlock()
		return lookup.Result{}, fmt.Errorf("lookup from %s: %w", st, ErrInvalidTransition)
	}

	s.errText = ""
	q := identity.Classify(raw)
	if !q.Valid() {
		s.errText = q.Problem()
		s.mu.Unlock()
		return lookup.Result{Kind: lookup.Invalid, Query: q, Message: q.Problem()}, nil
	}

	prior := recordOf(s.state)
	s.transition(Searching{Query: q, Prior: prior})
	s.busy = true
	s.mu.Unlock()
	defer s.release()

	res := s.resolver.Resolve(ctx, raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch res.Kind {
	case lookup.Exact:
		s.transition(Identified{Record: res.Record})
	case lookup.Candidates:
		s.transition(Ambiguous{Candidates: res.Candidates, Prior: prior})
	default:
		s.errText = res.Message
		s.transition(restingState(prior))
	}
	return res, nil
}

// Select resolves the session to candidate i of an Ambiguous state.
func (s *Session) Select(i int) (identity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return identity.Record{}, err
	}
	amb, ok := s.state.(Ambiguous)
	if !ok {
		return identity.Record{}, fmt.Errorf("select from %s: %w", s.state.Name(), ErrInvalidTransition)
	}
	if i < 0 || i >= len(amb.Candidates) {
		return identity.Record{}, fmt.Errorf("select %d of %d: %w", i, len(amb.Candidates), ErrNoSuchCandidate)
	}

	rec := identity.Project(amb.Candidates[i])
	s.errText = ""
	s.transition(Identified{Record: rec})
	return rec, nil
}

// Back discards the candidate list without selecting and returns to the
// search state (keeping a previously resolved record). No query is made.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return err
	}
	amb, ok := s.state.(Ambiguous)
	if !ok {
		return fmt.Errorf("back from %s: %w", s.state.Name(), ErrInvalidTransition)
	}
	s.transition(restingState(amb.Prior))
	return nil
}

// SetUpperSize sets the jersey size.
func (s *Session) SetUpperSize(size form.Size) error {
	return s.updateForm(func(f *form.Form) { f.UpperSize = size })
}

// SetShortsSize sets the shorts size.
func (s *Session) SetShortsSize(size form.Size) error {
	return s.updateForm(func(f *form.Form) { f.ShortsSize = size })
}

// SetPaid sets the payment confirmation.
func (s *Session) SetPaid(paid bool) error {
	return s.updateForm(func(f *form.Form) { f.Paid = paid })
}

func (s *Session) updateForm(apply func(*form.Form)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(); err != nil {
		return err
	}
	apply(&s.form)
	return nil
}

// Eligible reports whether the current record and form satisfy the
// submission conditions.
func (s *Session) Eligible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Eligible(recordOf(s.state))
}

// CanSubmit reports whether Submit would be attempted now: eligible,
// identified, not yet submitted and idle.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, identified := s.state.(Identified)
	return identified && !s.busy && s.form.Eligible(recordOf(s.state))
}

// Submit composes the payload and hands it to the sink. A Persisted
// outcome moves the session to Submitted; LocalOnly leaves it Identified
// so the user may try again.
func (s *Session) Submit(ctx context.Context) (submit.Outcome, error) {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return submit.Outcome{}, err
	}
	idf, ok := s.state.(Identified)
	if !ok || !s.form.Eligible(&idf.Record) {
		missing := s.form.Missing(recordOf(s.state))
		s.mu.Unlock()
		return submit.Outcome{}, fmt.Errorf("submit (missing %v): %w", missing, ErrNotEligible)
	}

	payload := form.Compose(idf.Record, s.form, s.now(), s.ids.Generate())
	s.busy = true
	s.mu.Unlock()
	defer s.release()

	out := s.sink.Submit(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if out.Kind == submit.Persisted {
		s.transition(Submitted{Record: idf.Record, RowRef: out.RowRef})
	}
	return out, nil
}

// CopyPaymentID copies the payment identifier and reports success. The
// outcome is also surfaced through the notifier.
func (s *Session) CopyPaymentID() bool {
	return clipboard.CopyIdentifier(s.copier, s.paymentID, s.notifier)
}

// PaymentID returns the configured payment identifier.
func (s *Session) PaymentID() string {
	return s.paymentID
}

// checkIdle must be called with mu held.
func (s *Session) checkIdle() error {
	if s.busy {
		return ErrBusy
	}
	if _, done := s.state.(Submitted); done {
		return ErrSubmitted
	}
	return nil
}

// transition must be called with mu held.
func (s *Session) transition(next State) {
	s.logger.Debug("session transition", "from", s.state.Name(), "to", next.Name())
	s.state = next
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

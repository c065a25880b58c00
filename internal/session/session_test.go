package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/lookup"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/store"
	"github.com/roach88/jersey/internal/submit"
	"github.com/roach88/jersey/internal/testutil"
)

var (
	lebron = identity.Record{Name: "Lebron", Phone: "9876543210", JerseyName: "KING", JerseyNumber: "23"}
	kobe   = identity.Record{Name: "Kobe", Phone: "9876500000", JerseyName: "MAMBA", JerseyNumber: "24"}
)

// stubResolver returns canned results and counts calls. A non-nil gate
// blocks Resolve until it is closed.
type stubResolver struct {
	results map[string]lookup.Result
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
}

func (r *stubResolver) Resolve(ctx context.Context, raw string) lookup.Result {
	r.calls.Add(1)
	if r.entered != nil {
		close(r.entered)
	}
	if r.gate != nil {
		<-r.gate
	}
	if res, ok := r.results[raw]; ok {
		return res
	}
	return lookup.Result{Kind: lookup.NoMatch, Message: lookup.MsgNoMatch}
}

type stubSink struct {
	outcome  submit.Outcome
	payloads []form.Payload
}

func (s *stubSink) Submit(ctx context.Context, p form.Payload) submit.Outcome {
	s.payloads = append(s.payloads, p)
	return s.outcome
}

type failingCopier struct{}

func (failingCopier) WriteAll(string) error { return errors.New("no display") }

type recordingCopier struct{ text string }

func (c *recordingCopier) WriteAll(text string) error {
	c.text = text
	return nil
}

func exact(rec identity.Record) lookup.Result {
	return lookup.Result{Kind: lookup.Exact, Record: rec}
}

func candidates(cs ...identity.Candidate) lookup.Result {
	return lookup.Result{Kind: lookup.Candidates, Candidates: cs}
}

var ambiguousLebron = candidates(
	identity.Candidate{Name: "Lebron James", Phone: "111", JerseyName: "KING", JerseyNumber: "23"},
	identity.Candidate{Name: "Lebron Jr", Phone: "222"},
)

func newSession(t *testing.T, r Resolver, s Sink) *Session {
	t.Helper()
	return New(Config{
		Resolver:  r,
		Sink:      s,
		Notifier:  &notify.Recorder{},
		Copier:    &recordingCopier{},
		PaymentID: "club@upi",
		IDs:       form.NewFixedGenerator("sub-1", "sub-2"),
		Now:       testutil.NewFakeClock(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)).Now,
	})
}

func fillForm(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetUpperSize("L"))
	require.NoError(t, s.SetShortsSize("M"))
	require.NoError(t, s.SetPaid(true))
}

func TestNew_StartsUnidentified(t *testing.T) {
	s := newSession(t, &stubResolver{}, &stubSink{})

	assert.Equal(t, Unidentified{}, s.State())
	assert.Nil(t, s.Record())
	assert.False(t, s.Eligible())
	assert.False(t, s.Busy())
	assert.Empty(t, s.ErrorText())
}

func TestLookup_ExactMatchIdentifies(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{"9876543210": exact(lebron)}}
	s := newSession(t, r, &stubSink{})

	res, err := s.Lookup(context.Background(), "9876543210")

	require.NoError(t, err)
	assert.Equal(t, lookup.Exact, res.Kind)
	assert.Equal(t, Identified{Record: lebron}, s.State())
	assert.Equal(t, &lebron, s.Record())
	assert.Empty(t, s.ErrorText())
}

func TestLookup_InvalidQueryMakesNoCall(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "   ", identity.MsgEmptyQuery},
		{"mixed", "abc123", identity.MsgInvalidQuery},
		{"punctuation", "Le-bron", identity.MsgInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stubResolver{}
			s := newSession(t, r, &stubSink{})

			res, err := s.Lookup(context.Background(), tt.raw)

			require.NoError(t, err)
			assert.Equal(t, lookup.Invalid, res.Kind)
			assert.Equal(t, tt.want, s.ErrorText())
			assert.Equal(t, int32(0), r.calls.Load())
			assert.Equal(t, Unidentified{}, s.State())
			assert.False(t, s.Busy())
		})
	}
}

func TestLookup_NoMatchKeepsUnidentified(t *testing.T) {
	s := newSession(t, &stubResolver{}, &stubSink{})

	res, err := s.Lookup(context.Background(), "Nobody")

	require.NoError(t, err)
	assert.Equal(t, lookup.NoMatch, res.Kind)
	assert.Equal(t, Unidentified{}, s.State())
	assert.Equal(t, "No match found.", s.ErrorText())
}

func TestLookup_FailureRestoresPriorRecord(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{
		"9876543210": exact(lebron),
		"5555":       {Kind: lookup.Failure, Message: lookup.MsgTimedOut, Err: lookup.ErrTimeout},
	}}
	s := newSession(t, r, &stubSink{})

	_, err := s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)

	res, err := s.Lookup(context.Background(), "5555")
	require.NoError(t, err)

	assert.Equal(t, lookup.Failure, res.Kind)
	assert.Equal(t, Identified{Record: lebron}, s.State())
	assert.Equal(t, "Request timed out", s.ErrorText())
}

func TestLookup_RelookupOverwritesRecord(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{
		"9876543210": exact(lebron),
		"9876500000": exact(kobe),
	}}
	s := newSession(t, r, &stubSink{})

	_, err := s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	_, err = s.Lookup(context.Background(), "9876500000")
	require.NoError(t, err)

	assert.Equal(t, Identified{Record: kobe}, s.State())
}

func TestLookup_CandidatesThenSelect(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{"Lebron": ambiguousLebron}}
	s := newSession(t, r, &stubSink{})

	_, err := s.Lookup(context.Background(), "Lebron")
	require.NoError(t, err)
	amb, ok := s.State().(Ambiguous)
	require.True(t, ok)
	assert.Len(t, amb.Candidates, 2)
	assert.Nil(t, s.Record())

	rec, err := s.Select(1)
	require.NoError(t, err)

	want := identity.Record{Name: "Lebron Jr", Phone: "222", JerseyName: "Lebron Jr", JerseyNumber: ""}
	assert.Equal(t, want, rec)
	assert.Equal(t, Identified{Record: want}, s.State())
}

func TestSelect_RejectsOutOfRangeAndWrongState(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{"Lebron": ambiguousLebron}}
	s := newSession(t, r, &stubSink{})

	_, err := s.Select(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Lookup(context.Background(), "Lebron")
	require.NoError(t, err)

	_, err = s.Select(2)
	assert.ErrorIs(t, err, ErrNoSuchCandidate)
	_, err = s.Select(-1)
	assert.ErrorIs(t, err, ErrNoSuchCandidate)
	assert.IsType(t, Ambiguous{}, s.State())
}

func TestBack_ReturnsToSearchWithoutQuery(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{
		"9876543210": exact(lebron),
		"Lebron":     ambiguousLebron,
	}}

	t.Run("no prior record", func(t *testing.T) {
		s := newSession(t, r, &stubSink{})
		_, err := s.Lookup(context.Background(), "Lebron")
		require.NoError(t, err)
		calls := r.calls.Load()

		require.NoError(t, s.Back())

		assert.Equal(t, Unidentified{}, s.State())
		assert.Equal(t, calls, r.calls.Load())
	})

	t.Run("prior record kept", func(t *testing.T) {
		s := newSession(t, r, &stubSink{})
		_, err := s.Lookup(context.Background(), "9876543210")
		require.NoError(t, err)
		_, err = s.Lookup(context.Background(), "Lebron")
		require.NoError(t, err)
		assert.Equal(t, &lebron, s.Record())

		require.NoError(t, s.Back())

		assert.Equal(t, Identified{Record: lebron}, s.State())
	})

	t.Run("wrong state", func(t *testing.T) {
		s := newSession(t, r, &stubSink{})
		assert.ErrorIs(t, s.Back(), ErrInvalidTransition)
	})
}

func TestLookup_FromAmbiguousRejected(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{"Lebron": ambiguousLebron}}
	s := newSession(t, r, &stubSink{})
	_, err := s.Lookup(context.Background(), "Lebron")
	require.NoError(t, err)

	_, err = s.Lookup(context.Background(), "Lebron")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestLookup_BusyWhileInFlight(t *testing.T) {
	r := &stubResolver{
		results: map[string]lookup.Result{"9876543210": exact(lebron)},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := newSession(t, r, &stubSink{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Lookup(context.Background(), "9876543210")
		done <- err
	}()
	<-r.entered

	assert.True(t, s.Busy())
	assert.IsType(t, Searching{}, s.State())
	_, err := s.Lookup(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.SetPaid(true), ErrBusy)

	close(r.gate)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
	assert.Equal(t, Identified{Record: lebron}, s.State())
}

func TestEligible_RequiresAllFour(t *testing.T) {
	r := &stubResolver{results: map[string]lookup.Result{"9876543210": exact(lebron)}}
	s := newSession(t, r, &stubSink{})

	fillForm(t, s)
	assert.False(t, s.Eligible(), "no record")

	_, err := s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.True(t, s.Eligible())
	assert.True(t, s.CanSubmit())

	require.NoError(t, s.SetShortsSize(form.Unselected))
	assert.False(t, s.Eligible(), "shorts unselected")
	require.NoError(t, s.SetShortsSize("M"))

	require.NoError(t, s.SetPaid(false))
	assert.False(t, s.Eligible(), "unpaid")
}

func TestSubmit_NotEligible(t *testing.T) {
	sink := &stubSink{}
	r := &stubResolver{results: map[string]lookup.Result{"9876543210": exact(lebron)}}
	s := newSession(t, r, sink)

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	require.NoError(t, s.SetUpperSize("L"))

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Contains(t, err.Error(), "shorts size")
	assert.Empty(t, sink.payloads)
}

func TestSubmit_PersistedIsTerminal(t *testing.T) {
	sink := &stubSink{outcome: submit.Outcome{Kind: submit.Persisted, RowRef: "17"}}
	r := &stubResolver{results: map[string]lookup.Result{"9876543210": exact(lebron)}}
	s := newSession(t, r, sink)
	_, err := s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	fillForm(t, s)

	out, err := s.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, submit.Persisted, out.Kind)
	assert.Equal(t, Submitted{Record: lebron, RowRef: "17"}, s.State())
	require.Len(t, sink.payloads, 1)
	assert.Equal(t, "sub-1", sink.payloads[0].ID)
	assert.Equal(t, lebron, sink.payloads[0].Record)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), sink.payloads[0].CreatedAt)

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.ErrorIs(t, s.SetPaid(false), ErrSubmitted)
	_, err = s.Lookup(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.Len(t, sink.payloads, 1)
	assert.False(t, s.CanSubmit())
}

func TestSubmit_LocalOnlyAllowsRetry(t *testing.T) {
	sink := &stubSink{outcome: submit.Outcome{Kind: submit.LocalOnly, Reason: "Sheet locked"}}
	r := &stubResolver{results: map[string]lookup.Result{"9876543210": exact(lebron)}}
	s := newSession(t, r, sink)
	_, err := s.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	fillForm(t, s)

	out, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, submit.LocalOnly, out.Kind)
	assert.Equal(t, Identified{Record: lebron}, s.State())

	sink.outcome = submit.Outcome{Kind: submit.Persisted, RowRef: "18"}
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.payloads, 2)
	assert.Equal(t, "sub-2", sink.payloads[1].ID)
	assert.IsType(t, Submitted{}, s.State())
}

func TestCopyPaymentID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rec := &notify.Recorder{}
		cp := &recordingCopier{}
		s := New(Config{Resolver: &stubResolver{}, Sink: &stubSink{}, Notifier: rec, Copier: cp, PaymentID: "club@upi"})

		assert.True(t, s.CopyPaymentID())
		assert.Equal(t, "club@upi", cp.text)
		assert.Equal(t, "UPI id copied", rec.Last())
	})

	t.Run("failure degrades to hint", func(t *testing.T) {
		rec := &notify.Recorder{}
		s := New(Config{Resolver: &stubResolver{}, Sink: &stubSink{}, Notifier: rec, Copier: failingCopier{}, PaymentID: "club@upi"})

		assert.False(t, s.CopyPaymentID())
		assert.Equal(t, "Copy failed, copy manually: club@upi", rec.Last())
	})
}

func TestSession_EndToEnd(t *testing.T) {
	b := testutil.NewBackend()
	t.Cleanup(b.Close)
	b.OnLookup("Lebron", `{"ok":true,"candidates":[
		{"name":"Lebron James","phone":"111","jerseyName":"KING","jerseyNumber":23},
		{"name":"Lebron Jr","phone":"222"}
	]}`)
	b.SetSubmitReply(`{"ok":true,"updatedRow":5}`)

	st, err := store.Open(filepath.Join(t.TempDir(), "jersey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := &notify.Recorder{}
	s := New(Config{
		Resolver: lookup.New(b.URL()),
		Sink:     submit.New(b.URL(), submit.WithLocalLog(st), submit.WithNotifier(rec)),
		Notifier: rec,
		IDs:      form.NewFixedGenerator("sub-1"),
	})

	_, err = s.Lookup(context.Background(), "Lebron")
	require.NoError(t, err)
	_, err = s.Select(0)
	require.NoError(t, err)
	fillForm(t, s)
	out, err := s.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, submit.Persisted, out.Kind)
	assert.Equal(t, "Saved! Updated FormData row: 5", rec.Last())
	assert.Equal(t, []string{"Lebron"}, b.Queries())
	require.Len(t, b.Submissions(), 1)
	assert.JSONEq(t,
		`{"name":"Lebron James","phone":"111","jerseyName":"KING","jerseyNumber":"23","upperSize":"L","shortsSize":"M","paid":true}`,
		string(b.Submissions()[0].Body))

	entries, err := submit.History(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// Package submit implements the submission sink: a dual write of a
// composed payload.
//
// Step 1 appends the payload to the local submission log. This is a
// safety net and never fails the operation: any error (or panic) from the
// log is swallowed.
//
// Step 2 posts the payload to the remote endpoint with a text/plain
// content type, which keeps the request "simple" for cross-origin
// deployments. The outcome is Persisted when the server answers ok=true
// and LocalOnly otherwise. The two steps are independent and not
// transactional; there is no retry.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/metrics"
	"github.com/roach88/jersey/internal/notify"
	"github.com/roach88/jersey/internal/store"
)

// ContentType of the submit request.
const ContentType = "text/plain;charset=utf-8"

// LocalOnlyDuration is how long a local-only notice stays visible.
const LocalOnlyDuration = 3000 * time.Millisecond

// User-facing failure reasons.
const (
	ReasonSubmitFailed = "Submit failed"
	ReasonFetchFailed  = "Failed to fetch"
	ReasonMalformed    = "Malformed server response"
	RowRefUnknown      = "n/a"
)

// Kind is the outcome of a submission.
type Kind int

const (
	// LocalOnly means only the local log was written (or attempted).
	LocalOnly Kind = iota
	// Persisted means the remote endpoint accepted the submission.
	Persisted
)

// String returns the snake_case outcome name used in logs and metrics.
func (k Kind) String() string {
	if k == Persisted {
		return "persisted"
	}
	return "local_only"
}

// Outcome is the result of Submit.
type Outcome struct {
	Kind Kind

	// RowRef is the server's row reference for Persisted ("n/a" if absent).
	RowRef string

	// Reason is the user-facing failure text for LocalOnly.
	Reason string

	// Err is the underlying cause of a LocalOnly outcome, if any.
	Err error
}

// Message is the notification text for the outcome.
func (o Outcome) Message() string {
	if o.Kind == Persisted {
		return fmt.Sprintf("Saved! Updated FormData row: %s", o.RowRef)
	}
	return fmt.Sprintf("Saved locally. Server error: %s", o.Reason)
}

// LocalLog is the append-only local store.
type LocalLog interface {
	Append(ctx context.Context, key string, entry any) (int, error)
}

// response is the submit endpoint's JSON answer.
type response struct {
	OK         bool          `json:"ok"`
	Error      json.RawMessage `json:"error"`
	UpdatedRow json.RawMessage `json:"updatedRow"`
}

// Sink performs the dual write.
type Sink struct {
	endpoint string
	client   *http.Client
	local    LocalLog
	key      string
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// WithLocalLog sets the local log written before every remote call.
func WithLocalLog(l LocalLog) Option {
	return func(s *Sink) { s.local = l }
}

// WithNotifier sets where outcome messages are surfaced.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Sink) { s.notifier = n }
}

// WithMetrics records outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sink) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// New creates a Sink posting to endpoint.
func New(endpoint string, opts ...Option) *Sink {
	s := &Sink{
		endpoint: endpoint,
		client:   http.DefaultClient,
		key:      store.SubmissionsKey,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit writes p locally, then remotely, and notifies the outcome. It
// never returns an error; remote failure yields LocalOnly.
func (s *Sink) Submit(ctx context.Context, p form.Payload) Outcome {
	s.saveLocal(ctx, p)

	out := s.persist(ctx, p)

	s.metrics.IncrementSubmit(out.Kind.String())
	s.logger.Info("submission finished",
		"id", p.ID,
		"outcome", out.Kind.String(),
		"row", out.RowRef,
		"error", out.Err,
	)

	if s.notifier != nil {
		if out.Kind == Persisted {
			s.notifier.Notify(out.Message())
		} else {
			s.notifier.NotifyFor(out.Message(), LocalOnlyDuration)
		}
	}
	return out
}

// saveLocal appends p to the local log. Failures stay here.
func (s *Sink) saveLocal(ctx context.Context, p form.Payload) {
	if s.local == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncrementLocalLogFailure()
			s.logger.Debug("local log append panicked", "id", p.ID, "panic", r)
		}
	}()

	if _, err := s.local.Append(ctx, s.key, p.LogEntry()); err != nil {
		s.metrics.IncrementLocalLogFailure()
		s.logger.Debug("local log append failed", "id", p.ID, "error", err)
	}
}

// persist posts p to the remote endpoint.
func (s *Sink) persist(ctx context.Context, p form.Payload) Outcome {
	body, err := json.Marshal(p.RequestBody())
	if err != nil {
		return Outcome{Kind: LocalOnly, Reason: ReasonSubmitFailed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: LocalOnly, Reason: ReasonFetchFailed, Err: fmt.Errorf("build submit request: %w", err)}
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return Outcome{Kind: LocalOnly, Reason: ReasonFetchFailed, Err: fmt.Errorf("submit request: %w", err)}
	}
	defer resp.Body.Close()

	var answer response
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return Outcome{Kind: LocalOnly, Reason: ReasonMalformed, Err: fmt.Errorf("decode submit response: %w", err)}
	}

	if !answer.OK {
		reason := identity.TextOf(answer.Error)
		if reason == "" {
			reason = ReasonSubmitFailed
		}
		return Outcome{Kind: LocalOnly, Reason: reason}
	}

	row := identity.TextOf(answer.UpdatedRow)
	if row == "" {
		row = RowRefUnknown
	}
	return Outcome{Kind: Persisted, RowRef: row}
}

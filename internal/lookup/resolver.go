package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/jersey/internal/identity"
	"github.com/roach88/jersey/internal/metrics"
	"github.com/roach88/jersey/internal/race"
)

// DefaultTimeout bounds how long a lookup may take before it fails.
const DefaultTimeout = 4500 * time.Millisecond

// ErrTimeout is the cause of a Failure produced by the lookup timer.
var ErrTimeout = errors.New("lookup: request timed out")

// errMalformed marks a response body that could not be decoded.
var errMalformed = errors.New("lookup: malformed response")

// response is the lookup service's JSON answer.
type response struct {
	OK         bool                `json:"ok"`
	Error      json.RawMessage `json:"error"`
	Record     json.RawMessage `json:"record"`
	Candidates json.RawMessage `json:"candidates"`
}

// Resolver resolves queries against the remote lookup service.
type Resolver struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// Identical queries in flight at the same time share one request.
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client. The client's own Timeout should be
// zero; the resolver's timer bounds the call.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithMetrics records outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver for the lookup endpoint.
func New(endpoint string, opts ...Option) *Resolver {
	r := &Resolver{
		endpoint: endpoint,
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve classifies raw and, if valid, looks it up.
func (r *Resolver) Resolve(ctx context.Context, raw string) Result {
	q := identity.Classify(raw)
	if !q.Valid() {
		r.metrics.IncrementLookup(Invalid.String())
		return Result{Kind: Invalid, Query: q, Message: q.Problem()}
	}

	start := time.Now()
	flight := r.join(ctx, q.Text)
	r.metrics.ObserveLookupLatency(time.Since(start))

	var res Result
	if flight.Err != nil {
		res = failure(q, flight.Err)
	} else {
		res = reduce(q, flight.Val.(*response))
	}

	r.metrics.IncrementLookup(res.Kind.String())
	r.logger.Debug("lookup resolved",
		"kind", q.Kind.String(),
		"outcome", res.Kind.String(),
		"shared", flight.Shared,
		"duration", time.Since(start),
		"error", res.Err,
	)
	return res
}

// join waits for the shared flight of q. The flight is detached from
// every caller's cancellation and bounded only by the timer; a caller
// whose ctx ends stops waiting without affecting the others.
func (r *Resolver) join(ctx context.Context, q string) singleflight.Result {
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(q, func() (any, error) {
		return race.First[*response](detached,
			func(ctx context.Context) (*response, error) { return r.fetch(ctx, q) },
			race.After[*response](r.timeout, ErrTimeout),
		)
	})

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return singleflight.Result{Err: ctx.Err()}
	}
}

// fetch performs the GET and decodes the body. The HTTP status is not
// inspected: the body's ok flag is authoritative.
func (r *Resolver) fetch(ctx context.Context, q string) (*response, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse lookup url: %w", err)
	}
	params := u.Query()
	params.Set("q", q)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return &body, nil
}

func failure(q identity.Query, err error) Result {
	msg := MsgFetchFailed
	switch {
	case errors.Is(err, ErrTimeout):
		msg = MsgTimedOut
	case errors.Is(err, errMalformed):
		msg = MsgMalformedBody
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = MsgLookupFailed
	}
	return Result{Kind: Failure, Query: q, Message: msg, Err: err}
}

// reduce maps a decoded response to a Result.
func reduce(q identity.Query, body *response) Result {
	if !body.OK {
		msg := identity.TextOf(body.Error)
		if msg == "" {
			msg = MsgLookupFailed
		}
		return Result{Kind: Failure, Query: q, Message: msg}
	}

	if !identity.Falsy(body.Record) {
		var rec identity.Candidate
		raw := bytes.TrimSpace(body.Record)
		if raw[0] != '{' {
			return failure(q, fmt.Errorf("%w: record is not an object", errMalformed))
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return failure(q, fmt.Errorf("%w: record: %v", errMalformed, err))
		}
		return Result{Kind: Exact, Query: q, Record: identity.Project(rec)}
	}

	raw := bytes.TrimSpace(body.Candidates)
	if len(raw) > 0 && raw[0] == '[' {
		var candidates []identity.Candidate
		if err := json.Unmarshal(raw, &candidates); err != nil {
			return failure(q, fmt.Errorf("%w: candidates: %v", errMalformed, err))
		}
		if len(candidates) > 0 {
			return Result{Kind: Candidates, Query: q, Candidates: candidates}
		}
	}

	return Result{Kind: NoMatch, Query: q, Message: MsgNoMatch}
}

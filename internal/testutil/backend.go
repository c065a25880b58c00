package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// SubmitRequest is a submission received by a Backend.
type SubmitRequest struct {
	ContentType string
	Body        []byte
}

// Backend is an in-process stand-in for the remote lookup/submit service.
// Like the real deployment it serves both operations on one URL: GET is a
// lookup keyed by the q parameter, POST is a submission.
//
// Thread-safety: Backend is safe for concurrent use via internal mutex.
type Backend struct {
	server *httptest.Server

	mu            sync.Mutex
	lookups       map[string]string
	defaultLookup string
	submitReply   string
	hangLookups   bool
	hangSubmits   bool
	queries       []string
	submissions   []SubmitRequest
	release       chan struct{}
	closeOnce     sync.Once
}

// NewBackend starts a stub backend. Lookups answer {"ok":true} (no match)
// and submissions answer {"ok":true,"updatedRow":2} until configured
// otherwise. Call Close when done.
func NewBackend() *Backend {
	b := &Backend{
		lookups:       make(map[string]string),
		defaultLookup: `{"ok":true}`,
		submitReply:   `{"ok":true,"updatedRow":2}`,
		release:       make(chan struct{}),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

// URL returns the endpoint URL.
func (b *Backend) URL() string {
	return b.server.URL
}

// Close unblocks hung requests and shuts the server down.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		close(b.release)
		b.server.Close()
	})
}

// OnLookup sets the JSON body returned for query q.
func (b *Backend) OnLookup(q, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups[q] = body
}

// SetDefaultLookup sets the JSON body returned for unknown queries.
func (b *Backend) SetDefaultLookup(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultLookup = body
}

// SetSubmitReply sets the body returned for submissions.
func (b *Backend) SetSubmitReply(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitReply = body
}

// HangLookups makes lookups block until the client gives up or the
// backend is closed.
func (b *Backend) HangLookups() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hangLookups = true
}

// HangSubmits makes submissions block until the client gives up or the
// backend is closed.
func (b *Backend) HangSubmits() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hangSubmits = true
}

// Queries returns the q parameters received, in order.
func (b *Backend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

// Submissions returns the submissions received, in order.
func (b *Backend) Submissions() []SubmitRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SubmitRequest(nil), b.submissions...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		b.serveLookup(w, r)
	case http.MethodPost:
		b.serveSubmit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (b *Backend) serveLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	b.mu.Lock()
	b.queries = append(b.queries, q)
	hang := b.hangLookups
	body, ok := b.lookups[q]
	if !ok {
		body = b.defaultLookup
	}
	b.mu.Unlock()

	if hang {
		b.wait(r)
		return
	}
	writeJSON(w, body)
}

func (b *Backend) serveSubmit(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.submissions = append(b.submissions, SubmitRequest{
		ContentType: r.Header.Get("Content-Type"),
		Body:        data,
	})
	hang := b.hangSubmits
	body := b.submitReply
	b.mu.Unlock()

	if hang {
		b.wait(r)
		return
	}
	writeJSON(w, body)
}

func (b *Backend) wait(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-b.release:
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

package session

import "errors"

// Sentinel errors for rejected operations. They describe what the caller
// did wrong; user-facing outcomes (no match, lookup failure, local-only
// save) are values, not errors.
var (
	// ErrBusy is returned while a lookup or submit is in flight.
	ErrBusy = errors.New("session: operation in flight")

	// ErrInvalidTransition is returned for an operation the current state
	// does not allow.
	ErrInvalidTransition = errors.New("session: invalid transition")

	// ErrNoSuchCandidate is returned by Select for an out-of-range index.
	ErrNoSuchCandidate = errors.New("session: no such candidate")

	// ErrNotEligible is returned by Submit before a record is resolved,
	// both sizes are chosen and payment is confirmed.
	ErrNotEligible = errors.New("session: submission not eligible")

	// ErrSubmitted is returned by any mutation after a successful submit.
	ErrSubmitted = errors.New("session: already submitted")
)

package lookup

import "github.com/roach88/jersey/internal/identity"

// Kind is the reduced outcome of a lookup.
type Kind int

const (
	Failure Kind = iota
	Exact
	Candidates
	NoMatch
	Invalid
)

// String returns the snake_case outcome name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Candidates:
		return "candidates"
	case NoMatch:
		return "no_match"
	case Invalid:
		return "invalid"
	default:
		return "failure"
	}
}

// User-facing messages.
const (
	MsgLookupFailed  = "Lookup failed."
	MsgTimedOut      = "Request timed out"
	MsgFetchFailed   = "Failed to fetch"
	MsgMalformedBody = "Malformed lookup response"
	MsgNoMatch       = "No match found."
)

// Result is the outcome of Resolve.
type Result struct {
	Kind  Kind
	Query identity.Query

	// Record is set for Exact, with jersey fallbacks applied.
	Record identity.Record

	// Candidates is set for Candidates and holds at least one entry.
	Candidates []identity.Candidate

	// Message is the user-facing text for Invalid, NoMatch and Failure.
	Message string

	// Err is the underlying cause of a Failure, if any.
	Err error
}

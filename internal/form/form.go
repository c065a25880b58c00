// Package form composes submissions from a resolved record and the
// user's size and payment choices.
//
// The package performs no I/O: it decides submit-eligibility and shapes
// the payload that the submit package persists.
package form

import (
	"time"

	"github.com/roach88/jersey/internal/identity"
)

// TimestampLayout is the ISO-8601 layout of log entry timestamps
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Form holds the user-supplied fields of a submission.
type Form struct {
	UpperSize  Size
	ShortsSize Size
	Paid       bool
}

// Eligible reports whether a submission may be made: a record is
// resolved, both sizes are chosen and payment is confirmed.
func (f Form) Eligible(rec *identity.Record) bool {
	return rec != nil && f.UpperSize.Selected() && f.ShortsSize.Selected() && f.Paid
}

// Missing lists what still blocks submission, in form order.
func (f Form) Missing(rec *identity.Record) []string {
	var missing []string
	if rec == nil {
		missing = append(missing, "lookup")
	}
	if !f.UpperSize.Selected() {
		missing = append(missing, "jersey size")
	}
	if !f.ShortsSize.Selected() {
		missing = append(missing, "shorts size")
	}
	if !f.Paid {
		missing = append(missing, "payment confirmation")
	}
	return missing
}

// Payload is an immutable submission snapshot.
type Payload struct {
	ID         string
	Record     identity.Record
	UpperSize  Size
	ShortsSize Size
	Paid       bool
	CreatedAt  time.Time
}

// Compose builds a payload from the resolved record and form.
func Compose(rec identity.Record, f Form, now time.Time, id string) Payload {
	return Payload{
		ID:         id,
		Record:     rec,
		UpperSize:  f.UpperSize,
		ShortsSize: f.ShortsSize,
		Paid:       f.Paid,
		CreatedAt:  now,
	}
}

// RequestBody is the wire body of a remote submission.
type RequestBody struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	JerseyName   string `json:"jerseyName"`
	JerseyNumber string `json:"jerseyNumber"`
	UpperSize    string `json:"upperSize"`
	ShortsSize   string `json:"shortsSize"`
	Paid         bool   `json:"paid"`
}

// LogEntry is a payload snapshot as kept in the local submission log.
type LogEntry struct {
	RequestBody
	ID        string `json:"_id,omitempty"`
	Timestamp string `json:"_ts"`
}

// RequestBody returns the wire body for p.
func (p Payload) RequestBody() RequestBody {
	return RequestBody{
		Name:         p.Record.Name,
		Phone:        p.Record.Phone,
		JerseyName:   p.Record.JerseyName,
		JerseyNumber: p.Record.JerseyNumber,
		UpperSize:    string(p.UpperSize),
		ShortsSize:   string(p.ShortsSize),
		Paid:         p.Paid,
	}
}

// LogEntry returns the local log snapshot for p.
func (p Payload) LogEntry() LogEntry {
	return LogEntry{
		RequestBody: p.RequestBody(),
		ID:          p.ID,
		Timestamp:   p.CreatedAt.UTC().Format(TimestampLayout),
	}
}

package identity

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind is the classification of a query.
type Kind int

const (
	// Invalid matches neither the phone nor the name pattern (or is empty).
	Invalid Kind = iota
	// Phone is an all-digit query.
	Phone
	// Name is a query of ASCII letters and spaces only.
	Name
)

// String returns the lowercase kind name used in logs and JSON output.
func (k Kind) String() string {
	switch k {
	case Phone:
		return "phone"
	case Name:
		return "name"
	default:
		return "invalid"
	}
}

// Messages surfaced for rejected queries.
const (
	MsgEmptyQuery   = "Please enter your phone or name."
	MsgInvalidQuery = "Use only digits (phone) or letters/spaces (name)."
)

var (
	phoneRx = regexp.MustCompile(`^\d+$`)
	nameRx  = regexp.MustCompile(`^[A-Za-z ]+$`)
)

// Query is a classified user query. It is re-derived from raw input on
// every edit and never mutated.
type Query struct {
	Raw  string
	Text string // trimmed, otherwise verbatim
	Kind Kind
}

// Trim strips leading and trailing white space, including U+FEFF. U+0085
// is not white space here. The result is otherwise the input unchanged,
// and it is what a lookup sends.
func Trim(raw string) string {
	return strings.TrimFunc(raw, isSpace)
}

func isSpace(r rune) bool {
	return r == '\uFEFF' || (r != '\u0085' && unicode.IsSpace(r))
}

// Classify trims raw input and classifies it.
func Classify(raw string) Query {
	text := Trim(raw)
	q := Query{Raw: raw, Text: text, Kind: Invalid}
	switch {
	case phoneRx.MatchString(text):
		q.Kind = Phone
	case nameRx.MatchString(text):
		q.Kind = Name
	}
	return q
}

// Valid reports whether the query may be sent to the lookup service.
func (q Query) Valid() bool {
	return q.Kind != Invalid
}

// Problem returns the user-facing message for an invalid query, or "" when
// the query is valid.
func (q Query) Problem() string {
	switch {
	case q.Text == "":
		return MsgEmptyQuery
	case q.Kind == Invalid:
		return MsgInvalidQuery
	}
	return ""
}

// Hint describes how input is being interpreted while it is typed.
func Hint(raw string) string {
	switch Classify(raw).Kind {
	case Phone:
		return "Interpreting as phone number"
	case Name:
		return "Interpreting as name"
	}
	return ""
}

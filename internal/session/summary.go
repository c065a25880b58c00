package session

import "github.com/roach88/jersey/internal/identity"

// Placeholder is shown for an empty jersey field.
const Placeholder = "—"

// Labels for the submit action.
const (
	SubmitLabel    = "Submit Details"
	SubmittedLabel = "Submitted ✔"
)

// Summary is a render-ready snapshot of the session.
type Summary struct {
	State        string   `json:"state"`
	Title        string   `json:"title"`
	Name         string   `json:"name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	JerseyName   string   `json:"jerseyName"`
	JerseyNumber string   `json:"jerseyNumber"`
	Candidates   []string `json:"candidates,omitempty"`
	UpperSize    string   `json:"upperSize"`
	ShortsSize   string   `json:"shortsSize"`
	Paid         bool     `json:"paid"`
	Error        string   `json:"error,omitempty"`
	SubmitLabel  string   `json:"submitLabel"`
	CanSubmit    bool     `json:"canSubmit"`
}

// Summary returns the current snapshot.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := recordOf(s.state)
	sum := Summary{
		State:        s.state.Name(),
		Title:        welcome(rec),
		JerseyName:   Placeholder,
		JerseyNumber: Placeholder,
		UpperSize:    string(s.form.UpperSize),
		ShortsSize:   string(s.form.ShortsSize),
		Paid:         s.form.Paid,
		Error:        s.errText,
		SubmitLabel:  SubmitLabel,
	}
	if rec != nil {
		sum.Name = rec.Name
		sum.Phone = rec.Phone
		sum.JerseyName = orPlaceholder(rec.JerseyName)
		sum.JerseyNumber = orPlaceholder(rec.JerseyNumber)
	}

	switch st := s.state.(type) {
	case Ambiguous:
		for _, c := range st.Candidates {
			sum.Candidates = append(sum.Candidates, c.Label())
		}
	case Identified:
		sum.CanSubmit = !s.busy && s.form.Eligible(rec)
	case Submitted:
		sum.SubmitLabel = SubmittedLabel
	}
	return sum
}

func welcome(rec *identity.Record) string {
	if rec == nil {
		return "Lookup not done yet"
	}
	return "Welcome, " + rec.Name
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

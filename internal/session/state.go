package session

import "github.com/roach88/jersey/internal/identity"

// State is the session's position in the registration flow. It is a
// closed set: Unidentified, Searching, Ambiguous, Identified, Submitted.
type State interface {
	Name() string
	isState()
}

// Unidentified is the initial state: no lookup has succeeded.
type Unidentified struct{}

// Searching holds the query of an in-flight lookup. Prior is the record
// resolved before this lookup started, if any.
type Searching struct {
	Query identity.Query
	Prior *identity.Record
}

// Ambiguous holds the candidates of a name lookup awaiting a choice.
// Prior is the record resolved before the lookup, if any.
type Ambiguous struct {
	Candidates []identity.Candidate
	Prior      *identity.Record
}

// Identified holds the resolved record.
type Identified struct {
	Record identity.Record
}

// Submitted is terminal: the remote endpoint accepted the submission.
type Submitted struct {
	Record identity.Record
	RowRef string
}

func (Unidentified) Name() string { return "unidentified" }
func (Searching) Name() string    { return "searching" }
func (Ambiguous) Name() string    { return "ambiguous" }
func (Identified) Name() string   { return "identified" }
func (Submitted) Name() string    { return "submitted" }

func (Unidentified) isState() {}
func (Searching) isState()    {}
func (Ambiguous) isState()    {}
func (Identified) isState()   {}
func (Submitted) isState()    {}

// recordOf returns the record a state carries, if any.
func recordOf(st State) *identity.Record {
	switch st := st.(type) {
	case Identified:
		return &st.Record
	case Submitted:
		return &st.Record
	case Searching:
		return st.Prior
	case Ambiguous:
		return st.Prior
	}
	return nil
}

// restingState is the state to return to when an operation started from
// a state carrying prior and did not produce a new one.
func restingState(prior *identity.Record) State {
	if prior == nil {
		return Unidentified{}
	}
	return Identified{Record: *prior}
}

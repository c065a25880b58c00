package harness

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Input   string `json:"input,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Notice  string `json:"notice,omitempty"`
	Reject  string `json:"rejected,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// FinalState is the session state name after the last step.
	FinalState string `json:"final_state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jersey/internal/form"
)

// Scenario defines one registration run.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend configures the stub lookup/submit service.
	Backend BackendSpec `yaml:"backend"`

	// LookupTimeout bounds each lookup (Go duration syntax). Defaults to
	// DefaultLookupTimeout so hanging lookups finish quickly.
	LookupTimeout string `yaml:"lookup_timeout,omitempty"`

	// PaymentID is the identifier copied by copy_id steps.
	PaymentID string `yaml:"payment_id,omitempty"`

	// ClipboardFails makes copy_id steps fail.
	ClipboardFails bool `yaml:"clipboard_fails,omitempty"`

	// IDs are the submission IDs handed out in order. Defaults to
	// "submission-1", "submission-2", ...
	IDs []string `yaml:"ids,omitempty"`

	// Flow is the sequence of user actions.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and side effects after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// BackendSpec configures the stub service. Bodies are raw JSON.
type BackendSpec struct {
	Lookups       map[string]string `yaml:"lookups,omitempty"`
	DefaultLookup string            `yaml:"default_lookup,omitempty"`
	SubmitReply   string            `yaml:"submit_reply,omitempty"`
	HangLookups   bool              `yaml:"hang_lookups,omitempty"`
}

// FlowStep is a single user action. Exactly one action field is set.
type FlowStep struct {
	Lookup     *string `yaml:"lookup,omitempty"`
	Select     *int    `yaml:"select,omitempty"`
	Back       bool    `yaml:"back,omitempty"`
	UpperSize  *string `yaml:"upper_size,omitempty"`
	ShortsSize *string `yaml:"shorts_size,omitempty"`
	Paid       *bool   `yaml:"paid,omitempty"`
	Submit     bool    `yaml:"submit,omitempty"`
	CopyID     bool    `yaml:"copy_id,omitempty"`

	// Expect validates the step. If nil, the step only has to not be
	// rejected by the session.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Step action names, as they appear in traces and assertions.
const (
	ActionLookup     = "lookup"
	ActionSelect     = "select"
	ActionBack       = "back"
	ActionUpperSize  = "upper_size"
	ActionShortsSize = "shorts_size"
	ActionPaid       = "paid"
	ActionSubmit     = "submit"
	ActionCopyID     = "copy_id"
)

// Action returns the step's action name, or "" if none or several are set.
func (s FlowStep) Action() string {
	var names []string
	if s.Lookup != nil {
		names = append(names, ActionLookup)
	}
	if s.Select != nil {
		names = append(names, ActionSelect)
	}
	if s.Back {
		names = append(names, ActionBack)
	}
	if s.UpperSize != nil {
		names = append(names, ActionUpperSize)
	}
	if s.ShortsSize != nil {
		names = append(names, ActionShortsSize)
	}
	if s.Paid != nil {
		names = append(names, ActionPaid)
	}
	if s.Submit {
		names = append(names, ActionSubmit)
	}
	if s.CopyID {
		names = append(names, ActionCopyID)
	}
	if len(names) != 1 {
		return ""
	}
	return names[0]
}

// ExpectClause specifies the expected effect of a step. Empty fields are
// not checked.
type ExpectClause struct {
	// Outcome is the lookup kind ("exact", "candidates", "no_match",
	// "failure", "invalid") or submit kind ("persisted", "local_only").
	Outcome string `yaml:"outcome,omitempty"`

	// State is the session state after the step.
	State string `yaml:"state,omitempty"`

	// Error is the session's error text after the step.
	Error string `yaml:"error,omitempty"`

	// Notice is the last notification after the step.
	Notice string `yaml:"notice,omitempty"`

	// Rejected is a substring of the error the session returned. When
	// set, the step must be rejected.
	Rejected string `yaml:"rejected,omitempty"`
}

// Assertion validates the trace or side effects.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Input is an optional input match for trace_contains.
	Input string `yaml:"input,omitempty"`

	// Actions is the expected order for trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// Count is used by trace_count, request_count and local_log_count.
	Count int `yaml:"count,omitempty"`

	// Endpoint is "lookup" or "submit" for request_count.
	Endpoint string `yaml:"endpoint,omitempty"`

	// State is the expected final state for final_state.
	State string `yaml:"state,omitempty"`

	// Text is the expected last notification for notification.
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRequestCount  = "request_count"
	AssertLocalLogCount = "local_log_count"
	AssertNotification  = "notification"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.LookupTimeout != "" {
		if d, err := time.ParseDuration(s.LookupTimeout); err != nil || d <= 0 {
			return fmt.Errorf("lookup_timeout: invalid duration %q", s.LookupTimeout)
		}
	}

	for i, step := range s.Flow {
		if step.Action() == "" {
			return fmt.Errorf("flow[%d]: exactly one action is required", i)
		}
		for _, size := range []*string{step.UpperSize, step.ShortsSize} {
			if size == nil {
				continue
			}
			if _, err := form.ParseSize(*size); err != nil {
				return fmt.Errorf("flow[%d]: %w", i, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertRequestCount:
		if a.Endpoint != "lookup" && a.Endpoint != "submit" {
			return fmt.Errorf("assertions[%d]: endpoint must be lookup or submit for request_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request_count", index)
		}
	case AssertLocalLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for local_log_count", index)
		}
	case AssertNotification:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for notification", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

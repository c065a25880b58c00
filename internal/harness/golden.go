package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	FinalState   string       `json:"final_state"`
	Trace        []TraceEvent `json:"trace"`
}

// Snapshot renders result as indented JSON for golden comparison. Field
// order is fixed by the struct definitions, so equal runs render
// identically.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	return json.MarshalIndent(TraceSnapshot{
		ScenarioName: scenarioName,
		FinalState:   result.FinalState,
		Trace:        result.Trace,
	}, "", "  ")
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}

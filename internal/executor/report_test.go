package executor

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestGenerateFinalOutput_Itemized(t *testing.T) {
	tokens := 42
	report := &BatchReport{
		Results: []ExecutionResult{
			{ID: "plan", Success: true, Response: "line one\nline two", Provider: "openai", Model: "gpt-4o-mini", ExecutionTimeMs: 12,
				ActionOutcome: &ActionOutcome{Type: ActionCreate, TargetPath: "plan.md", Success: true}},
			{ID: "lint", Success: false, Error: "rate limited", Sequence: 1, ParallelGroup: "checks"},
		},
		Stats: BatchStats{TasksExecuted: 2, TasksFailed: 1, TotalExecutionTimeMs: 30, AvgExecutionTimeMs: 15, TokensUsed: &tokens},
	}

	out := GenerateFinalOutput(report)
	for _, want := range []string{
		"✓ plan [seq 0] openai/gpt-4o-mini 12ms",
		"    line one line two",
		"    Action: create plan.md ok",
		"✗ lint [seq 1, group checks]",
		"    Error: rate limited",
		"Total: 2 | Succeeded: 1 | Failed: 1 | Elapsed: 30ms | Avg: 15.0ms | Tokens: 42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateFinalOutput_Merged(t *testing.T) {
	report := &BatchReport{
		Merged: &MergedReport{TotalTasks: 3, SuccessfulTasks: 2, CombinedResponse: "## Response 1", ProvidersUsed: []string{"openai"}},
		Stats:  BatchStats{TasksExecuted: 3, TasksFailed: 1},
	}
	out := GenerateFinalOutput(report)
	if !strings.Contains(out, "2/3 tasks succeeded (providers: openai)") || !strings.Contains(out, "## Response 1") {
		t.Errorf("unexpected merged output:\n%s", out)
	}
	if strings.Contains(out, "Tokens:") {
		t.Errorf("tokens should be omitted when unknown:\n%s", out)
	}
	if GenerateFinalOutput(nil) != "" {
		t.Errorf("nil report should render empty")
	}
}

func TestMarshalEnvelope(t *testing.T) {
	env := Envelope{Success: true, Report: &BatchReport{
		Results: []ExecutionResult{{ID: "a", Index: 7, Success: true, Response: "x"}},
		Stats:   BatchStats{TasksExecuted: 1},
	}}
	data, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("MarshalEnvelope() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("success = %v", decoded["success"])
	}
	if strings.Contains(string(data), `"Index"`) || strings.Contains(string(data), `"error"`) {
		t.Errorf("unexpected fields in %s", data)
	}
	if !strings.Contains(string(data), `"tasks_executed": 1`) {
		t.Errorf("stats missing from %s", data)
	}
}

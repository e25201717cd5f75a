package executor

import (
	"strings"
	"testing"
)

func sampleResults() []ExecutionResult {
	return []ExecutionResult{
		{ID: "a", Success: true, Response: "alpha", Provider: "openai", Usage: &Usage{TotalTokens: 10}},
		{ID: "b", Success: false, Error: "boom", Provider: "ollama"},
		{ID: "c", Success: true, Response: "gamma", Provider: "ollama", Usage: &Usage{TotalTokens: 5}},
		{ID: "d", Success: true, Response: "delta", Provider: "openai"},
	}
}

func TestAggregate_Itemized(t *testing.T) {
	report := Aggregate(sampleResults(), false, 400)

	if report.Merged != nil {
		t.Fatalf("Merged = %+v, want nil in itemized mode", report.Merged)
	}
	if len(report.Results) != 4 {
		t.Fatalf("len(Results) = %d, want 4", len(report.Results))
	}
	s := report.Stats
	if s.TasksExecuted != 4 || s.TasksFailed != 1 || s.TotalExecutionTimeMs != 400 || s.AvgExecutionTimeMs != 100 {
		t.Errorf("Stats = %+v", s)
	}
	if s.TokensUsed == nil || *s.TokensUsed != 15 {
		t.Errorf("TokensUsed = %v, want 15", s.TokensUsed)
	}
}

func TestAggregate_TokensOmittedWithoutUsage(t *testing.T) {
	report := Aggregate([]ExecutionResult{{ID: "a", Success: true}}, false, 10)
	if report.Stats.TokensUsed != nil {
		t.Fatalf("TokensUsed = %d, want nil", *report.Stats.TokensUsed)
	}
}

func TestAggregate_Merged(t *testing.T) {
	results := sampleResults()
	report := Aggregate(results, true, 400)

	if report.Results != nil {
		t.Fatalf("Results should be empty in merged mode")
	}
	m := report.Merged
	if m == nil {
		t.Fatal("Merged = nil")
	}

	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		}
	}
	if m.SuccessfulTasks != successes || m.TotalTasks != 4 {
		t.Errorf("merged counts = %d/%d, want %d/4", m.SuccessfulTasks, m.TotalTasks, successes)
	}
	if strings.Join(m.ProvidersUsed, ",") != "openai,ollama" {
		t.Errorf("ProvidersUsed = %v, want [openai ollama]", m.ProvidersUsed)
	}

	want := "## Response 1 (a) - openai\n\nalpha" +
		"\n\n---\n\n" +
		"## Response 2 (c) - ollama\n\ngamma" +
		"\n\n---\n\n" +
		"## Response 3 (d) - openai\n\ndelta"
	if m.CombinedResponse != want {
		t.Errorf("CombinedResponse =\n%s\nwant\n%s", m.CombinedResponse, want)
	}
	if strings.Contains(m.CombinedResponse, "boom") {
		t.Errorf("failed result leaked into merged output")
	}
}

func TestAggregate_MergedAllFailed(t *testing.T) {
	report := Aggregate([]ExecutionResult{{ID: "a", Error: "x"}}, true, 0)
	m := report.Merged
	if m.SuccessfulTasks != 0 || m.CombinedResponse != "" || m.ProvidersUsed == nil || len(m.ProvidersUsed) != 0 {
		t.Fatalf("Merged = %+v, want empty non-nil providers", m)
	}
}

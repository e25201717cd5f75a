package executor

import (
	"strings"
	"testing"
)

func TestBuildPrompt_PassThrough(t *testing.T) {
	prior := []PhaseResults{{Sequence: 0, Results: []ExecutionResult{{ID: "a", Success: true, Response: "alpha"}}}}

	tests := []struct {
		name string
		task PromptTask
	}{
		{"include disabled", PromptTask{Text: "B", Sequence: 1}},
		{"sequence zero", PromptTask{Text: "B", Sequence: 0, IncludePreviousResults: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrompt(tt.task, prior); got != "B" {
				t.Errorf("BuildPrompt() = %q, want %q", got, "B")
			}
		})
	}
}

func TestBuildPrompt_IncludesSuccessfulPriorResults(t *testing.T) {
	prior := []PhaseResults{{Sequence: 0, Results: []ExecutionResult{{ID: "s0", Success: true, Response: "first answer"}}}}
	task := PromptTask{ID: "s1", Text: "B", Sequence: 1, IncludePreviousResults: true}

	want := "Previous step results:\ns0: first answer\n\nCurrent prompt: B"
	if got := BuildPrompt(task, prior); got != want {
		t.Errorf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestBuildPrompt_ExcludesFailedResults(t *testing.T) {
	prior := []PhaseResults{{Sequence: 0, Results: []ExecutionResult{
		{ID: "a", Success: false, Error: "boom", Response: "should not leak"},
	}}}
	task := PromptTask{Text: "B", Sequence: 1, IncludePreviousResults: true}

	if got := BuildPrompt(task, prior); got != "B" {
		t.Errorf("BuildPrompt() = %q, want raw text when nothing is eligible", got)
	}
}

func TestBuildPrompt_FiltersByContextFromSteps(t *testing.T) {
	prior := []PhaseResults{
		{Sequence: 0, Results: []ExecutionResult{
			{ID: "a", Success: true, Response: "from a"},
			{ID: "c", Success: true, Response: "from c"},
		}},
		{Sequence: 1, Results: []ExecutionResult{
			{ID: "d", Success: true, Response: "from d"},
		}},
	}
	task := PromptTask{Text: "B", Sequence: 2, IncludePreviousResults: true, ContextFromSteps: []string{"a", "d"}}

	got := BuildPrompt(task, prior)
	if !strings.Contains(got, "a: from a") || !strings.Contains(got, "d: from d") {
		t.Errorf("BuildPrompt() = %q, want a and d included", got)
	}
	if strings.Contains(got, "from c") {
		t.Errorf("BuildPrompt() = %q, c should be filtered out", got)
	}
	if strings.Index(got, "from a") > strings.Index(got, "from d") {
		t.Errorf("phases should appear in ascending order: %q", got)
	}
}

func TestBuildPrompt_IgnoresSameOrLaterPhases(t *testing.T) {
	prior := []PhaseResults{
		{Sequence: 0, Results: []ExecutionResult{{ID: "a", Success: true, Response: "early"}}},
		{Sequence: 1, Results: []ExecutionResult{{ID: "b", Success: true, Response: "same"}}},
	}
	task := PromptTask{Text: "X", Sequence: 1, IncludePreviousResults: true}

	got := BuildPrompt(task, prior)
	if strings.Contains(got, "same") {
		t.Errorf("BuildPrompt() = %q, must not include results from its own phase", got)
	}
	if !strings.Contains(got, "a: early") {
		t.Errorf("BuildPrompt() = %q, want earlier phase included", got)
	}
}

func TestBuildPrompt_LabelsUnnamedResults(t *testing.T) {
	prior := []PhaseResults{{Sequence: 0, Results: []ExecutionResult{{Index: 2, Success: true, Response: "anon"}}}}
	task := PromptTask{Text: "B", Sequence: 1, IncludePreviousResults: true}

	if got := BuildPrompt(task, prior); !strings.Contains(got, "Step 3: anon") {
		t.Errorf("BuildPrompt() = %q, want Step 3 label", got)
	}
}

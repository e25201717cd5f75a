package executor

import (
	"fmt"
	"strings"
)

// PhaseResults holds the completed results of one phase. It is read-only once
// the phase has finished.
type PhaseResults struct {
	Sequence int
	Results  []ExecutionResult
}

// BuildPrompt returns the user prompt for task, folding in successful results
// from earlier phases when the task asks for them.
func BuildPrompt(task PromptTask, prior []PhaseResults) string {
	if !task.IncludePreviousResults || task.Sequence == 0 {
		return task.Text
	}

	var allowed map[string]struct{}
	if len(task.ContextFromSteps) > 0 {
		allowed = make(map[string]struct{}, len(task.ContextFromSteps))
		for _, id := range task.ContextFromSteps {
			allowed[id] = struct{}{}
		}
	}

	var lines []string
	for _, phase := range prior {
		if phase.Sequence >= task.Sequence {
			continue
		}
		for _, res := range phase.Results {
			if !res.Success {
				continue
			}
			if allowed != nil {
				if _, ok := allowed[res.ID]; !ok {
					continue
				}
			}
			lines = append(lines, fmt.Sprintf("%s: %s", resultLabel(res), res.Response))
		}
	}

	if len(lines) == 0 {
		return task.Text
	}
	return "Previous step results:\n" + strings.Join(lines, "\n") + "\n\nCurrent prompt: " + task.Text
}

func resultLabel(res ExecutionResult) string {
	if res.ID != "" {
		return res.ID
	}
	return fmt.Sprintf("Step %d", res.Index+1)
}

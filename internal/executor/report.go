package executor

import (
	"fmt"
	"strings"

	"promptbatch/internal/utils"

	"github.com/goccy/go-json"
)

const (
	previewLen = 120
	errorLen   = 200
)

// GenerateFinalOutput renders a human-readable summary of a report.
func GenerateFinalOutput(report *BatchReport) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder

	if report.Merged != nil {
		m := report.Merged
		fmt.Fprintf(&sb, "=== Merged Report: %d/%d tasks succeeded", m.SuccessfulTasks, m.TotalTasks)
		if len(m.ProvidersUsed) > 0 {
			fmt.Fprintf(&sb, " (providers: %s)", strings.Join(m.ProvidersUsed, ", "))
		}
		sb.WriteString(" ===\n\n")
		if m.CombinedResponse != "" {
			sb.WriteString(m.CombinedResponse)
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString("=== Batch Results ===\n")
		for _, res := range report.Results {
			writeResultLine(&sb, res)
		}
		sb.WriteString("\n")
	}

	s := report.Stats
	fmt.Fprintf(&sb, "Total: %d | Succeeded: %d | Failed: %d | Elapsed: %dms | Avg: %.1fms",
		s.TasksExecuted, s.TasksExecuted-s.TasksFailed, s.TasksFailed, s.TotalExecutionTimeMs, s.AvgExecutionTimeMs)
	if s.TokensUsed != nil {
		fmt.Fprintf(&sb, " | Tokens: %d", *s.TokensUsed)
	}
	return sb.String()
}

func writeResultLine(sb *strings.Builder, res ExecutionResult) {
	status := "✓"
	if !res.Success {
		status = "✗"
	}
	fmt.Fprintf(sb, "%s %s [seq %d", status, resultLabel(res), res.Sequence)
	if res.ParallelGroup != "" {
		fmt.Fprintf(sb, ", group %s", res.ParallelGroup)
	}
	sb.WriteString("]")
	if res.Provider != "" {
		fmt.Fprintf(sb, " %s", res.Provider)
		if res.Model != "" {
			fmt.Fprintf(sb, "/%s", res.Model)
		}
	}
	fmt.Fprintf(sb, " %dms\n", res.ExecutionTimeMs)

	if res.Success {
		fmt.Fprintf(sb, "    %s\n", utils.OneLine(res.Response, previewLen))
	} else {
		fmt.Fprintf(sb, "    Error: %s\n", utils.OneLine(res.Error, errorLen))
	}
	if a := res.ActionOutcome; a != nil {
		if a.Success {
			fmt.Fprintf(sb, "    Action: %s %s ok\n", a.Type, a.TargetPath)
		} else {
			fmt.Fprintf(sb, "    Action: %s %s failed: %s\n", a.Type, a.TargetPath, utils.OneLine(a.Error, errorLen))
		}
	}
}

// MarshalEnvelope encodes an envelope as indented JSON.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

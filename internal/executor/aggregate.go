package executor

import (
	"fmt"
	"strings"
)

const mergedSeparator = "\n\n---\n\n"

// Aggregate builds the final report from every task's result, itemized or
// merged.
func Aggregate(results []ExecutionResult, mergeResponses bool, totalElapsedMs int64) *BatchReport {
	report := &BatchReport{Stats: computeStats(results, totalElapsedMs)}
	if !mergeResponses {
		report.Results = results
		return report
	}
	report.Merged = mergeResults(results)
	return report
}

func computeStats(results []ExecutionResult, totalElapsedMs int64) BatchStats {
	stats := BatchStats{
		TotalExecutionTimeMs: totalElapsedMs,
		TasksExecuted:        len(results),
	}

	tokens := 0
	sawUsage := false
	for _, res := range results {
		if !res.Success {
			stats.TasksFailed++
		}
		if res.Usage != nil {
			sawUsage = true
			tokens += res.Usage.TotalTokens
		}
	}
	if sawUsage {
		stats.TokensUsed = &tokens
	}
	if stats.TasksExecuted > 0 {
		stats.AvgExecutionTimeMs = float64(totalElapsedMs) / float64(stats.TasksExecuted)
	}
	return stats
}

func mergeResults(results []ExecutionResult) *MergedReport {
	merged := &MergedReport{TotalTasks: len(results), ProvidersUsed: []string{}}
	seen := make(map[string]struct{})
	var sections []string

	for _, res := range results {
		if !res.Success {
			continue
		}
		merged.SuccessfulTasks++
		sections = append(sections, fmt.Sprintf("## Response %d (%s) - %s\n\n%s",
			merged.SuccessfulTasks, resultLabel(res), res.Provider, res.Response))

		if _, ok := seen[res.Provider]; !ok && res.Provider != "" {
			seen[res.Provider] = struct{}{}
			merged.ProvidersUsed = append(merged.ProvidersUsed, res.Provider)
		}
	}

	merged.CombinedResponse = strings.Join(sections, mergedSeparator)
	return merged
}

package parser

import (
	"fmt"

	"promptbatch/internal/executor"

	"github.com/goccy/go-json"
)

// decodeTask decodes one JSON task. A task that does not decode is kept as a
// placeholder carrying the decode error, so it still yields a failed result.
func decodeTask(raw []byte, where string) executor.PromptTask {
	var task executor.PromptTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return malformedTask(raw, fmt.Sprintf("%s: %v", where, err))
	}
	return task
}

func decodeTasks(raws []json.RawMessage) []executor.PromptTask {
	tasks := make([]executor.PromptTask, 0, len(raws))
	for i, raw := range raws {
		tasks = append(tasks, decodeTask(raw, fmt.Sprintf("task #%d", i+1)))
	}
	return tasks
}

// malformedTask builds a placeholder that keeps whichever of id, text and
// sequence still decode on their own.
func malformedTask(raw []byte, reason string) executor.PromptTask {
	task := executor.PromptTask{InputError: reason}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return task
	}
	var s string
	if v, ok := fields["id"]; ok && json.Unmarshal(v, &s) == nil {
		task.ID = s
	}
	s = ""
	if v, ok := fields["text"]; ok && json.Unmarshal(v, &s) == nil {
		task.Text = s
	}
	var seq int
	if v, ok := fields["sequence"]; ok && json.Unmarshal(v, &seq) == nil && seq >= 0 {
		task.Sequence = seq
	}
	return task
}

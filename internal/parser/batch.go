package parser

import (
	"bytes"
	"fmt"
	"io"

	"promptbatch/internal/executor"
	"promptbatch/internal/logger"

	"github.com/goccy/go-json"
)

// Batch is a parsed batch file. Concurrency and Merge are only set when the
// file carries them (JSON object form).
type Batch struct {
	Tasks       []executor.PromptTask
	Concurrency int
	Merge       *bool
}

// ReadBatch reads r fully and parses it with ParseBatch.
func ReadBatch(r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	return ParseBatch(data)
}

// ParseBatch detects the input format from its first non-space byte:
// '[' is a JSON array of tasks, '{' is either a {"tasks": [...]} document, a
// single task object, or JSONL; anything else is the ---TASK--- text format.
// A task that cannot be decoded is kept with its InputError set; only input
// whose overall shape cannot be read is an error.
func ParseBatch(data []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("batch input is empty")
	}

	var batch Batch
	switch trimmed[0] {
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("parse task array: %w", err)
		}
		batch.Tasks = decodeTasks(raws)
	case '{':
		if err := parseObjectOrJSONL(trimmed, &batch); err != nil {
			return nil, err
		}
	default:
		tasks, err := ParseTaskBlocks(string(trimmed))
		if err != nil {
			return nil, err
		}
		batch.Tasks = tasks
	}

	if err := checkTasks(batch.Tasks); err != nil {
		return nil, err
	}
	return &batch, nil
}

// parseObjectOrJSONL handles input starting with '{'. A single JSON document
// is either {"tasks": [...]} with optional run settings or one task; anything
// else is read as JSONL.
func parseObjectOrJSONL(data []byte, batch *Batch) error {
	if !json.Valid(data) {
		tasks, err := ParseJSONL(bytes.NewReader(data), func(msg string) { logger.LogWarn(msg) })
		if err != nil {
			return err
		}
		batch.Tasks = tasks
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("parse batch object: %w", err)
	}
	rawTasks, ok := fields["tasks"]
	if !ok {
		batch.Tasks = []executor.PromptTask{decodeTask(data, "task #1")}
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(rawTasks, &raws); err != nil {
		return fmt.Errorf("parse tasks: %w", err)
	}
	if v, ok := fields["concurrency"]; ok {
		if err := json.Unmarshal(v, &batch.Concurrency); err != nil {
			return fmt.Errorf("parse concurrency: %w", err)
		}
	}
	if v, ok := fields["merge"]; ok {
		if err := json.Unmarshal(v, &batch.Merge); err != nil {
			return fmt.Errorf("parse merge: %w", err)
		}
	}
	batch.Tasks = decodeTasks(raws)
	return nil
}

// checkTasks rejects duplicate ids. An empty list is left for the engine to
// reject so callers see the same validation error for every input form.
func checkTasks(tasks []executor.PromptTask) error {
	seen := make(map[string]int, len(tasks))
	for i, task := range tasks {
		if task.ID == "" {
			continue
		}
		if prev, ok := seen[task.ID]; ok {
			return fmt.Errorf("task #%d has duplicate id %q (first used by task #%d)", i+1, task.ID, prev+1)
		}
		seen[task.ID] = i
	}
	return nil
}

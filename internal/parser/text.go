package parser

import (
	"fmt"
	"strconv"
	"strings"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"
)

const (
	taskSeparator    = "---TASK---"
	contentSeparator = "---CONTENT---"
)

// ParseTaskBlocks reads the plain-text batch format:
//
//	---TASK---
//	id: summarize
//	sequence: 1
//	include_previous: true
//	---CONTENT---
//	Summarize the findings above.
//
// A block that is incomplete or has bad metadata is kept as a task with
// InputError set. Only input without any task block is an error.
func ParseTaskBlocks(data string) ([]executor.PromptTask, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return nil, fmt.Errorf("task file is empty")
	}

	var tasks []executor.PromptTask
	taskIndex := 0
	for _, taskBlock := range strings.Split(trimmed, taskSeparator) {
		taskBlock = strings.TrimSpace(taskBlock)
		if taskBlock == "" {
			continue
		}
		taskIndex++
		tasks = append(tasks, parseTaskBlock(taskBlock, taskIndex))
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks found")
	}
	return tasks, nil
}

func parseTaskBlock(block string, index int) executor.PromptTask {
	meta, content, found := strings.Cut(block, contentSeparator)
	task, err := parseTaskMeta(strings.TrimSpace(meta))
	task.Text = strings.TrimSpace(content)

	switch {
	case !found:
		task.Text = ""
		task.InputError = fmt.Sprintf("task block #%d missing %s separator", index, contentSeparator)
	case err != nil:
		task.InputError = fmt.Sprintf("task block #%d: %v", index, err)
	case task.Text == "":
		task.InputError = fmt.Sprintf("task block #%d missing content", index)
	}
	return task
}

// parseTaskMeta reads every key it can and returns the first problem seen.
func parseTaskMeta(meta string) (executor.PromptTask, error) {
	var task executor.PromptTask
	var action executor.ActionSpec
	var firstErr error
	actionKeys := false

	for _, line := range strings.Split(meta, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rawKey, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(rawKey))
		value = strings.TrimSpace(value)

		switch key {
		case "id":
			task.ID = value
		case "sequence":
			n, err := strconv.Atoi(value)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid sequence %q", value)
			}
			task.Sequence = n
		case "provider":
			task.Provider = value
		case "model":
			task.Model = value
		case "agent":
			task.Agent = value
		case "workspace":
			task.Workspace = value
		case "context_files":
			task.ContextFiles = splitList(value)
		case "parallel_group":
			task.ParallelGroup = value
		case "include_previous", "include_previous_results":
			task.IncludePreviousResults = value == "" || config.ParseBoolFlag(value, false)
		case "context_from", "context_from_steps":
			task.ContextFromSteps = splitList(value)
		case "action":
			actionKeys = true
			action.Type = executor.ActionType(value)
		case "target":
			actionKeys = true
			action.TargetPath = value
		case "position":
			actionKeys = true
			n, err := strconv.Atoi(value)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid position %q", value)
				}
				continue
			}
			action.Position = &n
		case "find":
			actionKeys = true
			action.FindText = value
		case "replace_all":
			actionKeys = true
			action.ReplaceAll = config.ParseBoolFlag(value, false)
		case "case_sensitive":
			actionKeys = true
			v := config.ParseBoolFlag(value, true)
			action.CaseSensitive = &v
		case "whole_word":
			actionKeys = true
			action.WholeWord = config.ParseBoolFlag(value, false)
		}
	}

	if actionKeys {
		if action.Type == "" && firstErr == nil {
			firstErr = fmt.Errorf("action options given without an action type")
		}
		task.Action = &action
	}
	return task, firstErr
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

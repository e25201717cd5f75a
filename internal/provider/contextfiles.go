package provider

import (
	"fmt"
	"io"
	"os"
	"strings"

	"promptbatch/internal/utils"
)

const maxContextFileBytes = 64 * 1024

// loadContextFiles reads each path relative to workspace (or the working
// directory) and renders the readable ones as <file> blocks. Paths outside
// the workspace and unreadable files are skipped with a warning.
func loadContextFiles(workspace string, paths []string) (blocks []string, included []string) {
	if len(paths) == 0 {
		return nil, nil
	}
	root := strings.TrimSpace(workspace)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			logWarn("cannot resolve working directory for context files", "error", err)
			return nil, nil
		}
		root = wd
	}

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := utils.ResolveWithin(root, p)
		if err != nil {
			logWarn("skipping context file", "path", p, "error", err)
			continue
		}
		content, truncated, err := readCapped(abs, maxContextFileBytes)
		if err != nil {
			logWarn("skipping context file", "path", p, "error", err)
			continue
		}
		if truncated {
			logDebug("context file truncated", "path", p, "limit", maxContextFileBytes)
		}
		blocks = append(blocks, fmt.Sprintf("<file path=%q>\n%s\n</file>", p, content))
		included = append(included, p)
	}
	return blocks, included
}

func readCapped(path string, limit int64) (string, bool, error) {
	f, err := os.Open(path) // #nosec G304 -- confined to the workspace above
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(data)) > limit {
		return string(data[:limit]), true, nil
	}
	return string(data), false, nil
}

func augmentPrompt(prompt string, blocks []string) string {
	if len(blocks) == 0 {
		return prompt
	}
	return prompt + "\n\n" + strings.Join(blocks, "\n\n")
}

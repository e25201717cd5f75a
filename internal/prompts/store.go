// Package prompts loads named agent system prompts from a directory.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"
	ilogger "promptbatch/internal/logger"
	"promptbatch/internal/utils"

	"gopkg.in/yaml.v3"
)

// agentFile is the YAML shape of an agent definition.
type agentFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
	Enabled     *bool  `yaml:"enabled"`
}

var agentExtensions = []string{".yaml", ".yml", ".md"}

// Store resolves agent names to files under dir: <name>.yaml, <name>.yml or
// <name>.md, first match wins.
type Store struct {
	dir string
}

var _ executor.PromptStore = (*Store)(nil)

func NewStore(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir)}
}

// Dir is the directory agents are read from.
func (s *Store) Dir() string { return s.dir }

// GetByName returns the named agent, or (nil, nil) when no file defines it.
func (s *Store) GetByName(ctx context.Context, name string) (*executor.StoredPrompt, error) {
	if err := config.ValidateAgentName(name); err != nil {
		return nil, err
	}
	if s == nil || s.dir == "" {
		return nil, nil
	}

	for _, ext := range agentExtensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := utils.ResolveWithin(s.dir, name+ext)
		if err != nil {
			if errors.Is(err, utils.ErrPathEscapesRoot) {
				ilogger.LogWarn("refusing agent file outside agents dir", "agent", name, "dir", s.dir)
				return nil, err
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}

		data, err := os.ReadFile(path) // #nosec G304 -- confined to the agents dir
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read agent %q: %w", name, err)
		}
		if ext == ".md" {
			return &executor.StoredPrompt{Name: name, Prompt: strings.TrimRight(string(data), "\r\n"), IsEnabled: true}, nil
		}
		return parseAgentYAML(name, data)
	}
	return nil, nil
}

func parseAgentYAML(name string, data []byte) (*executor.StoredPrompt, error) {
	var f agentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse agent %q: %w", name, err)
	}
	prompt := strings.TrimSpace(f.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("agent %q has no prompt", name)
	}
	stored := &executor.StoredPrompt{Name: name, Prompt: prompt, IsEnabled: true}
	if n := strings.TrimSpace(f.Name); n != "" {
		stored.Name = n
	}
	if f.Enabled != nil {
		stored.IsEnabled = *f.Enabled
	}
	return stored, nil
}

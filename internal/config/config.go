package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultConcurrency = 3
	MaxConcurrency     = 10
	DefaultStaggerMs   = 100
)

// Config holds the resolved settings for one batch run.
type Config struct {
	InputPath      string
	Provider       string
	Model          string
	Concurrency    int
	MergeResponses bool
	MonthlyBudget  float64
	BudgetFile     string
	AgentsDir      string
	Workspace      string
	StaggerMs      int
	Output         string // "text" or "json"
}

// EnvFlagEnabled returns true when the environment variable exists and is not
// explicitly set to a falsey value ("0/false/no/off").
func EnvFlagEnabled(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	val = strings.TrimSpace(strings.ToLower(val))
	switch val {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

func ParseBoolFlag(val string, defaultValue bool) bool {
	val = strings.TrimSpace(strings.ToLower(val))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ValidateAgentName accepts [A-Za-z0-9_-]+ so names can double as file names.
func ValidateAgentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("agent name is empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return fmt.Errorf("agent name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// ClampConcurrency maps non-positive values to the default and caps the rest
// at MaxConcurrency.
func ClampConcurrency(n int) int {
	if n <= 0 {
		return DefaultConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

// ValidateOutput normalises the output format flag.
func ValidateOutput(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "text":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text or json)", format)
	}
}

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	config "promptbatch/internal/config"
	"promptbatch/internal/parser"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadEnvFile loads provider keys from a dotenv file before viper reads the
// environment. Variables already set in the environment win. An explicitly
// named file must exist; the implicit ./.env is optional.
func loadEnvFile(cmd *cobra.Command, opts *runOptions) error {
	path := ""
	explicit := false
	if cmd.Flags().Changed("env-file") {
		path = strings.TrimSpace(opts.EnvFile)
		if path == "" {
			return fmt.Errorf("--env-file flag requires a value")
		}
		explicit = true
	} else if val := strings.TrimSpace(os.Getenv("PROMPTBATCH_ENV_FILE")); val != "" {
		path = val
		explicit = true
	} else {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	logInfo("loaded env file", "path", path)
	return nil
}

func buildRunConfig(cmd *cobra.Command, args []string, opts *runOptions, v *viper.Viper) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := &config.Config{InputPath: "-"}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		cfg.InputPath = strings.TrimSpace(args[0])
	}

	cfg.Provider = stringSetting(flags.Changed("provider"), opts.Provider, v, "provider")
	cfg.Model = stringSetting(flags.Changed("model"), opts.Model, v, "model")

	if flags.Changed("concurrency") {
		if opts.Concurrency < 1 {
			return nil, fmt.Errorf("--concurrency must be at least 1, got %d", opts.Concurrency)
		}
		cfg.Concurrency = opts.Concurrency
	} else {
		cfg.Concurrency = v.GetInt("concurrency")
	}

	if flags.Changed("merge") {
		cfg.MergeResponses = opts.Merge
	} else {
		cfg.MergeResponses = v.GetBool("merge")
	}

	if flags.Changed("stagger-ms") {
		cfg.StaggerMs = opts.StaggerMs
	} else {
		cfg.StaggerMs = v.GetInt("stagger-ms")
	}
	if cfg.StaggerMs < 0 {
		return nil, fmt.Errorf("stagger-ms must not be negative, got %d", cfg.StaggerMs)
	}

	if flags.Changed("monthly-budget") {
		cfg.MonthlyBudget = opts.MonthlyBudget
	} else {
		cfg.MonthlyBudget = v.GetFloat64("monthly-budget")
	}
	if cfg.MonthlyBudget < 0 {
		return nil, fmt.Errorf("monthly-budget must not be negative, got %v", cfg.MonthlyBudget)
	}

	output, err := config.ValidateOutput(stringSetting(flags.Changed("output"), opts.Output, v, "output"))
	if err != nil {
		return nil, err
	}
	cfg.Output = output

	cfg.BudgetFile = stringSetting(flags.Changed("budget-file"), opts.BudgetFile, v, "budget-file")
	cfg.AgentsDir = stringSetting(flags.Changed("agents-dir"), opts.AgentsDir, v, "agents-dir")
	cfg.Workspace = stringSetting(flags.Changed("workspace"), opts.Workspace, v, "workspace")

	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		if cfg.BudgetFile == "" {
			cfg.BudgetFile = filepath.Join(home, ".promptbatch", "budget.json")
		}
		if cfg.AgentsDir == "" {
			cfg.AgentsDir = filepath.Join(home, ".promptbatch", "agents")
		}
	}
	if cfg.Workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		cfg.Workspace = wd
	}

	return cfg, nil
}

// applyBatchSettings lets a {"tasks": ...} document set concurrency and merge
// unless the matching flag was given. The result is clamped to 1..10.
func applyBatchSettings(cmd *cobra.Command, cfg *config.Config, batch *parser.Batch) {
	if !cmd.Flags().Changed("concurrency") && batch.Concurrency > 0 {
		cfg.Concurrency = batch.Concurrency
	}
	if !cmd.Flags().Changed("merge") && batch.Merge != nil {
		cfg.MergeResponses = *batch.Merge
	}
	if clamped := config.ClampConcurrency(cfg.Concurrency); clamped != cfg.Concurrency {
		logWarn("concurrency adjusted", "requested", cfg.Concurrency, "using", clamped)
		cfg.Concurrency = clamped
	}
}

func stringSetting(changed bool, flagValue string, v *viper.Viper, key string) string {
	if changed {
		return strings.TrimSpace(flagValue)
	}
	return strings.TrimSpace(v.GetString(key))
}

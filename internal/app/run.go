package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"promptbatch/internal/budget"
	config "promptbatch/internal/config"
	"promptbatch/internal/executor"
	ilogger "promptbatch/internal/logger"
	"promptbatch/internal/mutator"
	"promptbatch/internal/parser"
	"promptbatch/internal/prompts"
	"promptbatch/internal/provider"

	"github.com/spf13/cobra"
)

const (
	exitOK             = 0
	exitSetupError     = 1
	exitPartialFailure = 2
)

func runBatch(cmd *cobra.Command, args []string, opts *runOptions, s streams) int {
	if err := loadEnvFile(cmd, opts); err != nil {
		logError(err.Error())
		return exitSetupError
	}

	v, err := config.NewViper(opts.ConfigFile)
	if err != nil {
		logError("failed to load config", "error", err)
		return exitSetupError
	}

	cfg, err := buildRunConfig(cmd, args, opts, v)
	if err != nil {
		logError(err.Error())
		return exitSetupError
	}

	batch, err := readBatch(cfg.InputPath, s.in)
	if err != nil {
		logError("failed to read batch", "input", cfg.InputPath, "error", err)
		return exitSetupError
	}
	applyBatchSettings(cmd, cfg, batch)
	for i := range batch.Tasks {
		if batch.Tasks[i].Workspace == "" {
			batch.Tasks[i].Workspace = cfg.Workspace
		}
	}

	deps, tracker, err := buildDeps(cfg)
	if err != nil {
		logError(err.Error())
		return exitSetupError
	}

	name := ilogger.CurrentWrapperName()
	fmt.Fprintf(s.err, "[%s]\n", name)
	fmt.Fprintf(s.err, "  Tasks: %d\n", len(batch.Tasks))
	fmt.Fprintf(s.err, "  Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(s.err, "  Workspace: %s\n", cfg.Workspace)
	if l := ilogger.ActiveLogger(); l != nil {
		fmt.Fprintf(s.err, "  Log: %s\n", l.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := executor.NewEngine(deps, executor.WithStagger(time.Duration(cfg.StaggerMs)*time.Millisecond))
	env := engine.Execute(ctx, batch.Tasks, executor.RunOptions{
		ConcurrencyCap: cfg.Concurrency,
		MergeResponses: cfg.MergeResponses,
	})

	if err := writeEnvelope(s, cfg.Output, env); err != nil {
		logError("failed to write output", "error", err)
		return exitSetupError
	}
	writeSpend(ctx, s.err, tracker)
	return exitCodeFor(env)
}

func readBatch(path string, stdin io.Reader) (*parser.Batch, error) {
	if path == "" || path == "-" {
		return parser.ReadBatch(stdin)
	}
	f, err := os.Open(path) // #nosec G304 -- user-supplied batch file
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.ReadBatch(f)
}

func buildDeps(cfg *config.Config) (executor.Deps, *budget.Tracker, error) {
	registry := provider.NewRegistry(config.Models(), provider.WithDefaults(cfg.Provider, cfg.Model))

	var tracker *budget.Tracker
	if cfg.BudgetFile != "" {
		t, err := budget.Open(cfg.BudgetFile, cfg.MonthlyBudget)
		if err != nil {
			return executor.Deps{}, nil, err
		}
		tracker = t
	} else {
		tracker = budget.New(cfg.MonthlyBudget)
	}

	store := prompts.NewStore(cfg.AgentsDir)
	files := mutator.New(cfg.Workspace)

	logInfo("collaborators ready",
		"provider", cfg.Provider, "model", cfg.Model, "budget_file", cfg.BudgetFile,
		"monthly_budget", cfg.MonthlyBudget, "budget_period", tracker.Period(),
		"agents_dir", store.Dir(), "workspace", files.Root())

	return executor.Deps{
		Provider: registry,
		Prompts:  store,
		Budget:   tracker,
		Mutator:  files,
	}, tracker, nil
}

// writeSpend prints the month's spend, per provider, after a run.
func writeSpend(ctx context.Context, w io.Writer, tracker *budget.Tracker) {
	if tracker == nil {
		return
	}
	status, err := tracker.Status(ctx)
	if err != nil {
		logWarn("budget status unavailable", "error", err)
		return
	}
	breakdown := tracker.Breakdown()
	logInfo("budget ledger", "period", tracker.Period(), "spent", status.CurrentSpending, "by_provider", breakdown)

	fmt.Fprintf(w, "  Spend %s: $%.4f", tracker.Period(), status.CurrentSpending)
	if status.MonthlyBudget > 0 {
		fmt.Fprintf(w, " of $%.2f", status.MonthlyBudget)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %s: $%.4f\n", name, breakdown[name])
	}
}

func writeEnvelope(s streams, format string, env executor.Envelope) error {
	if format == "json" {
		data, err := executor.MarshalEnvelope(env)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, string(data))
		return err
	}

	if !env.Success {
		_, err := fmt.Fprintf(s.err, "ERROR: %s\n", env.Error)
		return err
	}
	_, err := fmt.Fprintln(s.out, executor.GenerateFinalOutput(env.Report))
	return err
}

func exitCodeFor(env executor.Envelope) int {
	switch {
	case !env.Success:
		return exitSetupError
	case env.Report != nil && env.Report.Stats.TasksFailed > 0:
		return exitPartialFailure
	default:
		return exitOK
	}
}

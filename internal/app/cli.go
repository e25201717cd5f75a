package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	config "promptbatch/internal/config"
	ilogger "promptbatch/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "0.1.0"

var exitFn = os.Exit

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type runOptions struct {
	ConfigFile    string
	EnvFile       string
	Provider      string
	Model         string
	Concurrency   int
	Merge         bool
	MonthlyBudget float64
	BudgetFile    string
	AgentsDir     string
	Workspace     string
	StaggerMs     int
	Output        string
}

// Run is the program entrypoint for cmd/promptbatch/main.go.
func Run() {
	exitFn(run(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}

func run(args []string, s streams) int {
	cmd := newRootCommand(s)
	cmd.SetArgs(args)
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	if err := cmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(s.err, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(s streams) *cobra.Command {
	name := ilogger.CurrentWrapperName()
	cmd := &cobra.Command{
		Use:           name,
		Short:         "Run batches of LLM prompts in ordered, concurrency-capped phases",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.AddCommand(newRunCommand(s), newCleanupCommand(s), newVersionCommand(name, s))
	return cmd
}

func newRunCommand(s streams) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Execute a batch of prompt tasks (stdin when no file is given)",
		Long: `Execute a batch of prompt tasks.

The batch may be a JSON array of tasks, a {"tasks": [...]} object, JSONL (one
task per line), or ---TASK--- / ---CONTENT--- text blocks.

Exit codes: 0 all tasks succeeded, 1 the batch was rejected or setup failed,
2 at least one task failed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runWithLoggerAndCleanup(s, logSuffixFor(args), func() int {
				return runBatch(cmd, args, opts, s)
			})
			if code == 0 {
				return nil
			}
			return exitError{code: code}
		},
	}
	addRunFlags(cmd.Flags(), opts)
	return cmd
}

func addRunFlags(fs *pflag.FlagSet, opts *runOptions) {
	fs.StringVar(&opts.ConfigFile, "config", "", "Config file path (default: $HOME/.promptbatch/config.*)")
	fs.StringVar(&opts.EnvFile, "env-file", "", "dotenv file with provider API keys (default: ./.env when present)")

	fs.StringVar(&opts.Provider, "provider", "", "Default provider for tasks that do not name one")
	fs.StringVar(&opts.Model, "model", "", "Default model for tasks on the default provider")
	fs.IntVarP(&opts.Concurrency, "concurrency", "c", 0, "Maximum tasks in flight per wave (1-10, default 3)")
	fs.BoolVar(&opts.Merge, "merge", false, "Merge successful responses into one document")
	fs.IntVar(&opts.StaggerMs, "stagger-ms", 0, "Delay between task starts within a wave, in milliseconds (default 100)")

	fs.Float64Var(&opts.MonthlyBudget, "monthly-budget", 0, "Monthly spend limit in USD (0 = unlimited)")
	fs.StringVar(&opts.BudgetFile, "budget-file", "", "Spend ledger path (default: $HOME/.promptbatch/budget.json)")
	fs.StringVar(&opts.AgentsDir, "agents-dir", "", "Agent prompt directory (default: $HOME/.promptbatch/agents)")
	fs.StringVar(&opts.Workspace, "workspace", "", "Root for context files and actions (default: current directory)")
	fs.StringVarP(&opts.Output, "output", "o", "", "Output format: text or json")
}

func newVersionCommand(name string, s streams) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version and exit",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(s.out, "%s version %s\n", name, version)
			return nil
		},
	}
}

func newCleanupCommand(s streams) *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Remove log files left behind by finished runs",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := runCleanupMode(s); code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}
}

func runCleanupMode(s streams) int {
	stats, err := cleanupLogsFn()
	if err != nil {
		fmt.Fprintf(s.err, "Cleanup failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(s.out, "Cleanup completed")
	fmt.Fprintf(s.out, "Files scanned: %d\n", stats.Scanned)
	fmt.Fprintf(s.out, "Files deleted: %d\n", stats.Deleted)
	for _, f := range stats.DeletedFiles {
		fmt.Fprintf(s.out, "  - %s\n", f)
	}
	fmt.Fprintf(s.out, "Files kept: %d\n", stats.Kept)
	if stats.Errors > 0 {
		fmt.Fprintf(s.out, "Deletion errors: %d\n", stats.Errors)
	}
	return 0
}

var cleanupLogsFn = ilogger.CleanupOldLogs

// logSuffixFor names the log after the batch file so concurrent runs are easy
// to tell apart. Stdin batches get no suffix.
func logSuffixFor(args []string) string {
	if len(args) == 0 || args[0] == "-" {
		return ""
	}
	base := filepath.Base(args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runWithLoggerAndCleanup(s streams, logSuffix string, fn func() int) (exitCode int) {
	logger, err := ilogger.NewLoggerWithSuffix(logSuffix)
	if err != nil {
		fmt.Fprintf(s.err, "ERROR: failed to initialize logger: %v\n", err)
		return 1
	}
	ilogger.SetLogger(logger)

	defer func() {
		logger := ilogger.ActiveLogger()
		if logger != nil {
			logger.Flush()
		}
		if err := ilogger.CloseLogger(); err != nil {
			fmt.Fprintf(s.err, "ERROR: failed to close logger: %v\n", err)
		}
		if logger == nil {
			return
		}

		if exitCode != 0 {
			if entries := logger.ExtractRecentErrors(10); len(entries) > 0 {
				fmt.Fprintln(s.err, "\n=== Recent Errors ===")
				for _, entry := range entries {
					fmt.Fprintln(s.err, entry)
				}
			}
			fmt.Fprintf(s.err, "Log file: %s\n", logger.Path())
			return
		}
		_ = logger.RemoveLogFile()
	}()

	scheduleStartupCleanup()

	return fn()
}

// scheduleStartupCleanup removes stale logs from earlier runs unless
// PROMPTBATCH_SKIP_LOG_CLEANUP is set.
func scheduleStartupCleanup() {
	if config.EnvFlagEnabled("PROMPTBATCH_SKIP_LOG_CLEANUP") {
		return
	}
	stats, err := cleanupLogsFn()
	if err != nil {
		ilogger.LogWarn("startup log cleanup failed", "error", err)
		return
	}
	if stats.Deleted > 0 {
		ilogger.LogInfo("removed stale log files", "deleted", stats.Deleted, "kept", stats.Kept)
	}
}

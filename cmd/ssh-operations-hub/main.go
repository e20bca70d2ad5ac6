package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/UMD-UROC/ssh-operations-hub/internal/config"
	"github.com/UMD-UROC/ssh-operations-hub/internal/errors"
	"github.com/UMD-UROC/ssh-operations-hub/internal/executor"
	"github.com/UMD-UROC/ssh-operations-hub/internal/logging"
	"github.com/UMD-UROC/ssh-operations-hub/internal/output"
	"github.com/UMD-UROC/ssh-operations-hub/internal/progress"
	"github.com/UMD-UROC/ssh-operations-hub/internal/ssh"
	"github.com/UMD-UROC/ssh-operations-hub/internal/target"
	"github.com/UMD-UROC/ssh-operations-hub/internal/task"
)

var (
	// Build-time variables (set via -ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global configuration
	cfg *config.Config

	// CLI flags
	primarySuffixes   []string
	secondarySuffixes []string
	primaryUser       string
	secondaryUser     string
	command           string
	ipPrefix          string
	maxParallel       int
	connectTimeout    time.Duration
	globalTimeout     time.Duration
	outputMode        string
	logLevel          string
	logFormat         string
	quiet             bool
	showProgress      bool
	dryRun            bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ssh-operations-hub",
	Short: "Execute a command on a whitelisted fleet of hosts over SSH",
	Long: `ssh-operations-hub dispatches one shell command to a fleet of hosts that
share a network prefix, addressing each host by its numeric IP suffix. Suffixes
are validated against a configurable allow-list, connections run concurrently
under a bounded worker pool, and every output line is labeled with the host it
came from.

The $CLIENT_NUM placeholder in usernames and commands is replaced with each
host's suffix, so one invocation can run per-host-parameterized commands.

Examples:
  # Run uptime on clients 1, 2 and 3 as root
  ssh-operations-hub --ip 1,2,3 --cmd uptime

  # Primary group as root, secondary group as admin
  ssh-operations-hub --primary 1,2 --secondary 20,21 --suser admin --cmd "df -h"

  # Per-host parameterized command on a different prefix
  ssh-operations-hub --ip 1,2 --ip-prefix 192.168.1 --cmd "hostname client$CLIENT_NUM"`,
	SilenceUsage:  true,
	SilenceErrors: false,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return &SetupError{Message: fmt.Sprintf("unexpected argument %q: IP suffixes are comma-separated flag values (--ip 1,2,3)", args[0])}
		}
		return nil
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := config.NewManager().Load()
		if err != nil {
			return &SetupError{Message: fmt.Sprintf("failed to load configuration: %v", err)}
		}
		cfg = loadedCfg

		if err := overrideConfigWithFlags(cmd); err != nil {
			return err
		}

		if len(primarySuffixes) == 0 && len(secondarySuffixes) == 0 {
			return &SetupError{Message: "no IP addresses specified: use --ip, --primary or --secondary"}
		}
		if command == "" {
			return &SetupError{Message: "no command specified"}
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(os.Stdout)
	},
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ssh-operations-hub %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
			fmt.Printf("Built: %s\n", buildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.Flags()
	flags.StringSliceVar(&primarySuffixes, "primary", nil, "IP suffixes for the primary group")
	flags.StringSliceVar(&primarySuffixes, "ip", nil, "IP suffixes (alias for --primary)")
	flags.StringSliceVar(&secondarySuffixes, "secondary", nil, "IP suffixes for the secondary group")
	flags.StringVar(&primaryUser, "puser", "root", "Username for the primary group")
	flags.StringVar(&primaryUser, "user", "root", "Username for the primary group (alias for --puser)")
	flags.StringVar(&secondaryUser, "suser", "admin", "Username for the secondary group")
	flags.StringVar(&command, "cmd", "", "Command to execute on all clients (required)")
	flags.StringVar(&ipPrefix, "ip-prefix", "", "Custom IP prefix (e.g. 192.168.1)")
	flags.IntVar(&maxParallel, "max-parallel", 10, "Maximum concurrent SSH connections")
	flags.DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "Per-connection timeout")
	flags.DurationVar(&globalTimeout, "global-timeout", time.Hour, "Total execution timeout (0 for no timeout)")
	flags.StringVar(&outputMode, "output", "streamed", "Output format (streamed, buffered, json)")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (info, error)")
	flags.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&showProgress, "progress", false, "Show progress for long runs")
	flags.BoolVar(&dryRun, "dry-run", false, "Show the execution plan without connecting")

	rootCmd.MarkFlagsMutuallyExclusive("primary", "ip")
	rootCmd.MarkFlagsMutuallyExclusive("puser", "user")
}

// overrideConfigWithFlags applies explicitly set CLI flags over loaded config.
func overrideConfigWithFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if flags.Changed("ip-prefix") {
		cfg.IPPrefix = ipPrefix
	}
	if flags.Changed("max-parallel") {
		cfg.MaxParallel = maxParallel
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = connectTimeout
	}
	if flags.Changed("global-timeout") {
		cfg.GlobalTimeout = globalTimeout
	}
	if flags.Changed("output") {
		cfg.Output = outputMode
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("quiet") {
		cfg.Quiet = quiet
	}
	if flags.Changed("progress") {
		cfg.ShowProgress = showProgress
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}

	if err := config.NewManager().Validate(cfg); err != nil {
		return &SetupError{Message: fmt.Sprintf("configuration validation failed: %v", err)}
	}
	return nil
}

func run(writer io.Writer) error {
	logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet).
		WithRunID(uuid.NewString())
	logger.LogConfigLoad("defaults, config files and CLI flags")

	// The client binary is checked once up front; a missing client aborts
	// before any task starts.
	if err := ssh.CheckClient(); err != nil {
		return &SetupError{Message: err.Error()}
	}

	prefix, err := target.ValidatePrefix(cfg.IPPrefix)
	if err != nil {
		return &SetupError{Message: err.Error()}
	}

	allowed := target.ExpandAllowList(cfg.AllowedIPs)

	primaryHosts := validateGroup(prefix, primarySuffixes, allowed, logger)
	secondaryHosts := validateGroup(prefix, secondarySuffixes, allowed, logger)

	if len(primaryHosts) == 0 && len(secondaryHosts) == 0 {
		return &SetupError{Message: "no valid IP addresses found"}
	}

	tasks := task.Build(primaryHosts, secondaryHosts, primaryUser, secondaryUser, command)

	if cfg.DryRun {
		return renderPlan(tasks, writer)
	}

	return dispatch(tasks, logger, writer)
}

// validateGroup validates one suffix group, logging per-suffix errors and
// duplicate advisories without failing the run.
func validateGroup(prefix string, suffixes []string, allowed map[string]struct{}, logger *logging.Logger) []target.Host {
	hosts, duplicates, errs := target.ValidateSuffixes(prefix, suffixes, allowed)
	for _, e := range errs {
		logger.LogValidationError(e)
	}
	for _, d := range duplicates {
		logger.LogDuplicateSuffix(d)
	}
	return hosts
}

func dispatch(tasks []task.Task, logger *logging.Logger, writer io.Writer) error {
	formatter := output.NewFormatter(output.Mode(cfg.Output), writer)

	// The interrupt-driven context is the single cancellation token observed
	// by every worker and propagated into each spawned ssh process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := executor.NewDispatcher(executor.Config{
		MaxParallel:    cfg.MaxParallel,
		ConnectTimeout: cfg.ConnectTimeout,
		GlobalTimeout:  cfg.GlobalTimeout,
		SSHOptions:     cfg.SSHOptions,
	}, ssh.NewClient(logger), logger)

	var tracker *progress.Tracker
	if cfg.ShowProgress {
		tracker = progress.NewTracker(len(tasks), os.Stderr, true)
	}

	collector := errors.NewCollector()
	emitted := 0

	for result := range dispatcher.Dispatch(ctx, tasks) {
		emitted++

		if tracker != nil {
			tracker.Update(result.Success)
		}

		if !result.Success {
			collector.AddMessage(result.Message)
		}

		if err := formatter.Format(result); err != nil {
			logger.Error("failed to format output", "error", err, "host", result.Task.Host.Addr())
		}
	}

	if tracker != nil {
		tracker.Finish()
	}
	if err := formatter.Finalize(); err != nil {
		logger.Error("failed to finalize output", "error", err)
	}

	if ctx.Err() != nil {
		logger.LogShutdown("interrupt")
		return &ExecutionError{Message: "interrupted: stopped all SSH connections"}
	}
	if dispatcher.TimedOut() {
		return &ExecutionError{Message: fmt.Sprintf("global timeout of %v exceeded with %d/%d results collected",
			cfg.GlobalTimeout, emitted, len(tasks))}
	}
	if collector.HasFailures() {
		return &ExecutionError{Message: fmt.Sprintf("execution failed on %d/%d hosts: %s",
			collector.Count(), len(tasks), collector.Summary())}
	}

	return nil
}

// planTask is the YAML shape of one task in the dry-run plan.
type planTask struct {
	User    string `yaml:"user"`
	Host    string `yaml:"host"`
	Command string `yaml:"command"`
}

type plan struct {
	IPPrefix       string     `yaml:"ip-prefix"`
	MaxParallel    int        `yaml:"max-parallel"`
	ConnectTimeout string     `yaml:"connect-timeout"`
	GlobalTimeout  string     `yaml:"global-timeout"`
	SSHOptions     []string   `yaml:"ssh-options"`
	Tasks          []planTask `yaml:"tasks"`
}

// renderPlan writes the resolved execution plan as YAML without connecting.
func renderPlan(tasks []task.Task, writer io.Writer) error {
	p := plan{
		IPPrefix:       cfg.IPPrefix,
		MaxParallel:    cfg.MaxParallel,
		ConnectTimeout: cfg.ConnectTimeout.String(),
		GlobalTimeout:  cfg.GlobalTimeout.String(),
		SSHOptions:     cfg.SSHOptions,
	}
	for _, t := range tasks {
		p.Tasks = append(p.Tasks, planTask{User: t.User, Host: t.Host.Addr(), Command: t.Command})
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return &SetupError{Message: fmt.Sprintf("failed to render plan: %v", err)}
	}
	if _, err := writer.Write(data); err != nil {
		return &SetupError{Message: fmt.Sprintf("failed to write plan: %v", err)}
	}
	return nil
}

// ExecutionError represents a failed run (exit code 1)
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// SetupError represents an error during setup/configuration (exit code 2)
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	return e.Message
}

// getExitCode determines the exit code based on error type.
// Returns:
//   - 0: Success (all hosts succeeded)
//   - 1: Execution failure (one or more hosts failed, timeout, interrupt)
//   - 2: Setup error (invalid arguments, configuration issues, missing client)
func getExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch err.(type) {
	case *SetupError:
		return 2
	case *ExecutionError:
		return 1
	default:
		return 2
	}
}

// Package cmd provides the root command and CLI setup for ultraclean.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	"ultraclean.dev/pkg/ultraclean/internal/controller"
	"ultraclean.dev/pkg/ultraclean/internal/domain"
	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitPartial = 3
)

// errPartialFailure marks a run that finished but recorded per-file failures
// while --strict was set.
var errPartialFailure = errors.New("completed with failures")

var fsAdapter adapter.SourceFSAdapter
var pythonAdapter adapter.PythonFileAdapter
var yamlAdapter adapter.YAMLDocAdapter
var reportStore adapter.ReportStore
var loader domain.Loader
var patcher domain.Patcher
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by every pipeline.
var reportsOutputDirFlag string

// excludePatterns is a root-level flag that filters files for every pipeline.
var excludePatterns []string

var parallelFlag int
var logFileFlag string
var verboseFlag bool
var strictFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	pythonAdapter = adapter.NewLocalPythonFileAdapter()
	yamlAdapter = adapter.NewLocalYAMLDocAdapter()
	reportStore = adapter.NewReportStoreWithFS(fsAdapter)
	loader = domain.NewLoader(fsAdapter, pythonAdapter)
	patcher = domain.NewPatcher(pythonAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		yamlAdapter,
		ui,
		loader,
		patcher,
	)
}

const rootLongDescription = `Ultraclean scans a Python source tree for duplicated and inconsistent
computations, rewrites known patterns into calls to one canonical helper and
checks YAML layout files for colliding coordinates.

Reports are written as CSV files into the output directory (--out).
Files are only modified by the autopatch commands with --write and by "all".`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "ultraclean",
		Short:        "Python duplication scanner and codemod engine",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			runID := configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
			slog.Debug("Starting run", "run", runID, "args", os.Args[1:])
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel parser workers")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().BoolVar(&strictFlag, strictFlagName, viper.GetBool(strictConfigKey), "exit with code 3 when any file or assignment failed")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(strictFlagName), strictConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)

	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartialFailure):
		return exitPartial
	}

	return exitFailure
}

// runOptions collects the shared pipeline options from flags and config.
func runOptions(args []string) domain.RunOptions {
	return domain.RunOptions{
		Root:    m.Path(args[0]),
		Out:     m.Path(viper.GetString(outputFlagName)),
		Exclude: viper.GetStringSlice(excludeConfigKey),
		Threads: viper.GetInt(parallelConfigKey),
	}
}

// finish turns per-file failures into errPartialFailure when --strict is set.
// A fatal error always wins.
func finish(err error, summaries ...m.Summary) error {
	return checkFailures(viper.GetBool(strictConfigKey), err, summaries...)
}

func checkFailures(strict bool, err error, summaries ...m.Summary) error {
	if err != nil {
		return err
	}

	if !strict {
		return nil
	}

	failures := 0
	for _, s := range summaries {
		failures += s.Errors
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d failures", errPartialFailure, failures)
	}

	return nil
}

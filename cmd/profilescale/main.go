// Command profilescale adjusts insulin dosing settings by a sensitivity factor.
//
// It reads the settings folder (basal profile, carb ratios, insulin
// sensitivities and the two composite profiles), scales every value and
// writes the result to a sibling folder named after the factor:
//
//	profilescale 1.2   # settings → settings120, 20% less sensitive
//	profilescale       # default factor 0.8, settings → settings80
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"profilescale/internal/config"
	"profilescale/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	baseDir    string
	settings   string
	outputDir  string
	parallel   bool
	workers    int
	keepGoing  bool
	dryRun     bool
	noHistory  bool
	verbose    bool

	// Set up by PersistentPreRunE
	cfg    *config.Config
	base   string
	logger *zap.Logger
)

// rootCmd scales the settings folder
var rootCmd = &cobra.Command{
	Use:   "profilescale [factor]",
	Short: "Scale basal rates, carb ratios and insulin sensitivities by a factor",
	Long: `Creates a new settings folder with every dosing parameter adjusted by factor.

  basal rate    rate * factor, rounded to 0.05 U/h
  carb ratio    ratio / factor, whole numbers kept, else one decimal
  sensitivity   sensitivity / factor, whole mg/dL or one decimal mmol/L

A factor below 1.0 makes the profile more sensitive, above 1.0 less
sensitive. Files that are not dosing settings are copied unchanged.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runScale,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <base-dir>/"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Base directory (default: directory of the executable, or PROFILESCALE_BASE_DIR)")
	rootCmd.PersistentFlags().StringVar(&settings, "settings", "", "Settings folder, relative to the base directory")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output folder (default: <settings><factor*100>)")
	rootCmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "Process files concurrently")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Concurrent jobs with --parallel")
	rootCmd.PersistentFlags().BoolVar(&keepGoing, "keep-going", false, "Process every file even after a failure")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Compute everything but write nothing")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record the run in the history journal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, base, err = loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err = logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Verbose:    verbose,
	})
	if err != nil {
		return err
	}
	logger.Debug("Configuration loaded", zap.String("base_dir", base), zap.Any("config", cfg))
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	dir := baseDir
	if dir == "" {
		dir = os.Getenv("PROFILESCALE_BASE_DIR")
	}
	probe := &config.Config{BaseDir: dir}
	resolved, err := probe.ResolveBaseDir()
	if err != nil {
		return nil, "", err
	}

	path := configPath
	if path == "" {
		path = filepath.Join(resolved, config.DefaultFileName)
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if baseDir != "" {
		c.BaseDir = baseDir
	}
	if settings != "" {
		c.SettingsDir = settings
	}
	if outputDir != "" {
		c.OutputDir = outputDir
	}
	if flags.Changed("parallel") {
		c.Execution.Parallel = parallel
	}
	if flags.Changed("workers") {
		c.Execution.Workers = workers
	}
	if flags.Changed("keep-going") {
		c.Execution.KeepGoing = keepGoing
	}
	if noHistory {
		c.History.Enabled = false
	}

	if err := c.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	resolved, err = c.ResolveBaseDir()
	if err != nil {
		return nil, "", err
	}
	return c, resolved, nil
}

// commandContext returns the command's context, or Background when the
// command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"profilescale/internal/profile"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the base directory when no --config is given.
const DefaultFileName = "profilescale.yaml"

// Config holds all profilescale configuration.
type Config struct {
	// Directory the relative paths below are resolved against.
	// Empty means the directory holding the executable.
	BaseDir string `yaml:"base_dir"`

	// Input folder with the current settings.
	SettingsDir string `yaml:"settings_dir"`

	// Output folder. Empty derives it from the settings folder and the factor.
	OutputDir string `yaml:"output_dir"`

	// Factor used when none is given on the command line.
	Factor float64 `yaml:"factor"`

	// Settings files to adjust and how. Everything else is copied.
	Files []FileConfig `yaml:"files"`

	Execution ExecutionConfig `yaml:"execution"`
	History   HistoryConfig   `yaml:"history"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FileConfig binds one settings filename to a transform kind.
type FileConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // basal, carb_ratios, isf, profile
}

// HistoryConfig configures the run journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty: <base_dir>/.profilescale/history.db
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	files := make([]FileConfig, 0, len(profile.DefaultFiles()))
	for _, f := range profile.DefaultFiles() {
		files = append(files, FileConfig{Name: f.Name, Kind: f.Kind.String()})
	}

	return &Config{
		SettingsDir: "settings",
		Factor:      profile.DefaultFactor,
		Files:       files,
		Execution: ExecutionConfig{
			Workers: 4,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("PROFILESCALE_BASE_DIR"); dir != "" {
		c.BaseDir = dir
	}
	if v := os.Getenv("PROFILESCALE_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PROFILESCALE_FACTOR %q: %w", v, err)
		}
		c.Factor = f
	}
	if level := os.Getenv("PROFILESCALE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SettingsDir) == "" {
		return fmt.Errorf("settings_dir must not be empty")
	}
	if _, err := profile.NewFactor(c.Factor); err != nil {
		return fmt.Errorf("invalid default factor: %w", err)
	}
	if _, err := c.FileRules(); err != nil {
		return err
	}
	if err := c.Execution.validate(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); c.Watch.Debounce != "" && err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	return c.Logging.validate()
}

// FileRules converts the files table into transform rules.
func (c *Config) FileRules() ([]profile.FileRule, error) {
	if len(c.Files) == 0 {
		return nil, fmt.Errorf("files: at least one settings file is required")
	}
	rules := make([]profile.FileRule, 0, len(c.Files))
	seen := make(map[string]bool, len(c.Files))
	for i, f := range c.Files {
		if f.Name == "" || f.Name != filepath.Base(f.Name) {
			return nil, fmt.Errorf("files[%d]: invalid name %q", i, f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("files[%d]: %q listed twice", i, f.Name)
		}
		seen[f.Name] = true

		kind, err := profile.ParseKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("files[%d] (%s): %w", i, f.Name, err)
		}
		rules = append(rules, profile.FileRule{Name: f.Name, Kind: kind})
	}
	return rules, nil
}

// ResolveBaseDir returns BaseDir, or the directory of the running executable.
func (c *Config) ResolveBaseDir() (string, error) {
	if c.BaseDir != "" {
		return filepath.Abs(c.BaseDir)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// InputPath returns the settings folder.
func (c *Config) InputPath(base string) string {
	return resolve(base, c.SettingsDir)
}

// OutputPath returns the output folder for factor f: the configured
// output_dir, or a sibling of the settings folder named after it with
// the factor in percent appended (settings → settings80 for 0.8).
func (c *Config) OutputPath(base string, f profile.Factor) string {
	if c.OutputDir != "" {
		return resolve(base, c.OutputDir)
	}
	in := c.InputPath(base)
	return filepath.Join(filepath.Dir(in), OutputDirName(filepath.Base(in), f))
}

// HistoryPath returns the run journal database path.
func (c *Config) HistoryPath(base string) string {
	if c.History.Path != "" {
		return resolve(base, c.History.Path)
	}
	return filepath.Join(base, ".profilescale", "history.db")
}

// GetDebounce returns the watch debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// OutputDirName is the settings folder name followed by the factor in percent.
func OutputDirName(settingsFolder string, f profile.Factor) string {
	return settingsFolder + strconv.FormatInt(f.Percent(), 10)
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/awcal/internal/activity"
)

// Default config file path.
const DefaultConfigPath = "~/.config/awcal/config.yaml"

// HostnamePlaceholder is replaced with the machine hostname in bucket names.
const HostnamePlaceholder = "{hostname}"

// Config holds all awcal configuration.
type Config struct {
	Processing ProcessingConfig `yaml:"processing"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Titles     TitlesConfig     `yaml:"titles"`
	Storage    StorageConfig    `yaml:"storage"`
	Retention  RetentionConfig  `yaml:"retention"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ProcessingConfig struct {
	AggregationThresholdSeconds float64 `yaml:"aggregation_threshold_seconds"`
	ShowAFKInSummary            bool    `yaml:"show_afk_in_summary"`
	Timezone                    string  `yaml:"timezone"`
}

type TrackerConfig struct {
	ServerURL       string `yaml:"server_url"`
	AFKBucket       string `yaml:"afk_bucket"`
	WindowBucket    string `yaml:"window_bucket"`
	StopwatchBucket string `yaml:"stopwatch_bucket"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type TitlesConfig struct {
	SuffixRules map[string]string `yaml:"suffix_rules"`
	EditorApps  []string          `yaml:"editor_apps"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type RetentionConfig struct {
	Days int `yaml:"days"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values that cannot be turned into processing options.
func (c *Config) Validate() error {
	if c.Processing.AggregationThresholdSeconds < 0 {
		return fmt.Errorf("invalid processing.aggregation_threshold_seconds %v: must not be negative",
			c.Processing.AggregationThresholdSeconds)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tracker.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid tracker.timeout_seconds %d: must be positive", c.Tracker.TimeoutSeconds)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("invalid retention.days %d: must not be negative", c.Retention.Days)
	}
	return nil
}

// Location resolves processing.timezone. An empty value or "Local" means
// the system zone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Processing.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid processing.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// TitleRules converts the titles section into sanitizer rules.
func (c *Config) TitleRules() activity.TitleRules {
	suffixes := make(map[string]string, len(c.Titles.SuffixRules))
	for app, suffix := range c.Titles.SuffixRules {
		suffixes[app] = suffix
	}
	return activity.TitleRules{
		Suffixes:   suffixes,
		EditorApps: append([]string(nil), c.Titles.EditorApps...),
	}
}

// ProcessingOptions builds the options for one processing run. The observer
// is left for the caller to attach.
func (c *Config) ProcessingOptions() (activity.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return activity.Options{}, err
	}
	return activity.Options{
		AggregationThreshold: time.Duration(c.Processing.AggregationThresholdSeconds * float64(time.Second)),
		ShowAFKInSummary:     c.Processing.ShowAFKInSummary,
		Location:             loc,
		TitleRules:           c.TitleRules(),
	}, nil
}

// Buckets returns the tracker bucket names with HostnamePlaceholder replaced
// by hostname.
func (c *Config) Buckets(hostname string) (afk, window, stopwatch string) {
	expand := func(s string) string { return strings.ReplaceAll(s, HostnamePlaceholder, hostname) }
	return expand(c.Tracker.AFKBucket), expand(c.Tracker.WindowBucket), expand(c.Tracker.StopwatchBucket)
}

// Timeout returns the tracker request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Tracker.TimeoutSeconds) * time.Second
}

// DBPath returns the expanded path of the event cache database.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the expanded log file path, or "" when logging goes to
// stderr. Relative names are placed under the storage directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	p, err := expandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

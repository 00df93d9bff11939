package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Processing: ProcessingConfig{
			AggregationThresholdSeconds: 5,
			ShowAFKInSummary:            true,
			Timezone:                    "Local",
		},
		Tracker: TrackerConfig{
			ServerURL:       "http://localhost:5600",
			AFKBucket:       "aw-watcher-afk_" + HostnamePlaceholder,
			WindowBucket:    "aw-watcher-window_" + HostnamePlaceholder,
			StopwatchBucket: "aw-stopwatch",
			TimeoutSeconds:  10,
		},
		Titles: TitlesConfig{
			SuffixRules: DefaultSuffixRules(),
			EditorApps:  DefaultEditorApps(),
		},
		Storage: StorageConfig{
			Path:       "~/.config/awcal",
			SQLiteFile: "awcal.db",
		},
		Retention: RetentionConfig{
			Days: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
			File:   "",
		},
	}
}

package config

// Config is the full on-disk configuration.
//
// Files may be JSON or YAML; YAML is coerced to JSON and decoded strictly,
// so unknown keys are rejected in both formats.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Runner    RunnerConfig    `json:"runner"`
	Reviews   ReviewsConfig   `json:"reviews"`
	Notifier  NotifierConfig  `json:"notifier,omitempty"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Reports   ReportsConfig   `json:"reports,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Notifier LoggingNotifier `json:"notifier"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingNotifier forwards warn+ log records to the chat notifier.
type LoggingNotifier struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SchedulerConfig is the quota/window policy for the questionnaire scheduler.
//
// Times of day are "HH:MM" strings; VisitLookback is a Go duration string
// (e.g. "1h", "5m") bounding how far back a synthesized visit time may land.
type SchedulerConfig struct {
	StatePath  string `json:"state_path"`
	DailyQuota int    `json:"daily_quota"`

	// Operating window of the bot itself, narrower than store hours.
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`

	VisitLookback string `json:"visit_lookback,omitempty"`

	// Store opening hours keyed by lowercase english weekday
	// ("monday".."sunday"). Missing days fall back to the default hours.
	StoreHours map[string]HoursRange `json:"store_hours,omitempty"`

	// Trigger timezone (IANA name). Empty means local time.
	Timezone string `json:"timezone,omitempty"`
}

type HoursRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// RunnerConfig controls the survey driver and its pacing.
//
// All durations are Go duration strings.
type RunnerConfig struct {
	Driver         string `json:"driver"` // "dryrun" is the only built-in
	SurveyURL      string `json:"survey_url,omitempty"`
	RestaurantCode string `json:"restaurant_code,omitempty"`

	StepPauseMin   string `json:"step_pause_min,omitempty"`
	StepPauseMax   string `json:"step_pause_max,omitempty"`
	MinRunDuration string `json:"min_run_duration,omitempty"`
}

type ReviewsConfig struct {
	Dir string `json:"dir"`
	// Files optionally overrides the per-category file name
	// (relative to Dir). Unlisted categories use "<category>.txt".
	Files map[string]string `json:"files,omitempty"`
}

type NotifierConfig struct {
	Discord  DiscordConfig  `json:"discord,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"` // Go duration string
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// StorageConfig controls the optional run-history store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./surveybot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ReportsConfig controls the daily summary report.
type ReportsConfig struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec,omitempty"` // cron spec, default "0 22 * * *"
}

package config

import (
	"fmt"
	"strings"
	"time"
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Validate performs structural validation only: field formats and
// cross-field sanity. Policy defaults are applied later, during mapping.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Scheduler.DailyQuota < 0 {
		return fmt.Errorf("scheduler.daily_quota: must be >= 0")
	}
	start, err := validateClock("scheduler.window_start", cfg.Scheduler.WindowStart)
	if err != nil {
		return err
	}
	end, err := validateClock("scheduler.window_end", cfg.Scheduler.WindowEnd)
	if err != nil {
		return err
	}
	if cfg.Scheduler.WindowStart != "" && cfg.Scheduler.WindowEnd != "" && start >= end {
		return fmt.Errorf("scheduler.window_start: must be before window_end")
	}
	if _, err := ParseDurationField("scheduler.visit_lookback", cfg.Scheduler.VisitLookback); err != nil {
		return err
	}
	for day, hrs := range cfg.Scheduler.StoreHours {
		if !weekdays[strings.ToLower(strings.TrimSpace(day))] {
			return fmt.Errorf("scheduler.store_hours: unknown weekday %q", day)
		}
		o, err := validateClock("scheduler.store_hours."+day+".open", hrs.Open)
		if err != nil {
			return err
		}
		c, err := validateClock("scheduler.store_hours."+day+".close", hrs.Close)
		if err != nil {
			return err
		}
		if o >= c {
			return fmt.Errorf("scheduler.store_hours.%s: open must be before close", day)
		}
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Runner.Driver)) {
	case "", "dryrun":
	default:
		return fmt.Errorf("runner.driver: unknown driver %q", cfg.Runner.Driver)
	}
	for _, f := range []struct{ path, raw string }{
		{"runner.step_pause_min", cfg.Runner.StepPauseMin},
		{"runner.step_pause_max", cfg.Runner.StepPauseMax},
		{"runner.min_run_duration", cfg.Runner.MinRunDuration},
		{"notifier.discord.timeout", cfg.Notifier.Discord.Timeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}

	if cfg.Notifier.Discord.Enabled && strings.TrimSpace(cfg.Notifier.Discord.WebhookURL) == "" {
		return fmt.Errorf("notifier.discord.webhook_url: required when discord is enabled")
	}
	if cfg.Notifier.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notifier.Telegram.Token) == "" {
			return fmt.Errorf("notifier.telegram.token: required when telegram is enabled")
		}
		if cfg.Notifier.Telegram.ChatID == 0 {
			return fmt.Errorf("notifier.telegram.chat_id: required when telegram is enabled")
		}
	}

	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	return nil
}

// validateClock parses an optional "HH:MM" string and returns minutes
// since midnight (-1 when the field is empty).
func validateClock(path, raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return -1, nil
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || len(s) < 4 {
		return 0, fmt.Errorf("%s: invalid time of day %q (want HH:MM)", path, raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%s: invalid time of day %q (want HH:MM)", path, raw)
	}
	return h*60 + m, nil
}

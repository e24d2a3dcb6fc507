package app

import (
	"fmt"
	"strings"
	"time"

	"surveybot/internal/config"
	"surveybot/internal/notifier"
	"surveybot/internal/reports"
	"surveybot/internal/runner"
	"surveybot/internal/scheduler"
	"surveybot/internal/storage"
	logx "surveybot/pkg/logx"
)

const (
	defaultStatePath  = "./scheduler_state.json"
	defaultReviewsDir = "./avis"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Notifier: logx.NotifierConfig{
			Enabled:    cfg.Logging.Notifier.Enabled,
			MinLevel:   cfg.Logging.Notifier.MinLevel,
			RatePerSec: cfg.Logging.Notifier.RatePerSec,
		},
	}
}

// mapPolicy builds the scheduling policy: defaults first, then every field
// the config actually sets.
func mapPolicy(sc config.SchedulerConfig) (scheduler.Policy, error) {
	p := scheduler.DefaultPolicy()

	if sc.DailyQuota > 0 {
		p.DailyQuota = sc.DailyQuota
	}
	if strings.TrimSpace(sc.WindowStart) != "" {
		t, err := scheduler.ParseTimeOfDay(sc.WindowStart)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("scheduler.window_start: %w", err)
		}
		p.WindowStart = t
	}
	if strings.TrimSpace(sc.WindowEnd) != "" {
		t, err := scheduler.ParseTimeOfDay(sc.WindowEnd)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("scheduler.window_end: %w", err)
		}
		p.WindowEnd = t
	}
	lookback, err := config.ParseDurationOrDefault("scheduler.visit_lookback", sc.VisitLookback, p.VisitLookback)
	if err != nil {
		return scheduler.Policy{}, err
	}
	p.VisitLookback = lookback

	for name, hrs := range sc.StoreHours {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return scheduler.Policy{}, fmt.Errorf("scheduler.store_hours: unknown weekday %q", name)
		}
		open, err := scheduler.ParseTimeOfDay(hrs.Open)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("scheduler.store_hours.%s.open: %w", name, err)
		}
		closeAt, err := scheduler.ParseTimeOfDay(hrs.Close)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("scheduler.store_hours.%s.close: %w", name, err)
		}
		p.StoreHours[day] = scheduler.Hours{Open: open, Close: closeAt}
	}
	return p, nil
}

func mapLocation(sc config.SchedulerConfig) (*time.Location, error) {
	tz := strings.TrimSpace(sc.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

func mapStatePath(sc config.SchedulerConfig) string {
	if p := strings.TrimSpace(sc.StatePath); p != "" {
		return p
	}
	return defaultStatePath
}

func mapReviewsDir(rc config.ReviewsConfig) string {
	if d := strings.TrimSpace(rc.Dir); d != "" {
		return d
	}
	return defaultReviewsDir
}

func mapDryRunConfig(rc config.RunnerConfig) (runner.DryRunConfig, error) {
	pauseMin, err := config.ParseDurationOrDefault("runner.step_pause_min", rc.StepPauseMin, time.Second)
	if err != nil {
		return runner.DryRunConfig{}, err
	}
	pauseMax, err := config.ParseDurationOrDefault("runner.step_pause_max", rc.StepPauseMax, 3*time.Second)
	if err != nil {
		return runner.DryRunConfig{}, err
	}
	minRun, err := config.ParseDurationOrDefault("runner.min_run_duration", rc.MinRunDuration, time.Minute)
	if err != nil {
		return runner.DryRunConfig{}, err
	}
	return runner.DryRunConfig{
		SurveyURL:      rc.SurveyURL,
		RestaurantCode: rc.RestaurantCode,
		StepPauseMin:   pauseMin,
		StepPauseMax:   pauseMax,
		MinRunDuration: minRun,
	}, nil
}

// mapNotifierChannels builds the enabled chat channels.
func mapNotifierChannels(nc config.NotifierConfig) ([]notifier.Notifier, error) {
	var channels []notifier.Notifier

	if nc.Discord.Enabled {
		timeout, err := config.ParseDurationField("notifier.discord.timeout", nc.Discord.Timeout)
		if err != nil {
			return nil, err
		}
		d, err := notifier.NewDiscord(notifier.DiscordConfig{
			WebhookURL: nc.Discord.WebhookURL,
			RatePerSec: nc.Discord.RatePerSec,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, d)
	}

	if nc.Telegram.Enabled {
		t, err := notifier.NewTelegram(notifier.TelegramConfig{
			Token:  nc.Telegram.Token,
			ChatID: nc.Telegram.ChatID,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, t)
	}

	return channels, nil
}

func mapStorageConfig(sc *config.StorageConfig) (storage.Config, error) {
	if sc == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}, nil
}

func mapReportsConfig(rc config.ReportsConfig) reports.Config {
	return reports.Config{Enabled: rc.Enabled, Spec: rc.Spec}
}

package app

import (
	"testing"
	"time"

	"surveybot/internal/config"
)

func TestMapPolicyDefaults(t *testing.T) {
	t.Parallel()
	p, err := mapPolicy(config.SchedulerConfig{})
	if err != nil {
		t.Fatalf("mapPolicy: %v", err)
	}
	if p.DailyQuota != 6 {
		t.Errorf("quota = %d, want 6", p.DailyQuota)
	}
	if p.WindowStart.String() != "11:30" || p.WindowEnd.String() != "21:38" {
		t.Errorf("window = %s-%s", p.WindowStart, p.WindowEnd)
	}
	if p.VisitLookback != time.Hour {
		t.Errorf("lookback = %v", p.VisitLookback)
	}
	if p.StoreHours[time.Friday].Close.String() != "23:00" {
		t.Errorf("friday close = %s", p.StoreHours[time.Friday].Close)
	}
	if p.StoreHours[time.Monday].Close.String() != "22:30" {
		t.Errorf("monday close = %s", p.StoreHours[time.Monday].Close)
	}
}

func TestMapPolicyOverrides(t *testing.T) {
	t.Parallel()
	p, err := mapPolicy(config.SchedulerConfig{
		DailyQuota:    3,
		WindowStart:   "12:00",
		WindowEnd:     "20:00",
		VisitLookback: "30m",
		StoreHours: map[string]config.HoursRange{
			"Sunday": {Open: "10:00", Close: "21:00"},
		},
	})
	if err != nil {
		t.Fatalf("mapPolicy: %v", err)
	}
	if p.DailyQuota != 3 {
		t.Errorf("quota = %d", p.DailyQuota)
	}
	if p.WindowStart.String() != "12:00" || p.WindowEnd.String() != "20:00" {
		t.Errorf("window = %s-%s", p.WindowStart, p.WindowEnd)
	}
	if p.VisitLookback != 30*time.Minute {
		t.Errorf("lookback = %v", p.VisitLookback)
	}
	if p.StoreHours[time.Sunday].Open.String() != "10:00" {
		t.Errorf("sunday open = %s", p.StoreHours[time.Sunday].Open)
	}
	// untouched days keep the defaults
	if p.StoreHours[time.Saturday].Close.String() != "23:00" {
		t.Errorf("saturday close = %s", p.StoreHours[time.Saturday].Close)
	}
}

func TestMapPolicyRejectsBadInput(t *testing.T) {
	t.Parallel()
	if _, err := mapPolicy(config.SchedulerConfig{WindowStart: "25:00"}); err == nil {
		t.Fatal("bad window start accepted")
	}
	if _, err := mapPolicy(config.SchedulerConfig{
		StoreHours: map[string]config.HoursRange{"noday": {Open: "09:00", Close: "22:00"}},
	}); err == nil {
		t.Fatal("unknown weekday accepted")
	}
}

func TestMapDryRunConfigDefaults(t *testing.T) {
	t.Parallel()
	c, err := mapDryRunConfig(config.RunnerConfig{Driver: "dryrun"})
	if err != nil {
		t.Fatalf("mapDryRunConfig: %v", err)
	}
	if c.StepPauseMin != time.Second || c.StepPauseMax != 3*time.Second {
		t.Errorf("pauses = %v/%v", c.StepPauseMin, c.StepPauseMax)
	}
	if c.MinRunDuration != time.Minute {
		t.Errorf("min run duration = %v", c.MinRunDuration)
	}
}

func TestMapNotifierChannels(t *testing.T) {
	t.Parallel()
	chs, err := mapNotifierChannels(config.NotifierConfig{})
	if err != nil {
		t.Fatalf("mapNotifierChannels: %v", err)
	}
	if len(chs) != 0 {
		t.Fatalf("got %d channels with everything disabled", len(chs))
	}

	chs, err = mapNotifierChannels(config.NotifierConfig{
		Discord: config.DiscordConfig{Enabled: true, WebhookURL: "https://discord.example/webhook"},
	})
	if err != nil {
		t.Fatalf("mapNotifierChannels: %v", err)
	}
	if len(chs) != 1 || chs[0].Name() != "discord" {
		t.Fatalf("channels = %v", chs)
	}

	if _, err := mapNotifierChannels(config.NotifierConfig{
		Discord: config.DiscordConfig{Enabled: true},
	}); err == nil {
		t.Fatal("discord without webhook accepted")
	}
}

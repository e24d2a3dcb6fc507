// Package notifier fans operator notifications out to chat channels
// (Discord webhook, Telegram). Channels are best-effort: a failing send
// is logged and never fails the caller.
package notifier

import (
	"context"
	"sync"

	logx "surveybot/pkg/logx"
)

// Fanout composes channels behind the Notifier interface and keeps a
// short in-memory history for status display.
type Fanout struct {
	log      logx.Logger
	channels []Notifier

	mu      sync.Mutex
	history []Event
}

func NewFanout(log logx.Logger, channels ...Notifier) *Fanout {
	return &Fanout{log: log, channels: channels}
}

func (f *Fanout) Name() string { return "fanout" }

// Notify delivers ev to every channel. Per-channel failures are logged
// warn; the aggregate call never returns an error.
func (f *Fanout) Notify(ctx context.Context, ev Event) error {
	prefix := "ℹ️ "
	switch {
	case ev.Priority >= 8:
		prefix = "🚨 "
	case ev.Priority >= 5:
		prefix = "⚠️ "
	}
	out := ev
	out.Text = prefix + ev.Text

	for _, ch := range f.channels {
		if ch == nil {
			continue
		}
		if err := ch.Notify(ctx, out); err != nil {
			f.log.Warn("notification send failed",
				logx.String("channel", ch.Name()),
				logx.String("kind", ev.Kind),
				logx.Err(err))
		} else {
			f.log.Debug("notification sent",
				logx.String("channel", ch.Name()),
				logx.String("kind", ev.Kind),
				logx.Int("priority", ev.Priority))
		}
	}
	f.appendHistory(ev)
	return nil
}

// ForwardLog implements logx.Forwarder so warn+ log records reach the
// operator channels.
func (f *Fanout) ForwardLog(ctx context.Context, level string, text string) {
	prio := 5
	if level == "error" || level == "fatal" {
		prio = 8
	}
	_ = f.Notify(ctx, Event{Kind: KindLog, Priority: prio, Text: text})
}

// History returns a copy of the recent events, oldest first.
func (f *Fanout) History() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.history...)
}

func (f *Fanout) appendHistory(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, ev)
	if len(f.history) > 300 {
		f.history = f.history[len(f.history)-300:]
	}
}

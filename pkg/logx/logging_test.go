package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "trace", want: zerolog.TraceLevel},
		{in: "DEBUG", want: zerolog.DebugLevel},
		{in: " info ", want: zerolog.InfoLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "ERROR", want: zerolog.ErrorLevel},
		{in: "bogus", want: zerolog.InfoLevel},
		{in: "", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("x", 100)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q (len %d)", got, len(got))
	}
}

func TestFormatForwardJSON(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"2026-03-04T12:00:00Z","message":"send failed","channel":"discord"}`
	out := formatForwardJSON([]byte(line))
	if !strings.HasPrefix(out, "[WARN] send failed") {
		t.Fatalf("formatted = %q", out)
	}
	if !strings.Contains(out, "channel=discord") {
		t.Fatalf("field missing: %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Fatalf("time field should be dropped: %q", out)
	}

	// Non-JSON input degrades to the raw line.
	if got := formatForwardJSON([]byte("plain text\n")); got != "plain text" {
		t.Fatalf("raw passthrough = %q", got)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	t.Parallel()
	l := Nop()
	l.Info("ignored", String("k", "v"), Err(nil))
	if l.IsZero() {
		t.Fatal("Nop() must not be the zero logger")
	}
	var zero Logger
	zero.Warn("also ignored")
	if !zero.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
}

func TestWithAddsFields(t *testing.T) {
	t.Parallel()
	base := Nop()
	derived := base.With(String("comp", "test"))
	if len(derived.fields) != 1 {
		t.Fatalf("derived has %d fields, want 1", len(derived.fields))
	}
	if len(base.fields) != 0 {
		t.Fatal("With must not mutate the receiver")
	}
}

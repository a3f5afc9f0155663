package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Warn("dependency configuration redefined",
		Module("reports"),
		Strings("files", []string{"a.lua", "b.lua"}),
		Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"module":"reports"`,
		`"files":["a.lua","b.lua"]`,
		`"error":"boom"`,
		`"message":"dependency configuration redefined"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecorder_Entries(t *testing.T) {
	rec := NewRecorder()
	rec.Info("loaded", Module("a"))
	rec.Warn("redefined", Module("b"))

	warns := rec.Entries(LevelWarn)
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warns))
	}
	if v, ok := warns[0].Field("module"); !ok || v != "b" {
		t.Errorf("module field = %v, %v", v, ok)
	}
	if got := len(rec.Entries()); got != 2 {
		t.Errorf("got %d entries, want 2", got)
	}
}

package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.want {
			t.Fatalf("parseLevel(%q): expected %s, got %s", tc.input, tc.want, got)
		}
	}
}

func TestNewWithLevel(t *testing.T) {
	logger := NewWithLevel("error")
	if logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("expected error level, got %s", logger.GetLevel())
	}
}

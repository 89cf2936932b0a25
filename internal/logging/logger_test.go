// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package logging

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(DefaultConfig()) })

	Init(Config{Level: "debug", Format: "json", Output: &buf})

	Info().Str("polygon_id", "poland").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"polygon_id":"poland"`) {
		t.Errorf("expected structured field in output, got: %s", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(DefaultConfig()) })

	Init(Config{Level: "warn", Output: &buf})

	Info().Msg("hidden")
	Warn().Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info event should be filtered at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("warn event missing: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("Info") {
		t.Error("Info should be valid")
	}
	if ValidLevel("verbose") {
		t.Error("verbose should be invalid")
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	if got := SanitizeValue("poland\n{\"level\":\"error\"}"); strings.Contains(got, "\n") {
		t.Errorf("newline survived sanitization: %q", got)
	}
	long := strings.Repeat("a", 500)
	if got := SanitizeValue(long); len(got) != maxLoggedValue+3 {
		t.Errorf("expected truncation to %d, got %d", maxLoggedValue+3, len(got))
	}
}

func TestSanitizeValue_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"two byte runes", strings.Repeat("é", 150)},
		{"three byte runes", strings.Repeat("€", 100)},
		{"four byte runes offset by one", "a" + strings.Repeat("🌧", 80)},
	}
	for _, tt := range tests {
		got := SanitizeValue(tt.input)
		if !utf8.ValidString(got) {
			t.Errorf("%s: truncated value is not valid UTF-8: %q", tt.name, got)
		}
		if !strings.HasSuffix(got, "...") || len(got) > maxLoggedValue+3 {
			t.Errorf("%s: len = %d, want truncated to at most %d", tt.name, len(got), maxLoggedValue+3)
		}
		if !strings.HasPrefix(tt.input, strings.TrimSuffix(got, "...")) {
			t.Errorf("%s: truncated value is not a prefix of the input", tt.name)
		}
	}
}

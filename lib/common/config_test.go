package common

import (
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestDefaultEngineConfig(t *testing.T) {
	conf := DefaultEngineConfig()
	if err := conf.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	out := conf.String()
	for _, expected := range []string{"KEYSPACE", "ACTIVE EXPIRATION", "LOGGING", "Databases", "16"} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected config string to contain %q:\n%s", expected, out)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *EngineConfig)
	}{
		{"no databases", func(c *EngineConfig) { c.Databases = 0 }},
		{"negative budget", func(c *EngineConfig) { c.SweepBudget = -1 }},
		{"no max value size", func(c *EngineConfig) { c.MaxValueBytes = 0 }},
		{"bad log level", func(c *EngineConfig) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultEngineConfig()
			tt.modify(&conf)
			if err := conf.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for input, expected := range tests {
		level, err := ParseLogLevel(input)
		if err != nil || level != expected {
			t.Errorf("ParseLogLevel(%q) = %v, %v; expected %v", input, level, err, expected)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

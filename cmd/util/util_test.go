package util

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Expected lines of at most %d characters, got %d: %q", Wrap, len(line), line)
		}
	}

	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("Expected 'short text', got %q", got)
	}
}

func TestEngineConfigFromFlags(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupEngineFlags(cmd)
	if err := cmd.PersistentFlags().Parse([]string{"--databases", "4", "--sweep-interval", "250", "--log-level", "debug"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("BindPFlags failed: %v", err)
	}

	config := GetEngineConfig()
	if config.Databases != 4 {
		t.Errorf("Expected 4 databases, got %d", config.Databases)
	}
	if config.SweepInterval != 250*time.Millisecond {
		t.Errorf("Expected sweep interval 250ms, got %s", config.SweepInterval)
	}
	if config.SweepBudget != 20 {
		t.Errorf("Expected default sweep budget 20, got %d", config.SweepBudget)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", config.LogLevel)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestEngineConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("RSEDIS_MAX_VALUE_SIZE", "1024")

	InitConfig()

	cmd := &cobra.Command{Use: "test"}
	SetupEngineFlags(cmd)
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("BindPFlags failed: %v", err)
	}

	if got := GetEngineConfig().MaxValueBytes; got != 1024 {
		t.Errorf("Expected max value size 1024 from env, got %d", got)
	}
}

package util

import (
	"strings"
	"time"

	"github.com/XiaonuoGantan/rsedis/lib/common"
	"github.com/XiaonuoGantan/rsedis/lib/db"
	"github.com/XiaonuoGantan/rsedis/lib/store/lstore"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var plog = logger.GetLogger(common.LoggerCLI)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupEngineFlags adds the engine configuration flags to a command
func SetupEngineFlags(cmd *cobra.Command) {
	key := "databases"
	cmd.PersistentFlags().Uint32(key, common.DefaultDatabases, WrapString("Number of logical databases, SELECT accepts indexes from 0 to databases-1"))

	key = "sweep-interval"
	cmd.PersistentFlags().Int(key, int(common.DefaultSweepInterval/time.Millisecond), WrapString("Interval of the active expire cycle in milliseconds (0 disables it, expired keys are then only removed lazily)"))

	key = "sweep-budget"
	cmd.PersistentFlags().Int(key, common.DefaultSweepBudget, WrapString("Max number of expired keys removed per database and cycle (0 = unlimited)"))

	key = "max-value-size"
	cmd.PersistentFlags().Uint64(key, common.DefaultMaxValueBytes, WrapString("Max length in bytes a value may grow to with APPEND and SETRANGE"))

	key = "log-level"
	cmd.PersistentFlags().String(key, common.DefaultLogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from env files and environment variables.
// The format of the environment variables is RSEDIS_<flag> (e.g. RSEDIS_SWEEP_BUDGET=50)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rsedis")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetEngineConfig reads the engine configuration from viper
func GetEngineConfig() common.EngineConfig {
	return common.EngineConfig{
		Databases:     viper.GetUint32("databases"),
		SweepInterval: time.Duration(viper.GetInt("sweep-interval")) * time.Millisecond,
		SweepBudget:   viper.GetInt("sweep-budget"),
		MaxValueBytes: viper.GetUint64("max-value-size"),
		LogLevel:      viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// NewStore binds the flags of cmd, initializes the loggers and creates a local store
func NewStore(cmd *cobra.Command) (*lstore.Store, common.EngineConfig, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, common.EngineConfig{}, err
	}

	config := GetEngineConfig()
	if err := config.Validate(); err != nil {
		return nil, config, err
	}
	if err := common.InitLoggers(config); err != nil {
		return nil, config, err
	}

	s, err := lstore.NewLocalStore(func() *db.Database {
		return db.New(nil)
	}, config)
	if err != nil {
		return nil, config, err
	}

	plog.Debugf("local store created with %d databases (sweep interval %s)", config.Databases, config.SweepInterval)
	return s, config, nil
}

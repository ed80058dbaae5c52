package common

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultDatabases     uint32 = 16                     // Number of logical databases (SELECT 0..15)
	DefaultSweepInterval        = 100 * time.Millisecond // Interval of the active expire cycle
	DefaultSweepBudget          = 20                     // Max keys removed per database and cycle
	DefaultMaxValueBytes uint64 = 512 * 1024 * 1024      // Largest string a command may produce
	DefaultLogLevel             = "info"
)

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

// EngineConfig holds the configuration of a local store
type EngineConfig struct {
	// Databases is the number of logical databases, valid indexes are [0, Databases)
	Databases uint32

	// SweepInterval is the time between two active expire cycles (0 = disabled)
	SweepInterval time.Duration
	// SweepBudget is the max number of keys removed per database in one cycle (0 = unlimited)
	SweepBudget int

	// MaxValueBytes limits the length a value may grow to with APPEND and SETRANGE
	MaxValueBytes uint64

	// Logging configuration
	LogLevel string
}

// DefaultEngineConfig returns the default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Databases:     DefaultDatabases,
		SweepInterval: DefaultSweepInterval,
		SweepBudget:   DefaultSweepBudget,
		MaxValueBytes: DefaultMaxValueBytes,
		LogLevel:      DefaultLogLevel,
	}
}

// Validate checks that the configuration can be used to create a store
func (c *EngineConfig) Validate() error {
	if c.Databases == 0 {
		return fmt.Errorf("databases must be at least 1")
	}
	if c.SweepBudget < 0 {
		return fmt.Errorf("sweep budget must not be negative (got %d)", c.SweepBudget)
	}
	if c.MaxValueBytes == 0 {
		return fmt.Errorf("max value size must be at least 1 byte")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *EngineConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Keyspace")
	addField("Databases", fmt.Sprintf("%d", c.Databases))
	addField("Max Value Size", fmt.Sprintf("%d bytes", c.MaxValueBytes))

	addSection("Active Expiration")
	if c.SweepInterval > 0 {
		addField("Interval", c.SweepInterval.String())
	} else {
		addField("Interval", "disabled")
	}
	if c.SweepBudget > 0 {
		addField("Budget", fmt.Sprintf("%d keys per db", c.SweepBudget))
	} else {
		addField("Budget", "unlimited")
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/XiaonuoGantan/rsedis/cmd/perf"
	"github.com/XiaonuoGantan/rsedis/cmd/repl"
	"github.com/XiaonuoGantan/rsedis/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rsedis",
		Short: "in-memory keyed data engine",
		Long: fmt.Sprintf(`rsedis (v%s)

The in-memory keyspace of a Redis-compatible server: multiple databases of
string values with integer coercion, byte-range commands and per-key
expiration.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rsedis",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rsedis v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Flags
	util.SetupEngineFlags(RootCmd)

	// Add Commands
	RootCmd.AddCommand(repl.ReplCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

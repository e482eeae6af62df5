// Package commands implements the CLI commands for the chunkstore binary.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chunkstore",
	Short: "Chunked logical-array storage server",
	Long: `chunkstore stores large logical arrays as fixed-size segments on top of
a pluggable key-value substrate (BadgerDB, SQLite, PostgreSQL, or memory)
and serves them over a REST API.

Use "chunkstore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(arrayCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrei-samofalov/yapas/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "yapas",
	Short: "Yapas - yet another proxy application server",
	Long: `Yapas is a small reverse proxy that reads and writes HTTP/1.1 messages
directly on TCP connections.

Requests are matched against an ordered table of path prefixes and handled by:
  - proxy: forward to the upstream server
  - static: serve files from disk through a response cache
  - restart: rebuild the listener in place
  - metrics: report request totals`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

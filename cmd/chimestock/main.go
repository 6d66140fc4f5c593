// Package main is the entry point for the chimestock CLI.
//
// Chimestock can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	chimestock watch -c config.yaml    # Start watching for stock changes
//	chimestock validate -c config.yaml # Validate configuration
//	chimestock version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "chimestock",
	Short: "Watch web pages for stock changes and get notified by email",
	Long: `Chimestock periodically checks a list of web pages for an
"In stock" marker and emails you when any tracked item's availability
changes. It helps the user obtain rare items during shortages.

Quick start:
  1. Create a config file (chimestock.yaml)
  2. Run: chimestock watch -c chimestock.yaml
  3. Missing credentials are prompted for interactively

Example config:
  poll_interval: 15m
  urls:
    - https://shop.example.com/item/1
  smtp:
    sender: me@example.com
    password: ${CHIMESTOCK_PASSWORD:-}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this chimestock binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chimestock %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

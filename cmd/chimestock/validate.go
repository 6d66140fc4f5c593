package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chimestock/config"
)

// validateCmd validates a config file without starting the watcher.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a chimestock configuration file without starting the watcher.

This command parses the YAML, expands environment variables, and validates
all fields. No pages are fetched and no mail is sent. Note that the sender
and password may legitimately be empty here; the watch command prompts for
them at startup.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  chimestock validate -c config.yaml
  chimestock validate --config /etc/chimestock/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	recipient := cfg.SMTP.Recipient
	if recipient == "" {
		recipient = "(loopback to sender)"
	}
	sender := cfg.SMTP.Sender
	if sender == "" {
		sender = "(prompted at startup)"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Marker:        %q\n", cfg.Marker)
	fmt.Printf("  URLs:          %d tracked\n", len(cfg.URLs))
	fmt.Printf("  SMTP:          %s:%d\n", cfg.SMTP.Server, cfg.SMTP.Port)
	fmt.Printf("  Sender:        %s\n", sender)
	fmt.Printf("  Recipient:     %s\n", recipient)

	return nil
}

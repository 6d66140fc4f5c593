package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chimestock"
	"chimestock/config"
	"chimestock/internal/notify"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// watchCmd starts the stock watcher.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start watching tracked pages for stock changes",
	Long: `Start the chimestock watcher.

The watcher will:
  - Load configuration from the specified YAML file
  - Prompt for the sender address and password if the config omits them
  - Fetch every tracked page once to establish baseline stock state
  - Poll at the configured interval, emailing when items come into stock

The watcher runs until interrupted (Ctrl+C), receives SIGTERM, or a poll
cycle fails (a broken URL fails its cycle rather than being skipped).

Example:
  chimestock watch -c config.yaml
  chimestock watch --config /etc/chimestock/config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// credential prompting is a CLI concern; the library takes a
	// complete config
	if err := promptMissingCredentials(&cfg.SMTP); err != nil {
		return err
	}

	logger.Info("config loaded",
		"urls", len(cfg.URLs),
		"poll_interval", cfg.PollInterval.Duration().String(),
		"debug", cfg.Debug,
	)

	notifier := notify.NewNotifier(notify.Config{
		Server:    cfg.SMTP.Server,
		Port:      cfg.SMTP.Port,
		Sender:    cfg.SMTP.Sender,
		Recipient: cfg.SMTP.Recipient,
		Password:  cfg.SMTP.Password,
	}, logger)

	opts := append(config.BuildOptions(cfg),
		chimestock.WithLogger(logger),
		chimestock.WithNotifier(notifier),
	)

	store, err := chimestock.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// baseline refresh of every tracked page before the loop starts
	if err := store.Add(ctx, cfg.URLs...); err != nil {
		return fmt.Errorf("failed to add items: %w", err)
	}

	if err := store.Run(ctx); err != nil {
		return fmt.Errorf("watcher error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

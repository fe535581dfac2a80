//go:build !rp2040 && !rp2350

// Command sentinel-sim runs the sentinel supervisor on a desktop, with the
// EEPROM emulated in sqlite and the primary played by the real driver.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sentinel-go/services/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sentinel-sim",
		Short: "Simulate the sentinel watchdog coprocessor",
		Long: `Simulate the sentinel watchdog coprocessor on a desktop.

The persisted slot table lives in a sqlite file so state survives restarts,
the same way the EEPROM survives a power cycle.

Examples:
  sentinel-sim run --kick-every 5s --hang-after 2m
  sentinel-sim send 1 30 39
  sentinel-sim dump --json`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("board", "host", "Board profile from the built-in configs")
	rootCmd.PersistentFlags().String("config", "", "YAML file laid over the board profile")
	rootCmd.PersistentFlags().String("store", "", "sqlite file holding the slot table (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newRunCommand(), newSendCommand(), newDumpCommand(), newFormatCommand())
	return rootCmd
}

// loadEnv resolves the board configuration and logger from the persistent
// flags.
func loadEnv(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	board, _ := flags.GetString("board")
	path, _ := flags.GetString("config")
	cfg, err := config.Load(board, path)
	if err != nil {
		return nil, nil, err
	}
	if store, _ := flags.GetString("store"); store != "" {
		cfg.Store.Path = store
	}

	levelName, _ := flags.GetString("log-level")
	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = levelName
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

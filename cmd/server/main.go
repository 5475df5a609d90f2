// Command server runs the flashdeck API.
//
//	flashdeck serve    start the HTTP server (default)
//	flashdeck migrate  create or upgrade the store schema and exit
//
// Settings come from FLASHDECK_* environment variables (see
// internal/config); --port and --store override them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/flashdeck/internal/config"
	"github.com/sakif/flashdeck/internal/server"
)

var (
	portFlag  int
	storeFlag string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flashdeck",
		Short:         "Flashcard deck API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "listen port (overrides FLASHDECK_PORT)")
	root.PersistentFlags().StringVarP(&storeFlag, "store", "s", "", "store driver: sqlite or mongo (overrides FLASHDECK_STORE_DRIVER)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema, then exit",
		RunE:  runMigrate,
	}
	root.AddCommand(serve, migrate)
	root.RunE = runServe

	return root
}

// loadConfig reads the environment, applies flag overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if storeFlag != "" {
		cfg.StoreDriver = storeFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger: text for terminals, JSON for log
// shippers.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.Level() // checked by Validate
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	store, err := server.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("migrating %s store: %w", cfg.StoreDriver, err)
	}
	if err := store.Close(); err != nil {
		return err
	}

	logger.Info("store is up to date", slog.String("store", cfg.StoreDriver))
	return nil
}

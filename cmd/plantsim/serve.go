package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/tokamak-sim/internal/api"
	"github.com/talgya/tokamak-sim/internal/persistence"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve plant sessions over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("plantsim starting",
		"port", cfg.Server.Port,
		"db", cfg.Storage.Path,
		"max_iteration", cfg.Engine.MaxIteration,
		"default_plant", cfg.Defaults.PlantType,
	)

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Storage.Path != "" {
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
		}
		var err error
		db, err = persistence.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Storage.Path)

		if err := db.SaveMeta("started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Error("save meta failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("PLANTSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("PLANTSIM_ADMIN_KEY not set, admin endpoints will be disabled")
	}

	srv := api.NewServer(cfg, db, adminKey)
	srv.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	fmt.Println("plantsim stopped.")
	return nil
}

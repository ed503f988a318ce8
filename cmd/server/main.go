package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantsight/flowcanvas/internal/api"
	"github.com/quantsight/flowcanvas/internal/config"
	"github.com/quantsight/flowcanvas/internal/editor"
	"github.com/quantsight/flowcanvas/internal/executor"
	"github.com/quantsight/flowcanvas/internal/simulate"
	"github.com/quantsight/flowcanvas/internal/store"
)

func main() {
	cfgPath := flag.String("config", "configs/flowcanvas.yaml", "Path to YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Persistence collaborator ──────────────────────────────────────────────
	var st store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("failed to connect workflow store", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
		slog.Info("workflow store ready", "backend", "postgres")
	} else {
		st = store.NewMemory()
		slog.Warn("no database configured, using in-memory store")
	}

	// ── Node executors ────────────────────────────────────────────────────────
	reg := executor.NewRegistry()
	reg.Register(executor.NewHTTPCall(nil))
	reg.Register(executor.NewBranch())

	// ── Simulation orchestrator + editor sessions ─────────────────────────────
	sim := simulate.New(ctx, reg, simulate.Options{
		Workers:    cfg.Simulation.Workers,
		QueueDepth: cfg.Simulation.QueueDepth,
	})
	mgr := editor.NewManager(ctx, st, sim, cfg.Autosave.QuietPeriod(), cfg.PolicyTable())

	// ── Policy hot-reload ─────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		mgr.SetPolicy(newCfg.PolicyTable())
		slog.Info("validation policy hot-reloaded", "rules", len(newCfg.Policy))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(mgr)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutMs) * time.Millisecond,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop execution pool
	sim.Shutdown()
	slog.Info("goodbye")
}

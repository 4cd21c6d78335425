// Package main boots the storefront HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/config"
	httpapi "github.com/fairyhunter13/storefront-api/internal/http"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/queue"
	"github.com/fairyhunter13/storefront-api/internal/seed"
	"github.com/fairyhunter13/storefront-api/internal/store/backend"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		obs.Logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	obs.Logger.Info("service_starting", "env", cfg.Env, "store_driver", cfg.StoreDriver, "order_pricing", cfg.OrderPricing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	st, err := backend.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		obs.Logger.Error("store_open_failed", "error", err)
		os.Exit(1)
	}

	if cfg.SeedFile != "" {
		hasher := auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
		if _, err := seed.LoadFile(ctx, cfg.SeedFile, st, hasher); err != nil {
			obs.Logger.Error("seed_failed", "file", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	metrics := obs.NewMetrics()
	var mgr *queue.Manager
	if cfg.OrderDecrementStock {
		mgr = queue.NewManager(cfg, queue.New(128), st, metrics)
		mgr.Start(ctx)
	}

	app := httpapi.NewApp(cfg, st, mgr, metrics)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	app.StartShutdown()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	if mgr != nil {
		obs.Logger.Info("shutdown_drain_begin", "backlog_size", mgr.BacklogSize(), "worker_count", mgr.WorkerCount())
		if mgr.DrainUntil(ctxShutdown) {
			obs.Logger.Info("shutdown_drain_complete")
		} else {
			obs.Logger.Warn("shutdown_drain_timeout", "backlog_size", mgr.BacklogSize())
		}
		mgr.Stop()
	}
	if err := st.Close(ctxShutdown); err != nil {
		obs.Logger.Error("store_close_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}

// Package main is the entry point for the tap logger daemon.
// Its sole responsibility is wiring dependencies together and starting the
// HTTP server. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/msabate/transit-logger/internal/config"
	"github.com/msabate/transit-logger/internal/handler"
	"github.com/msabate/transit-logger/internal/metrics"
	"github.com/msabate/transit-logger/internal/middleware"
	"github.com/msabate/transit-logger/internal/remote"
	"github.com/msabate/transit-logger/internal/stations"
	"github.com/msabate/transit-logger/internal/store"
	"github.com/msabate/transit-logger/internal/syncer"
	"github.com/msabate/transit-logger/internal/trip"
)

const maxBodyBytes = 1 << 20 // request bodies are a single tap or journey

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Local store ------------------------------------------------------
	// One SQLite file holds everything that must survive a restart:
	// device identity, the trip-state checkpoint, drafts, and the outbox.
	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("failed to open local store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	states := store.NewStateStore(db)
	outbox := store.NewOutboxRepo(db)

	// --- Station dataset --------------------------------------------------
	resolver, err := stations.LoadFile(cfg.StationsPath)
	if err != nil {
		slog.Error("failed to load station dataset", "path", cfg.StationsPath, "error", err)
		os.Exit(1)
	}
	slog.Info("station dataset loaded", "stations", resolver.Len())

	// --- Engine + sync ----------------------------------------------------
	engine := trip.NewEngine(states, outbox)
	if err := engine.Recover(ctx); err != nil {
		slog.Error("failed to recover trip state", "error", err)
		os.Exit(1)
	}
	slog.Info("trip state recovered", "phase", engine.State().Phase)

	collector := metrics.NewCollector()
	client := remote.NewHTTPClient(cfg.RemoteURL)
	sync := syncer.New(outbox, client, logger, collector)

	// Prober: detects offline→online transitions and flushes on each one.
	// Its first probe doubles as the flush-on-start trigger.
	proberCtx, stopProber := context.WithCancel(ctx)
	defer stopProber()
	go sync.RunProber(proberCtx, cfg.ProbeInterval)

	// --- Metrics server ---------------------------------------------------
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
		slog.Info("metrics listening", "addr", cfg.MetricsAddr)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	srv := handler.NewServer(engine, sync, client, resolver, outbox, collector)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete. A flush cut off mid-round-trip is fine:
	// the outbox still holds its entries and the next start retries.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")
	stopProber()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

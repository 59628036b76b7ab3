package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hrvstack/hrvstack/server/internal/alerts"
	"github.com/hrvstack/hrvstack/server/internal/api"
	"github.com/hrvstack/hrvstack/server/internal/auth"
	"github.com/hrvstack/hrvstack/server/internal/config"
	"github.com/hrvstack/hrvstack/server/internal/receiver"
	"github.com/hrvstack/hrvstack/server/internal/store"
	"github.com/hrvstack/hrvstack/server/internal/ws"
)

// broadcastInterval is the WebSocket push cadence. Readings arrive roughly
// once per second, so pushing faster only burns bandwidth.
const broadcastInterval = 1 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("hrvstack-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"reading_ttl", cfg.Server.Reading.TTL,
		"history_limit", cfg.Server.Reading.HistoryLimit,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Reading store with background TTL eviction.
	st := store.New(cfg.Server.Reading.TTL, cfg.Server.Reading.HistoryLimit, cfg.Server.Reading.RecordEvery)
	go st.Run(ctx)

	// Alerts engine — evaluates rules on every incoming reading.
	alertEngine := alerts.New(cfg.Server.Alerts)

	// WebSocket hub — broadcasts the device snapshot to UI clients.
	hub := ws.New(st, broadcastInterval)
	go hub.Run(ctx)

	// Ingest is the write path; only monitors hold the API key, so auth is
	// applied there rather than on the read-only endpoints.
	ingest := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		receiver.New(st, alertEngine),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/v1/ingest", ingest)
	httpMux.Handle("/api/", api.New(st, alertEngine))
	httpMux.Handle("/ws/stream", hub)

	// Optional: serve the pre-built dashboard from a local directory.
	// Usage:  ./bin/hrvstack-server -config config.yaml -ui-dir ui/dist
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// SPA fallback: if the requested file doesn't exist, serve index.html.
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("hrvstack-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}

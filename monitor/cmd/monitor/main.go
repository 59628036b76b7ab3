package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
	"github.com/hrvstack/hrvstack/monitor/internal/security"
	"github.com/hrvstack/hrvstack/monitor/internal/sensor"
	"github.com/hrvstack/hrvstack/monitor/internal/session"
	"github.com/hrvstack/hrvstack/monitor/internal/shipper"
)

// certCheckInterval is how often bridge TLS certificates are re-probed.
const certCheckInterval = 12 * time.Hour

type pipeline struct {
	src  config.Source
	s    sensor.Source
	sess *session.Session

	// cert is the latest TLS probe of an https bridge, nil otherwise.
	// Written by the cert goroutine, read by the poll loop.
	cert atomic.Pointer[types.CertStatus]

	// done is set once a replay source is exhausted.
	done bool
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("hrvstack-monitor starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Monitor.ServerEndpoint,
		"sources", len(cfg.Monitor.Sources),
		"poll_interval", cfg.Monitor.PollInterval,
		"window_width", cfg.Engine.WindowWidth,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Build source + session pairs from the initial config. Hot-reload only
	// logs for now; rebuilding sources mid-run would discard warm windows.
	var pipelines []*pipeline
	for _, src := range cfg.Monitor.Sources {
		s, err := sensor.New(src)
		if err != nil {
			slog.Error("skipping source — could not build sensor", "source", src.ID, "err", err)
			continue
		}
		pipelines = append(pipelines, &pipeline{
			src:  src,
			s:    s,
			sess: session.New(src.ID, cfg.Engine),
		})
		slog.Info("registered source", "id", src.ID, "type", src.Type, "endpoint", src.Endpoint)
	}

	if len(pipelines) == 0 {
		slog.Warn("no sources configured — monitor will idle")
	}

	// Watch config file for hot-reload (logs only in this phase).
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded", "sources", len(updated.Monitor.Sources))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ship := shipper.New(cfg.Monitor)
	go ship.Run(ctx)

	// Probe bridge certs now and on a slow cadence.
	go func() {
		checkCerts(ctx, pipelines)
		ticker := time.NewTicker(certCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCerts(ctx, pipelines)
			}
		}
	}()

	// Poll loop: sample every source, fold into its session, ship the result.
	go func() {
		ticker := time.NewTicker(cfg.Monitor.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				for _, p := range pipelines {
					if p.done {
						continue
					}
					b, err := p.s.Sample(ctx)
					if err != nil {
						if errors.Is(err, sensor.ErrReplayDone) {
							slog.Info("replay finished", "source", p.src.ID)
							p.done = true
							continue
						}
						slog.Warn("sample error", "source", p.src.ID, "err", err)
						continue
					}
					res := p.sess.Process(b, t)
					ship.Ship(shipper.FromResult(res, p.cert.Load()))
				}
			}
		}
	}()

	<-ctx.Done()
	slog.Info("hrvstack-monitor shutting down", "pending", ship.Pending())
}

// checkCerts probes every https bridge endpoint and stores the result on
// its pipeline for attachment to subsequent readings.
func checkCerts(ctx context.Context, pipelines []*pipeline) {
	for _, p := range pipelines {
		if p.src.Type != "bridge" || !strings.HasPrefix(p.src.Endpoint, "https://") {
			continue
		}
		st := security.New(p.src.TLS.InsecureSkipVerify).Check(ctx, p.src.Endpoint)
		if st.Err != nil {
			slog.Warn("cert check failed", "source", p.src.ID, "err", st.Err)
		} else {
			slog.Info("cert check", "source", p.src.ID, "state", st.State, "days_left", st.DaysLeft)
		}
		p.cert.Store(st.Wire())
	}
}

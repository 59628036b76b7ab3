package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

const (
	defaultShipTimeout = 10 * time.Second

	backoffInitial = 1 * time.Second
	backoffMax     = 60 * time.Second
	backoffFactor  = 2
)

// permanentError marks a delivery failure that retrying cannot fix, such as
// a rejected payload or bad credentials. The reading is dropped, not retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Shipper delivers readings to hrvstack-server over HTTP, buffering in
// memory while the server is unreachable. When the buffer is full the
// oldest reading is dropped first: for a live dashboard the newest value
// is always the most valuable one.
type Shipper struct {
	endpoint string
	auth     config.AuthConfig
	client   *http.Client

	queue chan types.Reading

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds a Shipper posting to the server's ingest endpoint.
func New(cfg config.MonitorConfig) *Shipper {
	return &Shipper{
		endpoint: cfg.ServerEndpoint + "/api/v1/ingest",
		auth:     cfg.ServerAuth,
		client:   &http.Client{Timeout: defaultShipTimeout},
		queue:    make(chan types.Reading, cfg.BufferSize),
		sleep:    sleepCtx,
	}
}

// Ship enqueues a reading for delivery. It never blocks: when the buffer is
// full the oldest queued reading is evicted to make room.
func (s *Shipper) Ship(r types.Reading) {
	for {
		select {
		case s.queue <- r:
			return
		default:
		}
		select {
		case old := <-s.queue:
			slog.Warn("shipper: buffer full, dropping oldest reading",
				"device", old.DeviceID, "ts", old.Timestamp)
		default:
		}
	}
}

// Run drains the queue until ctx is cancelled, retrying transient delivery
// failures with exponential backoff.
func (s *Shipper) Run(ctx context.Context) {
	backoff := backoffInitial
	for {
		var r types.Reading
		select {
		case <-ctx.Done():
			return
		case r = <-s.queue:
		}

		for {
			err := s.deliver(ctx, r)
			if err == nil {
				backoff = backoffInitial
				break
			}
			var perm *permanentError
			if errors.As(err, &perm) {
				slog.Error("shipper: dropping undeliverable reading",
					"device", r.DeviceID, "err", err)
				backoff = backoffInitial
				break
			}
			if ctx.Err() != nil {
				return
			}
			slog.Warn("shipper: delivery failed, backing off",
				"device", r.DeviceID, "backoff", backoff, "err", err)
			s.sleep(ctx, jitter(backoff))
			backoff *= backoffFactor
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}
	}
}

// deliver posts one reading. A 4xx response (except 429) is permanent;
// anything else is worth retrying.
func (s *Shipper) deliver(ctx context.Context, r types.Reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return &permanentError{fmt.Errorf("marshal reading: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &permanentError{fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.auth.Mode == "apikey" {
		req.Header.Set(s.auth.EffectiveHeader(), s.auth.Key())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post reading: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("server throttling: status %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &permanentError{fmt.Errorf("server rejected reading: status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// Pending reports how many readings are waiting for delivery.
func (s *Shipper) Pending() int { return len(s.queue) }

// jitter spreads a backoff duration by ±25% so parallel monitors do not
// hammer a recovering server in lockstep.
func jitter(d time.Duration) time.Duration {
	f := 0.75 + 0.5*rand.Float64() //nolint:gosec // jitter, not crypto
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

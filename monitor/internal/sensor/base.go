package sensor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

const defaultFetchTimeout = 10 * time.Second

// Batch is the normalized output of one sampling cycle for a single device:
// the decoded instantaneous heart rate and the RR intervals that arrived
// since the previous cycle, in beat order. Intervals may be empty — bridges
// are polled faster than packets arrive, and a resting heart beats slower
// than once per poll.
type Batch struct {
	DeviceID   string
	SourceType string
	At         time.Time

	// HeartRate in bpm; carried through to the server for display only.
	HeartRate int

	// Intervals holds RR values in milliseconds, oldest first.
	Intervals []float64

	// Err is non-nil if the sampling itself failed (connectivity, auth,
	// parse). The session treats a non-nil Err as "no data this cycle" and
	// forwards the message for display.
	Err error
}

// Source is the common interface implemented by every heart-rate source.
type Source interface {
	Sample(ctx context.Context) (*Batch, error)
}

// New returns the appropriate Source for the given source configuration.
// For bridge sources the HTTP client is built once and reused across polls.
func New(src config.Source) (Source, error) {
	switch src.Type {
	case "sim":
		return newSimSource(src), nil
	case "bridge":
		client, err := buildHTTPClient(src)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: build http client: %w", src.ID, err)
		}
		return &bridgeSource{src: src, client: client}, nil
	case "replay":
		return newReplaySource(src)
	default:
		return nil, fmt.Errorf("sensor: unsupported type %q", src.Type)
	}
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	src  config.Source
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.src.Auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.src.Auth.EffectiveHeader(), t.src.Auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.src.Auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.src.Auth.Username, t.src.Auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if src.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(src.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	transport := &authRoundTripper{
		base: &http.Transport{TLSClientConfig: tlsCfg},
		src:  src,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultFetchTimeout,
	}, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse exposition text: %w", err)
	}
	// Non-empty result with a non-nil err means partial parse (trailing lines,
	// format warnings). Treat as success.
	return mfs, nil
}

// firstValue returns the value of the first counter, gauge, or untyped
// sample in a MetricFamily, or 0 if mf is nil or empty.
func firstValue(mf *dto.MetricFamily) float64 {
	if mf == nil || len(mf.GetMetric()) == 0 {
		return 0
	}
	return sampleValue(mf.GetMetric()[0])
}

// sampleValue extracts the numeric value from a single metric sample.
func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

// newBatch initialises an empty Batch stamped with the current time.
func newBatch(deviceID, sourceType string) *Batch {
	return &Batch{
		DeviceID:   deviceID,
		SourceType: sourceType,
		At:         time.Now().UTC(),
	}
}

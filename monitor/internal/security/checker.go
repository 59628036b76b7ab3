// Package security inspects the TLS certificates of bridge endpoints so an
// expiring strap-bridge cert surfaces on the dashboard before it breaks
// data collection.
package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"
)

const (
	// Certificates within this many days of expiry are flagged.
	expiryWarningDays = 30

	dialTimeout = 5 * time.Second
)

// Status classifies the leaf certificate of an endpoint.
type Status struct {
	Endpoint string
	State    string // valid | expiring | expired | unreachable
	Issuer   string
	NotAfter time.Time
	DaysLeft int
	Err      error
}

// Checker probes TLS endpoints. The zero value is not usable; use New.
type Checker struct {
	// now is injectable for tests.
	now func() time.Time

	// insecure skips chain verification; expiry is still checked. Bridges
	// on a home LAN usually carry self-signed certs.
	insecure bool
}

// New returns a Checker. Verification of the chain is skipped when insecure
// is set, matching the source's TLS settings.
func New(insecure bool) *Checker {
	return &Checker{now: time.Now, insecure: insecure}
}

// Check dials endpoint (an https URL) and classifies its leaf certificate.
func (c *Checker) Check(ctx context.Context, endpoint string) Status {
	st := Status{Endpoint: endpoint, State: "unreachable"}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		st.Err = fmt.Errorf("security: bad endpoint %q: %w", endpoint, err)
		return st
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "443")
	}

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config: &tls.Config{
			InsecureSkipVerify: c.insecure, //nolint:gosec // expiry check against self-signed certs
		},
	}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		st.Err = fmt.Errorf("security: dial %s: %w", host, err)
		return st
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		st.Err = fmt.Errorf("security: %s presented no certificates", host)
		return st
	}
	leaf := certs[0]

	st.Issuer = leaf.Issuer.CommonName
	st.NotAfter = leaf.NotAfter

	now := c.now()
	left := leaf.NotAfter.Sub(now)
	st.DaysLeft = int(left.Hours() / 24)
	switch {
	case left <= 0:
		st.State = "expired"
	case left <= expiryWarningDays*24*time.Hour:
		st.State = "expiring"
	default:
		st.State = "valid"
	}
	st.Err = nil
	return st
}

// Wire converts a Status into the shared cert representation attached to
// readings.
func (s Status) Wire() *types.CertStatus {
	cs := &types.CertStatus{
		Endpoint: s.Endpoint,
		Status:   s.State,
		Issuer:   s.Issuer,
		DaysLeft: s.DaysLeft,
	}
	if !s.NotAfter.IsZero() {
		cs.NotAfter = s.NotAfter.UTC().Format(time.RFC3339)
	}
	return cs
}

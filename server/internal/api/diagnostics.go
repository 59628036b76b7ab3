package api

import (
	"fmt"

	"github.com/hrvstack/hrvstack/pkg/types"
)

// DiagnosticHint is one human-readable insight about a device's stream.
// The UI displays these as chips on the device card; clicking one shows
// Detail — written like an assistant explaining the situation in plain English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives human-readable diagnostic hints from a reading.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(rd types.Reading) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Sensor failure ───────────────────────────────────────────────────────
	if rd.ErrorMessage != "" {
		detail := fmt.Sprintf(
			"The monitor couldn't collect beat data from this device. "+
				"It last tried and got: \"%s\". "+
				"Check that the strap is powered on, within range, and that the bridge "+
				"endpoint is reachable. Until this is resolved the window stops filling "+
				"and the exponent cannot update.",
			rd.ErrorMessage,
		)
		hints = append(hints, DiagnosticHint{
			Key:    "sensor_failed",
			Level:  "critical",
			Title:  "Can't reach sensor",
			Detail: detail,
		})
		return hints // no point computing further without data
	}

	// ── Warming up ───────────────────────────────────────────────────────────
	if rd.Alpha1 == nil {
		fill := float64(rd.WindowFill)
		remaining := rd.WindowWidth - rd.WindowFill
		detail := fmt.Sprintf(
			"The analysis window has %d of %d beats. The exponent needs a full "+
				"window before the first value appears — at a typical heart rate "+
				"that is roughly %d more seconds. No action needed, keep moving.",
			rd.WindowFill, rd.WindowWidth, remaining,
		)
		hints = append(hints, DiagnosticHint{
			Key:    "warming_up",
			Level:  "info",
			Title:  "Warming up",
			Detail: detail,
			Value:  &fill,
		})
		return hints
	}

	// ── Artifact rate ─────────────────────────────────────────────────────────
	if rd.ArtifactPct > 0 {
		pct := rd.ArtifactPct
		v := pct
		var level, title, detail string

		switch {
		case pct >= 5:
			level = "critical"
			title = fmt.Sprintf("%.1f%% artifacts", pct)
			detail = fmt.Sprintf(
				"%.1f%% of beats in the current window were corrected (%d of %d). "+
					"Above 5%% the exponent can no longer be trusted — artifact "+
					"correction biases it towards lower values. Usual suspects: "+
					"a dry or loose strap, a worn battery, or clothing rubbing "+
					"the electrodes. Wet the contact pads and tighten the strap.",
				pct, rd.CorrectedCount, rd.CleanedCount,
			)
		case pct >= 2:
			level = "warning"
			title = fmt.Sprintf("%.1f%% artifacts", pct)
			detail = fmt.Sprintf(
				"About %.1f%% of beats are being corrected (%d of %d). The value "+
					"is still usable but borderline. Check strap contact before "+
					"trusting threshold decisions made near a zone boundary.",
				pct, rd.CorrectedCount, rd.CleanedCount,
			)
		default:
			level = "info"
			title = fmt.Sprintf("%.1f%% minor artifacts", pct)
			detail = fmt.Sprintf(
				"A small number of beats (%.1f%%) were corrected. This is normal "+
					"for chest straps during movement and does not meaningfully "+
					"affect the exponent.",
				pct,
			)
		}
		hints = append(hints, DiagnosticHint{Key: "artifact_rate", Level: level, Title: title, Detail: detail, Value: &v})
	}

	// ── Zone guidance ─────────────────────────────────────────────────────────
	alpha := *rd.Alpha1
	v := alpha
	switch rd.Zone {
	case types.ZoneAnaerobic:
		hints = append(hints, DiagnosticHint{
			Key:   "zone_anaerobic",
			Level: "warning",
			Title: fmt.Sprintf("α1 %.2f — anaerobic", alpha),
			Detail: fmt.Sprintf(
				"The exponent is %.2f, below the anaerobic boundary. Beat-to-beat "+
					"variability has become strongly anti-correlated, which is what "+
					"sustained high intensity looks like. If this is meant to be an "+
					"easy session, back off — the value lags effort by a couple of "+
					"minutes, so ease off early rather than late.",
				alpha,
			),
			Value: &v,
		})
	case types.ZoneTransition:
		hints = append(hints, DiagnosticHint{
			Key:   "zone_transition",
			Level: "info",
			Title: fmt.Sprintf("α1 %.2f — transition", alpha),
			Detail: fmt.Sprintf(
				"The exponent is %.2f, between the aerobic and anaerobic "+
					"boundaries. You are around the first threshold — sustainable, "+
					"but no longer strictly easy. For polarized base training most "+
					"time should sit above the aerobic boundary.",
				alpha,
			),
			Value: &v,
		})
	}

	// ── Bridge certificate ────────────────────────────────────────────────────
	if c := rd.BridgeCert; c != nil && c.Status != "valid" {
		days := float64(c.DaysLeft)
		var level, title, detail string
		switch c.Status {
		case "expired":
			level = "critical"
			title = "Bridge cert expired"
			detail = fmt.Sprintf(
				"The TLS certificate on %s has expired. Clients that verify "+
					"certificates will refuse to connect. Renew the certificate "+
					"on the bridge host.",
				c.Endpoint,
			)
		case "expiring":
			level = "warning"
			title = fmt.Sprintf("Cert expires in %dd", c.DaysLeft)
			detail = fmt.Sprintf(
				"The TLS certificate on %s expires in %d days (%s). Renew it "+
					"before collection breaks mid-session.",
				c.Endpoint, c.DaysLeft, c.NotAfter,
			)
		default: // unreachable
			level = "warning"
			title = "Cert check failed"
			detail = fmt.Sprintf(
				"The certificate on %s could not be inspected. The endpoint may "+
					"be down, or it is serving plain HTTP on an https URL.",
				c.Endpoint,
			)
		}
		hints = append(hints, DiagnosticHint{Key: "bridge_cert", Level: level, Title: title, Detail: detail, Value: &days})
	}

	// ── Source-type specific guidance ─────────────────────────────────────────
	hints = append(hints, sourceTypeHints(rd)...)

	// ── All clear ─────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "steady",
			Level: "ok",
			Title: fmt.Sprintf("α1 %.2f — aerobic", alpha),
			Detail: fmt.Sprintf(
				"The exponent is %.2f, above the aerobic boundary, with a clean "+
					"signal. This intensity is sustainable. Remember the value "+
					"reflects the last window of beats, so it trails changes in "+
					"effort by a couple of minutes.",
				alpha,
			),
			Value: &v,
		})
	}

	return hints
}

// sourceTypeHints returns source-type-specific diagnostic hints.
func sourceTypeHints(rd types.Reading) []DiagnosticHint {
	var hints []DiagnosticHint

	switch rd.SourceType {
	case "bridge":
		if rd.ArtifactPct >= 2 {
			hints = append(hints, DiagnosticHint{
				Key:   "bridge_contact_tip",
				Level: "info",
				Title: "Strap contact check",
				Detail: "For chest-strap artifact issues, start with the electrodes: " +
					"wet the contact pads, tighten the strap one notch, and make sure " +
					"the sensor pod is centred on the sternum. If artifacts persist at " +
					"rest, the strap battery is the next suspect — RR precision degrades " +
					"before the battery dies outright.",
			})
		}

	case "sim":
		hints = append(hints, DiagnosticHint{
			Key:   "sim_source",
			Level: "info",
			Title: "Simulated data",
			Detail: "This device is a built-in simulator. Its beat stream is synthetic " +
				"and the exponent it produces has no physiological meaning — use it " +
				"for dashboard and alert-rule testing only.",
		})

	case "replay":
		hints = append(hints, DiagnosticHint{
			Key:   "replay_source",
			Level: "info",
			Title: "Replayed session",
			Detail: "This device is replaying a recorded session file. Values are " +
				"historical; timestamps reflect when the replay was processed, not " +
				"when the beats originally occurred.",
		})
	}

	return hints
}

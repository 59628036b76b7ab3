package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	dto "github.com/prometheus/client_model/go"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

// Metric names published by BLE heart-rate bridge exporters.
const (
	// Instantaneous heart rate decoded from the last measurement packet.
	bridgeHeartRate = "hrm_heart_rate_bpm"

	// RR intervals from the last notification packet, one gauge per slot.
	// A BLE heart-rate measurement carries up to nine RR values; the slot
	// label preserves their beat order.
	bridgeRRInterval = "hrm_rr_interval_milliseconds"

	// Total notification packets decoded since the bridge started. Used to
	// detect whether the exported RR slots are new since the last poll.
	bridgePackets = "hrm_packets_total"
)

type bridgeSource struct {
	src    config.Source
	client *http.Client

	// lastPackets is the packet counter observed on the previous poll.
	// Polling faster than the sensor notifies must not re-ingest the same
	// RR values twice.
	lastPackets float64
	primed      bool
}

// Sample polls the bridge exporter's metrics endpoint and extracts the
// heart rate and any RR intervals that arrived since the previous poll.
func (s *bridgeSource) Sample(ctx context.Context) (*Batch, error) {
	b := newBatch(s.src.ID, "bridge")

	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		b.Err = fmt.Errorf("bridge sample %q: %w", s.src.ID, err)
		slog.Warn("sensor: bridge fetch failed", "source", s.src.ID, "err", err)
		return b, nil
	}

	b.HeartRate = int(firstValue(mfs[bridgeHeartRate]))

	packets := firstValue(mfs[bridgePackets])
	if s.primed && packets == s.lastPackets {
		// No new packet — the RR slots still hold the previous beat data.
		return b, nil
	}
	s.lastPackets = packets
	s.primed = true

	b.Intervals = rrSlots(mfs[bridgeRRInterval])
	return b, nil
}

// rrSlots extracts RR values from the slot-labelled gauge family, ordered
// by ascending slot number. Samples with an unparseable or missing slot
// label are skipped.
func rrSlots(mf *dto.MetricFamily) []float64 {
	if mf == nil {
		return nil
	}

	type slotted struct {
		slot int
		val  float64
	}
	slots := make([]slotted, 0, len(mf.GetMetric()))
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() != "slot" {
				continue
			}
			n, err := strconv.Atoi(lp.GetValue())
			if err != nil {
				break
			}
			slots = append(slots, slotted{slot: n, val: sampleValue(m)})
			break
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].slot < slots[j].slot })

	out := make([]float64, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.val)
	}
	return out
}

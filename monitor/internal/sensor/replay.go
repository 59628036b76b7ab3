package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

// replayBatchSize is how many recorded intervals one Sample call delivers.
// Small batches keep the replayed stream close to live pacing when polled
// at the normal interval.
const replayBatchSize = 4

// ErrReplayDone is returned by Sample once the recorded session is
// exhausted. The caller should stop polling this source.
var ErrReplayDone = errors.New("sensor: replay exhausted")

// replaySource feeds a recorded RR session back through the engine. The
// file format is one interval in milliseconds per line; blank lines and
// lines starting with '#' are skipped.
type replaySource struct {
	src       config.Source
	intervals []float64
	pos       int
}

func newReplaySource(src config.Source) (*replaySource, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("sensor %q: open replay file: %w", src.ID, err)
	}
	defer f.Close()

	var intervals []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %s:%d: bad interval %q", src.ID, src.Path, line, text)
		}
		intervals = append(intervals, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sensor %q: read replay file: %w", src.ID, err)
	}

	return &replaySource{src: src, intervals: intervals}, nil
}

// Sample delivers the next chunk of recorded intervals.
func (s *replaySource) Sample(_ context.Context) (*Batch, error) {
	if s.pos >= len(s.intervals) {
		return nil, ErrReplayDone
	}

	end := s.pos + replayBatchSize
	if end > len(s.intervals) {
		end = len(s.intervals)
	}
	chunk := s.intervals[s.pos:end]
	s.pos = end

	b := newBatch(s.src.ID, "replay")
	b.Intervals = append([]float64(nil), chunk...)
	if last := chunk[len(chunk)-1]; last > 0 {
		b.HeartRate = int(math.Round(60000 / last))
	}
	return b, nil
}

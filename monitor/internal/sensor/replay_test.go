package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

func writeReplayFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.rr")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplaySource_ChunksAndDone(t *testing.T) {
	path := writeReplayFile(t, `# recorded 2026-08-12, polar h10
800
810

805
# mid-session marker
795
820
`)
	s, err := newReplaySource(config.Source{ID: "r0", Type: "replay", Path: path})
	if err != nil {
		t.Fatal(err)
	}

	b1, err := s.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want1 := []float64{800, 810, 805, 795}
	if len(b1.Intervals) != len(want1) {
		t.Fatalf("first chunk = %v, want %v", b1.Intervals, want1)
	}
	for i := range want1 {
		if b1.Intervals[i] != want1[i] {
			t.Errorf("first chunk[%d] = %v, want %v", i, b1.Intervals[i], want1[i])
		}
	}

	b2, err := s.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(b2.Intervals) != 1 || b2.Intervals[0] != 820 {
		t.Fatalf("second chunk = %v, want [820]", b2.Intervals)
	}
	// Heart rate derived from the last interval of the chunk.
	if b2.HeartRate != 73 {
		t.Errorf("HeartRate = %d, want 73", b2.HeartRate)
	}

	if _, err := s.Sample(context.Background()); !errors.Is(err, ErrReplayDone) {
		t.Fatalf("err = %v, want ErrReplayDone", err)
	}
	// Exhausted stays exhausted.
	if _, err := s.Sample(context.Background()); !errors.Is(err, ErrReplayDone) {
		t.Fatalf("repeat err = %v, want ErrReplayDone", err)
	}
}

func TestReplaySource_BadLine(t *testing.T) {
	path := writeReplayFile(t, "800\nnot-a-number\n810\n")
	if _, err := newReplaySource(config.Source{ID: "r0", Type: "replay", Path: path}); err == nil {
		t.Fatal("expected error for malformed interval line")
	}
}

func TestReplaySource_MissingFile(t *testing.T) {
	if _, err := newReplaySource(config.Source{ID: "r0", Type: "replay", Path: "/nonexistent/session.rr"}); err == nil {
		t.Fatal("expected error for missing replay file")
	}
}

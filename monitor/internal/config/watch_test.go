package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchBaseYAML = `
monitor:
  server_endpoint: "http://localhost:8080"
engine:
  window_width: 120
`

const watchUpdatedYAML = `
monitor:
  server_endpoint: "http://localhost:8080"
engine:
  window_width: 150
`

// window_width below box_max fails validation, not just parsing.
const watchInvalidYAML = `
monitor:
  server_endpoint: "http://localhost:8080"
engine:
  window_width: 8
`

func startWatch(t *testing.T, path string) (context.CancelFunc, <-chan *Config) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan *Config, 4)
	go func() {
		if err := Watch(ctx, path, func(cfg *Config) { ch <- cfg }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	// Give the watcher a moment to register before the test rewrites the file.
	time.Sleep(100 * time.Millisecond)
	return cancel, ch
}

func TestWatch_ReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watchBaseYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cancel, ch := startWatch(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte(watchUpdatedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		if cfg.Engine.WindowWidth != 150 {
			t.Errorf("window_width after reload: got %d, want 150", cfg.Engine.WindowWidth)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after config write")
	}
}

func TestWatch_InvalidWriteKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watchBaseYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cancel, ch := startWatch(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte(watchInvalidYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		t.Fatalf("invalid config was applied: %+v", cfg.Engine)
	case <-time.After(600 * time.Millisecond):
	}

	// A subsequent valid write still comes through.
	if err := os.WriteFile(path, []byte(watchUpdatedYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-ch:
		if cfg.Engine.WindowWidth != 150 {
			t.Errorf("window_width after recovery: got %d, want 150", cfg.Engine.WindowWidth)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after recovering from invalid write")
	}
}

package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.NavTimeout != 120*time.Second {
		t.Errorf("Expected nav timeout to be 120s, got %v", opts.NavTimeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.StorageStatePath != "storage_state.json" {
		t.Errorf("Expected storage state path to be storage_state.json, got %s", opts.StorageStatePath)
	}

	if opts.UserAgent == "" {
		t.Error("Expected a default user agent")
	}
}

func TestHasSession(t *testing.T) {
	opts := DefaultOptions()
	opts.StorageStatePath = filepath.Join(t.TempDir(), "storage_state.json")

	if opts.HasSession() {
		t.Error("Expected no session before the state file exists")
	}

	if err := os.WriteFile(opts.StorageStatePath, []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write state file: %v", err)
	}

	if !opts.HasSession() {
		t.Error("Expected a session once the state file exists")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TPS != Default().TPS {
		t.Fatalf("TPS = %d, want default %d", cfg.TPS, Default().TPS)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Load should have written the default config to disk: %v", err)
	}
}

func TestLoadRejectsInvalidTPS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, Config{WebBindAddress: ":4202", TPS: 0}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject a config with tps <= 0")
	}
}

func TestLoadRejectsUnknownUserlistMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.UserlistMode = "bogus"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject an unknown userlist_mode")
	}
}

func TestChatIntervalConversion(t *testing.T) {
	cfg := Config{ChatIntervalSeconds: 2.5}
	if got := cfg.ChatInterval(); got != 2500*time.Millisecond {
		t.Fatalf("ChatInterval = %v, want 2.5s", got)
	}
}

func TestWatcherPollDetectsChangeAndFiresLiveCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Maintenance = false
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	var gotLive LiveFields
	calls := 0
	w.OnLiveChange(func(lf LiveFields) {
		calls++
		gotLive = lf
	})

	// No change yet.
	reloaded, err := w.Poll()
	if err != nil {
		t.Fatalf("Poll (no change): %v", err)
	}
	if reloaded {
		t.Fatal("Poll should report no reload when the file hasn't changed")
	}

	// Bump mtime forward and flip maintenance, the way an operator edit would.
	cfg.Maintenance = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	reloaded, err = w.Poll()
	if err != nil {
		t.Fatalf("Poll (changed): %v", err)
	}
	if !reloaded {
		t.Fatal("Poll should report a reload when the file's mtime advances")
	}
	if calls != 1 {
		t.Fatalf("live callback fired %d times, want 1", calls)
	}
	if !gotLive.Maintenance {
		t.Fatal("live callback should observe the new maintenance value")
	}
	if !w.Current().Maintenance {
		t.Fatal("Current() should reflect the reloaded config")
	}
}

func TestWatcherSkipsLiveCallbackWhenLiveFieldsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.TPS = 30
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	calls := 0
	w.OnLiveChange(func(LiveFields) { calls++ })

	// Change a non-live field only (tps); maintenance/whitelist/roles
	// are untouched, so the live callback must not fire.
	cfg.TPS = 60
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if _, err := w.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if calls != 0 {
		t.Fatalf("live callback fired %d times, want 0 for a non-live-field change", calls)
	}
	if w.Current().TPS != 60 {
		t.Fatal("Current() should still reflect the reloaded tps even without a live callback")
	}
}

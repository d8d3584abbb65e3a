package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	defer m.Stop()

	if m.IsRunning() {
		t.Error("Manager should not be running initially")
	}
}

func TestManager_StartStop(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	// Second Start is a no-op
	if err := m.Start(); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("Manager should be running after Start()")
	}

	m.Stop()
	m.Stop()
	if m.IsRunning() {
		t.Fatal("Manager should not be running after Stop()")
	}
}

func TestManager_Integration_Reload(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	m.SetDebounceTime(50 * time.Millisecond)

	testFile := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, testFile, "stream:\n  interval: 5s\n")

	reloadable := &mockReloadable{name: "server"}
	if err := m.RegisterReloadable(reloadable); err != nil {
		t.Fatalf("RegisterReloadable() failed: %v", err)
	}

	var reloads atomic.Int32
	if err := m.AddListener("metrics", func(ctx context.Context, result Result) error {
		reloads.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("AddListener() failed: %v", err)
	}

	if err := m.AddWatch(testFile); err != nil {
		t.Fatalf("AddWatch() failed: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer m.Stop()

	writeFile(t, testFile, "stream:\n  interval: 1s\n")

	waitFor(t, 2*time.Second, func() bool { return reloadable.GetReloadCount() == 1 })
	waitFor(t, time.Second, func() bool { return reloads.Load() == 1 })

	if err := m.RemoveWatch(testFile); err != nil {
		t.Fatalf("RemoveWatch() failed: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("stream:\n  interval: 2s\n"), 0o644); err != nil {
		t.Fatalf("Failed to modify test file again: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if count := reloadable.GetReloadCount(); count != 1 {
		t.Errorf("Expected reload count to remain 1 after removing watch, got %d", count)
	}
}

func TestManager_AddRemoveListener(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	defer m.Stop()

	if err := m.AddListener("test-listener", func(ctx context.Context, result Result) error { return nil }); err != nil {
		t.Fatalf("AddListener() failed: %v", err)
	}
	if !m.broadcaster.HasListener("test-listener") {
		t.Fatal("Listener was not added to broadcaster")
	}

	m.RemoveListener("test-listener")
	if m.broadcaster.HasListener("test-listener") {
		t.Fatal("Listener was not removed from broadcaster")
	}
}

func TestManager_Shutdown(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
	if m.IsRunning() {
		t.Error("Manager should not be running after Shutdown")
	}
}

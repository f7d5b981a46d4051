package discovery

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRegistryDedupesByMAC(t *testing.T) {
	reg := newRegistry()
	reg.record(Found{MAC: "aabbcc", IP: "10.0.0.5", Dimming: 50})
	reg.record(Found{MAC: "aabbcc", IP: "10.0.0.99", Dimming: 90}) // later dup, ignored

	all := reg.all()
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
	if all[0].IP != "10.0.0.5" {
		t.Errorf("IP = %q, want first-seen 10.0.0.5", all[0].IP)
	}
}

func TestRegistryCollectsMultipleBulbs(t *testing.T) {
	reg := newRegistry()
	reg.record(Found{MAC: "one", IP: "10.0.0.1"})
	reg.record(Found{MAC: "two", IP: "10.0.0.2"})
	reg.record(Found{MAC: "three", IP: "10.0.0.3"})

	if got := len(reg.all()); got != 3 {
		t.Errorf("len(all) = %d, want 3", got)
	}
}

// TestSweepEnablesBroadcastWithoutError exercises the actual socket path:
// binding via listenConfig and sending to the limited broadcast address
// must not fail with EACCES (the bug this fixes). A short timeout keeps
// the test fast since no real bulb will answer in CI.
func TestSweepEnablesBroadcastWithoutError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	found, err := Sweep(ctx, 50*time.Millisecond, logger)
	if err != nil {
		t.Fatalf("Sweep returned error (broadcast likely not enabled): %v", err)
	}
	if found == nil {
		t.Error("Sweep returned nil slice, want non-nil empty slice")
	}
}

package service

import (
	"testing"

	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/service/publisher"
)

func TestHealthMonitorSweep(t *testing.T) {
	t.Parallel()

	registry := publisher.NewRegistry(zap.NewNop())
	healthy := &fakePublisher{slug: "reddit", result: &publisher.Result{Success: true}}
	if err := registry.Register(healthy); err != nil {
		t.Fatalf("Register: %v", err)
	}

	m := NewHealthMonitor(registry, "@every 5m", zap.NewNop())

	latest, checkedAt := m.Latest()
	if len(latest) != 0 || !checkedAt.IsZero() {
		t.Fatalf("Latest() before any sweep = %v at %v, want empty", latest, checkedAt)
	}

	m.Sweep()

	latest, checkedAt = m.Latest()
	if checkedAt.IsZero() {
		t.Error("checkedAt still zero after sweep")
	}
	res, ok := latest["reddit"]
	if !ok || !res.Success {
		t.Errorf("Latest()[reddit] = %+v, want successful result", res)
	}

	// Mutating the returned map must not touch the cached copy.
	delete(latest, "reddit")
	again, _ := m.Latest()
	if _, ok := again["reddit"]; !ok {
		t.Error("Latest() returned the internal map instead of a copy")
	}
}

package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/docvault/docvault/internal/auditlog"
	"github.com/docvault/docvault/internal/ledger"
	"github.com/docvault/docvault/internal/monitor"
	"go.uber.org/zap"
)

var ctx = context.Background()

type staticRoot string

func (r staticRoot) CurrentRoot() string { return string(r) }

func TestSweep_passesOnHealthyChain(t *testing.T) {
	sim := ledger.NewMemory(zap.NewNop())
	audit := auditlog.New(sim, sim, zap.NewNop())
	defer audit.Close()

	res := audit.UpdateRoot(ctx, "ab12cd", false)
	if !res.Success {
		t.Fatal("root anchor failed")
	}

	s := monitor.New(sim, audit, staticRoot("ab12cd"), monitor.Config{}, zap.NewNop())
	if !s.Sweep(ctx) {
		t.Error("sweep should pass on a healthy chain with anchored root")
	}

	sweeps, failures, lastOK := s.Stats()
	if sweeps != 1 || failures != 0 {
		t.Errorf("stats = %d/%d, want 1/0", sweeps, failures)
	}
	if lastOK.IsZero() {
		t.Error("lastOK should be set after a passing sweep")
	}
}

func TestSweep_failsOnUnanchoredRoot(t *testing.T) {
	sim := ledger.NewMemory(zap.NewNop())
	audit := auditlog.New(sim, sim, zap.NewNop())
	defer audit.Close()

	s := monitor.New(sim, audit, staticRoot("never-anchored"), monitor.Config{}, zap.NewNop())
	if s.Sweep(ctx) {
		t.Error("sweep must fail when the live root has no anchor")
	}

	_, failures, _ := s.Stats()
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestSweep_emptyTreeSkipsRootCheck(t *testing.T) {
	sim := ledger.NewMemory(zap.NewNop())
	audit := auditlog.New(sim, sim, zap.NewNop())
	defer audit.Close()

	s := monitor.New(sim, audit, staticRoot(""), monitor.Config{}, zap.NewNop())
	if !s.Sweep(ctx) {
		t.Error("an empty tree has nothing to anchor; sweep should pass")
	}
}

func TestStart_stopsOnQuit(t *testing.T) {
	sim := ledger.NewMemory(zap.NewNop())
	audit := auditlog.New(sim, sim, zap.NewNop())
	defer audit.Close()

	s := monitor.New(sim, audit, staticRoot(""), monitor.Config{Interval: 10 * time.Millisecond}, zap.NewNop())

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.Start(quit)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(quit)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after quit")
	}

	sweeps, _, _ := s.Stats()
	if sweeps == 0 {
		t.Error("expected at least one sweep before quit")
	}
}

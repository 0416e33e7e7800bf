package auditlog

import (
	"context"
	"sort"
	"time"

	"github.com/docvault/docvault/internal/canon"
	"github.com/docvault/docvault/internal/ledger"
	"go.uber.org/zap"
)

// Match types reported by VerifyRoot.
const (
	MatchExact      = "exact"
	MatchNormalized = "normalized"
)

// RootVerification reports whether a root is anchored in the ledger and how
// it matched.
type RootVerification struct {
	Verified    bool      `json:"verified"`
	MatchType   string    `json:"match_type,omitempty"`
	MatchedRoot string    `json:"matched_root,omitempty"`
	Position    uint64    `json:"position,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Simulated   bool      `json:"simulated,omitempty"`
}

// Status is the operator-facing health snapshot. It makes the
// simulation/real distinction visible so the weaker guarantee of a degraded
// process is discoverable, not hidden.
type Status struct {
	Connected      bool   `json:"connected"`
	SimulationMode bool   `json:"simulation_mode"`
	Queued         int    `json:"queued_operations"`
	Processed      uint64 `json:"processed_operations"`
	Dropped        uint64 `json:"dropped_operations"`
}

// DocumentHash retrieves the content hash anchored for a document at upload
// time. Returns "" when no upload entry with a payload hash exists. The
// simulation log is consulted after the real backend so fallback entries
// remain reachable.
func (l *Logger) DocumentHash(ctx context.Context, documentID string) (string, error) {
	hash, err := documentHashIn(ctx, l.backend, documentID)
	if err != nil {
		return "", err
	}
	if hash == "" && !l.backend.Simulated() {
		return documentHashIn(ctx, l.sim, documentID)
	}
	return hash, nil
}

func documentHashIn(ctx context.Context, b ledger.Backend, documentID string) (string, error) {
	history, err := b.History(ctx, documentID)
	if err != nil {
		return "", err
	}
	for _, rec := range history {
		if rec.Kind != ledger.KindUpload {
			continue
		}
		if rec.PayloadHash != "" && rec.PayloadHash != ledger.ZeroHash {
			return rec.PayloadHash, nil
		}
	}
	return "", nil
}

// History returns all ledger entries for a document in commit order,
// merging fallback entries from the simulation log when the real backend is
// active. Positions are assigned independently per log and can collide, so
// the merged view orders by commit time; the Simulated flag on each record
// tells the two logs apart.
func (l *Logger) History(ctx context.Context, documentID string) ([]ledger.Record, error) {
	history, err := l.backend.History(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !l.backend.Simulated() {
		fallback, err := l.sim.History(ctx, documentID)
		if err == nil && len(fallback) > 0 {
			history = append(history, fallback...)
			sort.SliceStable(history, func(i, j int) bool {
				return history[i].Timestamp.Before(history[j].Timestamp)
			})
		}
	}
	return history, nil
}

// VerifyRoot checks whether a Merkle root is anchored in the ledger,
// comparing exact first and then case/0x-prefix normalized: anchored hash
// strings may or may not carry the prefix depending on where they were
// produced.
func (l *Logger) VerifyRoot(ctx context.Context, root string) RootVerification {
	roots, err := l.HistoricalRoots(ctx)
	if err != nil {
		l.logger.Error("query anchored roots", zap.Error(err))
		return RootVerification{}
	}

	for _, r := range roots {
		if r.Root == root {
			return RootVerification{
				Verified:    true,
				MatchType:   MatchExact,
				MatchedRoot: r.Root,
				Position:    r.Position,
				Timestamp:   r.Timestamp,
				Simulated:   r.Simulated,
			}
		}
	}
	for _, r := range roots {
		if canon.HashesEqual(r.Root, root) {
			return RootVerification{
				Verified:    true,
				MatchType:   MatchNormalized,
				MatchedRoot: r.Root,
				Position:    r.Position,
				Timestamp:   r.Timestamp,
				Simulated:   r.Simulated,
			}
		}
	}
	return RootVerification{}
}

// HistoricalRoots returns every anchored root, newest first, merging
// fallback anchors from the simulation log when the real backend is active.
// The merged view orders by anchor time since positions from the two logs
// are independent.
func (l *Logger) HistoricalRoots(ctx context.Context) ([]ledger.RootRecord, error) {
	roots, err := l.backend.Roots(ctx)
	if err != nil {
		return nil, err
	}
	if !l.backend.Simulated() {
		fallback, err := l.sim.Roots(ctx)
		if err == nil && len(fallback) > 0 {
			roots = append(roots, fallback...)
			sort.SliceStable(roots, func(i, j int) bool {
				return roots[i].Timestamp.After(roots[j].Timestamp)
			})
		}
	}
	return roots, nil
}

// Status reports connectivity, mode, and queue counters.
func (l *Logger) Status(ctx context.Context) Status {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return Status{
		Connected:      l.backend.Ping(pingCtx) == nil,
		SimulationMode: l.backend.Simulated(),
		Queued:         l.QueueDepth(),
		Processed:      l.state.processed.Load(),
		Dropped:        l.state.dropped.Load(),
	}
}

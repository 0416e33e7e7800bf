package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Memory is the in-memory simulation backend. Appends succeed immediately
// and unconditionally; entries are chained the same way as the durable
// backend so the simulated log is verifiable with the same walk.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries []Record
	logger  *zap.Logger
}

// NewMemory creates a simulation ledger initialised with the genesis entry.
func NewMemory(logger *zap.Logger) *Memory {
	m := &Memory{logger: logger}
	m.entries = append(m.entries, Record{
		Position:  0,
		Subject:   "genesis",
		Action:    "genesis",
		Timestamp: commitTime(),
		PrevHash:  GenesisHash,
		Hash:      GenesisHash, // well-known constant, not computed
		Simulated: true,
	})
	return m
}

func (m *Memory) appendLocked(rec Record) *CommitResult {
	prev := m.entries[len(m.entries)-1]
	rec.Position = uint64(len(m.entries))
	rec.Timestamp = commitTime()
	rec.PrevHash = prev.Hash
	rec.Hash = chainHash(&rec)
	rec.Simulated = true
	m.entries = append(m.entries, rec)

	return &CommitResult{
		Success:   true,
		Receipt:   "sim-" + uuid.NewString(),
		Position:  rec.Position,
		Simulated: true,
	}
}

// Commit implements Backend.
func (m *Memory) Commit(_ context.Context, e Entry) (*CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.appendLocked(Record{
		Subject:      e.SubjectID,
		Kind:         e.Kind,
		Action:       e.Kind.String(),
		ActorHash:    e.ActorHash,
		PayloadHash:  e.PayloadHash,
		MetadataHash: e.MetadataHash,
	})
	m.logger.Debug("simulated ledger commit",
		zap.String("subject", e.SubjectID),
		zap.String("action", e.Kind.String()),
		zap.Uint64("position", res.Position),
	)
	return res, nil
}

// CommitRoot implements Backend. The root value is carried in the payload
// hash field of the record.
func (m *Memory) CommitRoot(_ context.Context, root string) (*CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.appendLocked(Record{
		Subject:     RootSubject,
		Kind:        KindRootUpdate,
		Action:      KindRootUpdate.String(),
		PayloadHash: root,
	})
	res.Root = root
	m.logger.Debug("simulated root anchor",
		zap.String("root", root),
		zap.Uint64("position", res.Position),
	)
	return res, nil
}

// CommitFallback records a document action that failed against the real
// backend. The entry carries the failure cause so it stays distinguishable
// from a genuine confirmed commit on inspection.
func (m *Memory) CommitFallback(e Entry, cause error) *CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.appendLocked(Record{
		Subject:      e.SubjectID,
		Kind:         e.Kind,
		Action:       e.Kind.String(),
		ActorHash:    e.ActorHash,
		PayloadHash:  e.PayloadHash,
		MetadataHash: e.MetadataHash,
		Err:          cause.Error(),
	})
	return res
}

// CommitRootFallback records a root anchor that failed against the real
// backend, tagged with the failure cause.
func (m *Memory) CommitRootFallback(root string, cause error) *CommitResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.appendLocked(Record{
		Subject:     RootSubject,
		Kind:        KindRootUpdate,
		Action:      KindRootUpdate.String(),
		PayloadHash: root,
		Err:         cause.Error(),
	})
	res.Root = root
	return res
}

// History implements Backend.
func (m *Memory) History(_ context.Context, subjectID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.entries {
		if rec.Subject == subjectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Roots implements Backend, newest first.
func (m *Memory) Roots(_ context.Context) ([]RootRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RootRecord
	for _, rec := range m.entries {
		if rec.Subject == RootSubject {
			out = append(out, RootRecord{
				Root:      rec.PayloadHash,
				Position:  rec.Position,
				Timestamp: rec.Timestamp,
				Simulated: true,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position > out[j].Position })
	return out, nil
}

// Verify walks the chain and checks hash consistency. Returns nil if the
// log is intact.
func (m *Memory) Verify(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return verifyChain(m.entries)
}

// Len returns the number of entries including genesis.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ping implements Backend. The simulation log is always reachable.
func (m *Memory) Ping(context.Context) error { return nil }

// Simulated implements Backend.
func (m *Memory) Simulated() bool { return true }

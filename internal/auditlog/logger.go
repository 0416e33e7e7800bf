// Package auditlog wraps a ledger backend with an asynchronous work queue,
// a fallback-to-simulation policy, and the read-side queries used by
// verification endpoints.
//
// Durability is best-effort: async operations that fail are logged and never
// retried, and a full queue drops the newest operation rather than blocking
// the document workflow. Callers that need commit confirmation use the
// synchronous mode.
package auditlog

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/docvault/docvault/internal/canon"
	"github.com/docvault/docvault/internal/ledger"
	"go.uber.org/zap"
)

// MetadataHashKey is the metadata field that carries the document content
// hash, stored redundantly with the direct payload-hash field.
const MetadataHashKey = "document_hash"

// ActionInput describes one document action to anchor.
type ActionInput struct {
	DocumentID string
	Kind       ledger.Kind
	Actor      string       // actor identity; only its hash is anchored
	Payload    []byte       // raw document bytes, optional
	Metadata   canon.Record // metadata snapshot, optional
}

// Logger anchors document actions and Merkle roots through a ledger
// backend. One background worker drains the queue; any number of
// request-handling goroutines may enqueue concurrently.
type Logger struct {
	backend ledger.Backend
	sim     *ledger.Memory // fallback log; same instance as backend when simulated
	logger  *zap.Logger

	commitTimeout time.Duration

	queue chan func()
	state workerState
}

// Option configures a Logger.
type Option func(*Logger)

// WithQueueSize overrides the default queue capacity.
func WithQueueSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.queue = make(chan func(), n)
		}
	}
}

// WithCommitTimeout bounds how long a single backend commit may take.
func WithCommitTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.commitTimeout = d
		}
	}
}

// New creates a Logger over the selected backend. sim is the simulation log
// used as the per-operation fallback target; pass the Memory instance
// returned by ledger.Open.
func New(backend ledger.Backend, sim *ledger.Memory, logger *zap.Logger, opts ...Option) *Logger {
	l := &Logger{
		backend:       backend,
		sim:           sim,
		logger:        logger,
		commitTimeout: 15 * time.Second,
		queue:         make(chan func(), 256),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogAction anchors a document action. In async mode the operation is
// queued, the worker is started if needed, and the return value reports
// queuing success only. Callers needing commit confirmation must use
// async=false, which executes inline and returns the actual outcome.
func (l *Logger) LogAction(ctx context.Context, in ActionInput, async bool) bool {
	if async {
		ok := l.enqueue(func() { l.logActionSync(context.Background(), in) })
		l.ensureWorker()
		return ok
	}
	return l.logActionSync(ctx, in)
}

func (l *Logger) logActionSync(ctx context.Context, in ActionInput) bool {
	entry, err := l.buildEntry(in)
	if err != nil {
		// Serialization failure is a caller contract violation, not an
		// environmental one; there is nothing sane to anchor.
		l.logger.Error("cannot serialize action metadata",
			zap.String("document_id", in.DocumentID), zap.Error(err))
		return false
	}

	commitCtx, cancel := context.WithTimeout(ctx, l.commitTimeout)
	defer cancel()

	res, err := l.backend.Commit(commitCtx, entry)
	if err != nil {
		if l.backend.Simulated() {
			l.logger.Error("simulated ledger commit failed",
				zap.String("document_id", in.DocumentID), zap.Error(err))
			return false
		}
		// Fail-open: record the action in the simulation log with an error
		// marker and report success so the document workflow is never blocked.
		l.logger.Warn("ledger commit failed; recording fallback entry",
			zap.String("document_id", in.DocumentID),
			zap.String("action", in.Kind.String()),
			zap.Error(err))
		l.sim.CommitFallback(entry, err)
		return true
	}
	return res.Success
}

// buildEntry hashes the action inputs into a ledger entry. For upload and
// version actions the payload hash is injected into the metadata mapping
// before the metadata hash is computed, so the content hash is recoverable
// from either field.
func (l *Logger) buildEntry(in ActionInput) (ledger.Entry, error) {
	entry := ledger.Entry{
		Kind:         in.Kind,
		SubjectID:    in.DocumentID,
		ActorHash:    canon.DigestHex([]byte(in.Actor)),
		PayloadHash:  ledger.ZeroHash,
		MetadataHash: ledger.ZeroHash,
	}

	metadata := make(canon.Record, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	if len(in.Payload) > 0 {
		entry.PayloadHash = canon.DigestHex(in.Payload)
		if in.Kind == ledger.KindUpload || in.Kind == ledger.KindVersion {
			metadata[MetadataHashKey] = entry.PayloadHash
		}
	}

	if len(metadata) > 0 {
		sum, err := canon.HashRecord(metadata)
		if err != nil {
			return ledger.Entry{}, err
		}
		entry.MetadataHash = hex.EncodeToString(sum[:])
	}
	return entry, nil
}

// UpdateRoot anchors a Merkle root. In async mode a pending placeholder is
// returned immediately; document-write paths that persist the receipt
// alongside the record must use async=false.
func (l *Logger) UpdateRoot(ctx context.Context, root string, async bool) ledger.CommitResult {
	if async {
		if !l.enqueue(func() { l.updateRootSync(context.Background(), root) }) {
			return ledger.CommitResult{Success: false, Root: root, Reason: "audit queue full"}
		}
		l.ensureWorker()
		return ledger.CommitResult{Success: true, Pending: true, Root: root}
	}
	return l.updateRootSync(ctx, root)
}

func (l *Logger) updateRootSync(ctx context.Context, root string) ledger.CommitResult {
	commitCtx, cancel := context.WithTimeout(ctx, l.commitTimeout)
	defer cancel()

	res, err := l.backend.CommitRoot(commitCtx, root)
	if err != nil {
		if l.backend.Simulated() {
			return ledger.CommitResult{Success: false, Root: root, Reason: err.Error()}
		}
		l.logger.Warn("root anchor failed; recording fallback entry",
			zap.String("root", root), zap.Error(err))
		return *l.sim.CommitRootFallback(root, err)
	}
	return *res
}

package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Config selects the ledger backend at startup.
type Config struct {
	// DSN is the PostgreSQL connection string for the durable backend.
	// Empty DSN selects the simulation backend.
	DSN string

	// Simulate forces the simulation backend even when a DSN is configured.
	Simulate bool

	// ConnectTimeout bounds the startup reachability check.
	ConnectTimeout time.Duration
}

// Open selects and initialises the ledger backend. Any missing or invalid
// configuration, or a backend unreachable at startup, degrades to the
// simulation backend with a warning, never a fatal error. The choice is
// made once: a degraded process stays degraded for its lifetime.
//
// The returned Memory instance is the simulation log used for per-operation
// fallback; when the selection itself degraded, it is the returned Backend.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, *Memory) {
	sim := NewMemory(logger)

	if cfg.Simulate {
		logger.Warn("ledger running in SIMULATION mode; entries are not externally verifiable")
		return sim, sim
	}
	if cfg.DSN == "" {
		logger.Warn("no ledger DSN configured; degrading to SIMULATION mode")
		return sim, sim
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.DSN)
	if err != nil {
		logger.Warn("invalid ledger DSN; degrading to SIMULATION mode", zap.Error(err))
		return sim, sim
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		logger.Warn("ledger backend unreachable; degrading to SIMULATION mode", zap.Error(err))
		return sim, sim
	}

	pg := NewPostgres(pool, logger)
	if err := pg.Verify(connectCtx); err != nil {
		// A broken chain is a loud operator signal, but commits continue:
		// integrity logging must never block the document workflow.
		logger.Error("ledger integrity check FAILED at startup", zap.Error(err))
	}

	logger.Info("connected to durable ledger backend")
	return pg, sim
}

package ledger

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/docvault/docvault/internal/canon"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent appends. The value is arbitrary but must be consistent across
// all server instances.
const advisoryLockKey = int64(7_341_008_215)

// Postgres is the durable ledger backend: a hash-chained append-only table.
// It implements the Backend interface.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a Postgres ledger backed by the given connection pool.
// The integrity_ledger table and its genesis row are created by cmd/migrate.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// Commit implements Backend. It acquires an advisory lock, reads the chain
// tail, computes the new entry hash, and inserts it within one transaction.
// The caller bounds the wait through ctx.
func (p *Postgres) Commit(ctx context.Context, e Entry) (*CommitResult, error) {
	rec := Record{
		Subject:      e.SubjectID,
		Kind:         e.Kind,
		Action:       e.Kind.String(),
		ActorHash:    e.ActorHash,
		PayloadHash:  e.PayloadHash,
		MetadataHash: e.MetadataHash,
	}
	res, err := p.append(ctx, &rec)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("ledger entry committed",
		zap.Uint64("position", rec.Position),
		zap.String("subject", rec.Subject),
		zap.String("action", rec.Action),
	)
	return res, nil
}

// CommitRoot implements Backend. The root value is carried in the payload
// hash field.
func (p *Postgres) CommitRoot(ctx context.Context, root string) (*CommitResult, error) {
	rec := Record{
		Subject:     RootSubject,
		Kind:        KindRootUpdate,
		Action:      KindRootUpdate.String(),
		PayloadHash: root,
	}
	res, err := p.append(ctx, &rec)
	if err != nil {
		return nil, err
	}
	res.Root = root
	p.logger.Debug("merkle root anchored",
		zap.Uint64("position", rec.Position),
		zap.String("root", root),
	)
	return res, nil
}

func (p *Postgres) append(ctx context.Context, rec *Record) (*CommitResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent appends with a transaction-scoped advisory lock.
	// Released automatically when the transaction commits or rolls back.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx uint64
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM integrity_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}

	rec.Position = prevIdx + 1
	rec.Timestamp = commitTime()
	rec.PrevHash = prevHash
	rec.Hash = chainHash(rec)

	subjectKey := hex.EncodeToString(canon.FixedWidth(rec.Subject, 32))

	if _, err := tx.Exec(ctx,
		`INSERT INTO integrity_ledger (idx, ts, subject, subject_key, kind, actor_hash, payload_hash, metadata_hash, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Position, rec.Timestamp, rec.Subject, subjectKey, int(rec.Kind),
		rec.ActorHash, rec.PayloadHash, rec.MetadataHash, rec.PrevHash, rec.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}

	return &CommitResult{
		Success:  true,
		Receipt:  uuid.NewString(),
		Position: rec.Position,
	}, nil
}

// History implements Backend.
func (p *Postgres) History(ctx context.Context, subjectID string) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT idx, ts, subject, kind, actor_hash, payload_hash, metadata_hash, prev_hash, hash
		 FROM integrity_ledger WHERE subject = $1 ORDER BY idx ASC`, subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", subjectID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var kind int
		if err := rows.Scan(
			&rec.Position, &rec.Timestamp, &rec.Subject, &kind,
			&rec.ActorHash, &rec.PayloadHash, &rec.MetadataHash,
			&rec.PrevHash, &rec.Hash,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		rec.Kind = Kind(kind)
		rec.Action = rec.Kind.String()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Roots implements Backend, newest first.
func (p *Postgres) Roots(ctx context.Context) ([]RootRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT idx, ts, payload_hash FROM integrity_ledger
		 WHERE subject = $1 ORDER BY idx DESC`, RootSubject,
	)
	if err != nil {
		return nil, fmt.Errorf("query anchored roots: %w", err)
	}
	defer rows.Close()

	var out []RootRecord
	for rows.Next() {
		var r RootRecord
		if err := rows.Scan(&r.Position, &r.Timestamp, &r.Root); err != nil {
			return nil, fmt.Errorf("scan root row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Verify streams all rows ordered by idx and validates the hash chain.
// O(n) in ledger length; may be slow for very large ledgers.
func (p *Postgres) Verify(ctx context.Context) error {
	rows, err := p.pool.Query(ctx,
		`SELECT idx, ts, subject, kind, actor_hash, payload_hash, metadata_hash, prev_hash, hash
		 FROM integrity_ledger ORDER BY idx ASC`,
	)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var prev *Record
	for rows.Next() {
		curr := &Record{}
		var kind int
		if err := rows.Scan(
			&curr.Position, &curr.Timestamp, &curr.Subject, &kind,
			&curr.ActorHash, &curr.PayloadHash, &curr.MetadataHash,
			&curr.PrevHash, &curr.Hash,
		); err != nil {
			return fmt.Errorf("scan ledger row: %w", err)
		}
		curr.Kind = Kind(kind)

		if prev == nil {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			prev = curr
			continue
		}

		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at position %d", curr.Position)
		}
		if curr.Hash != chainHash(curr) {
			return fmt.Errorf("entry %d has invalid hash", curr.Position)
		}
		prev = curr
	}
	return rows.Err()
}

// Ping implements Backend.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Simulated implements Backend.
func (p *Postgres) Simulated() bool { return false }

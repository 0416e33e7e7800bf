// Package ledger abstracts commit and query operations against an external
// tamper-evident, append-only ledger.
//
// Two implementations of the Backend interface are provided:
//   - Memory: in-process simulation log, functionally complete but not
//     externally verifiable. Used for development, for tests, and as the
//     fallback target when the real backend degrades.
//   - Postgres: durable hash-chained ledger, for production use.
//
// Both present identical observable contracts to callers. Commit errors are
// returned as plain error values; deciding whether to fall back is the
// caller's job, never this package's.
package ledger

import (
	"context"
	"strings"
	"time"
)

// GenesisHash is the canonical well-known hash of the genesis entry.
// All subsequent entry hashes chain from this constant.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ZeroHash is the hex form of an all-zero 32-byte field, used when a commit
// carries no payload or metadata.
const ZeroHash = GenesisHash

// RootSubject is the subject marker for Merkle-root anchor entries, keeping
// them distinguishable from per-document actions.
const RootSubject = "merkle-root"

// Kind identifies a document action. The values 0–6 must match the anchored
// contract enum and must not be reordered.
type Kind int

const (
	KindUpload Kind = iota
	KindUpdate
	KindDownload
	KindDelete
	KindVersion
	KindShare
	KindRestore

	// KindRootUpdate is not part of the anchored action enum; root anchors
	// are identified by RootSubject on the wire.
	KindRootUpdate Kind = 7
)

var kindNames = map[Kind]string{
	KindUpload:     "upload",
	KindUpdate:     "update",
	KindDownload:   "download",
	KindDelete:     "delete",
	KindVersion:    "version",
	KindShare:      "share",
	KindRestore:    "restore",
	KindRootUpdate: "root-update",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps an action name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == strings.ToLower(name) {
			return k, true
		}
	}
	return 0, false
}

// Entry is the input to a commit: the action kind plus the fixed-size
// identity and content hashes the ledger anchors.
type Entry struct {
	Kind         Kind
	SubjectID    string // document identifier
	ActorHash    string // hex SHA-256 of the actor identity
	PayloadHash  string // hex, ZeroHash when no payload
	MetadataHash string // hex, ZeroHash when no metadata
}

// Record is one immutable committed ledger entry. Never mutated after
// creation; queried by subject or kind to reconstruct history.
type Record struct {
	Position     uint64    `json:"position"`
	Subject      string    `json:"subject"`
	Kind         Kind      `json:"kind"`
	Action       string    `json:"action"`
	ActorHash    string    `json:"actor_hash,omitempty"`
	PayloadHash  string    `json:"payload_hash,omitempty"`
	MetadataHash string    `json:"metadata_hash,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	PrevHash     string    `json:"prev_hash,omitempty"`
	Hash         string    `json:"hash,omitempty"`
	Simulated    bool      `json:"simulated,omitempty"`

	// Err marks a fallback entry recorded after a real-backend commit
	// failure. Non-empty Err means this is best-effort evidence, not a
	// confirmed commit.
	Err string `json:"error,omitempty"`
}

// RootRecord is one anchored Merkle root.
type RootRecord struct {
	Root      string    `json:"root"`
	Position  uint64    `json:"position"`
	Timestamp time.Time `json:"timestamp"`
	Simulated bool      `json:"simulated,omitempty"`
}

// CommitResult reports the outcome of a commit operation.
type CommitResult struct {
	Success   bool   `json:"success"`
	Receipt   string `json:"receipt,omitempty"`
	Position  uint64 `json:"position,omitempty"`
	Root      string `json:"root,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`

	// Pending marks the placeholder returned by asynchronous root updates;
	// callers needing the real receipt must commit synchronously.
	Pending bool `json:"pending,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Backend is the commit/query contract shared by the real and simulation
// ledgers. Commit and CommitRoot return an error for transient backend
// failures; the caller inspects it to decide fallback.
type Backend interface {
	// Commit appends a document-action entry and waits for confirmation.
	Commit(ctx context.Context, e Entry) (*CommitResult, error)

	// CommitRoot anchors a Merkle root.
	CommitRoot(ctx context.Context, root string) (*CommitResult, error)

	// History returns all entries for a subject in commit order.
	History(ctx context.Context, subjectID string) ([]Record, error)

	// Roots returns all anchored Merkle roots, newest first.
	Roots(ctx context.Context) ([]RootRecord, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Simulated reports whether this backend is the in-memory stand-in.
	Simulated() bool
}

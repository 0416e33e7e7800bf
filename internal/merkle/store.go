// Package merkle maintains the content-addressed Merkle tree that
// fingerprints the current document collection.
//
// Leaves are the SHA-256 digests of each document's canonicalized metadata
// record, ordered by document ID so the tree shape never depends on insertion
// order. Each level hashes adjacent pairs; an unpaired trailing node is
// promoted to the next level unchanged. The tree is rebuilt wholesale on
// every membership or content change, never patched incrementally.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"reflect"
	"sort"
	"sync"

	"github.com/docvault/docvault/internal/canon"
	"go.uber.org/zap"
)

// Store is the in-memory index of document ID → sanitized record plus the
// derived tree. Add, Remove, and Rebuild are mutually exclusive as a unit:
// a rebuild reads the full index, so partial concurrent mutation would
// produce an inconsistent tree.
type Store struct {
	mu      sync.Mutex
	docs    map[string]canon.Record
	levels  [][][]byte // levels[0] = leaves; last level = root (when populated)
	leafIDs []string   // document IDs in leaf order, set at rebuild
	root    []byte     // nil while the tree is empty
	logger  *zap.Logger
}

// New creates an empty Store.
func New(logger *zap.Logger) *Store {
	return &Store{
		docs:   make(map[string]canon.Record),
		logger: logger,
	}
}

// Add sanitizes record and stores or overwrites the entry for id. The tree
// is not rebuilt; call Rebuild once the batch of mutations is complete.
func (s *Store) Add(id string, record canon.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = canon.SanitizeRecord(record)
}

// Remove deletes the entry for id if present; a miss is a logged no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		s.logger.Warn("document not in merkle store", zap.String("document_id", id))
		return
	}
	delete(s.docs, id)
}

// Rebuild recomputes every level of the tree from the current entries.
// With no entries the tree returns to the empty state and the root is unset.
func (s *Store) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
}

func (s *Store) rebuildLocked() {
	if len(s.docs) == 0 {
		s.levels = nil
		s.leafIDs = nil
		s.root = nil
		return
	}

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	leaves := make([][]byte, 0, len(ids))
	leafIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		h, err := canon.HashRecord(s.docs[id])
		if err != nil {
			s.logger.Error("hash document record",
				zap.String("document_id", id), zap.Error(err))
			continue
		}
		leaf := h // copy
		leaves = append(leaves, leaf[:])
		leafIDs = append(leafIDs, id)
	}
	if len(leaves) == 0 {
		s.levels = nil
		s.leafIDs = nil
		s.root = nil
		return
	}

	levels := [][][]byte{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([][]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				// Odd node: carried up without combining.
				next = append(next, current[i])
			}
		}
		levels = append(levels, next)
		current = next
	}

	s.levels = levels
	s.leafIDs = leafIDs
	s.root = current[0]
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// RootHash returns the hex-encoded current root, or "" while the tree is
// empty or has never been rebuilt.
func (s *Store) RootHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootHexLocked()
}

func (s *Store) rootHexLocked() string {
	if s.root == nil {
		return ""
	}
	return hex.EncodeToString(s.root)
}

// Count returns the number of documents currently indexed.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Snapshot returns a copy of the stored sanitized record for id.
func (s *Store) Snapshot(id string) (canon.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	out := make(canon.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

// LeafHash returns the hex leaf digest for id as of the last rebuild.
func (s *Store) LeafHash(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.leafIndexLocked(id)
	if idx < 0 {
		return "", false
	}
	return hex.EncodeToString(s.levels[0][idx]), true
}

func (s *Store) leafIndexLocked(id string) int {
	if len(s.levels) == 0 {
		return -1
	}
	for i, leafID := range s.leafIDs {
		if leafID == id {
			return i
		}
	}
	return -1
}

// valuesEqual compares two sanitized values. Sanitization collapses all
// numeric kinds to float64, so deep equality is sufficient.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

package merkle

import (
	"encoding/hex"

	"github.com/docvault/docvault/internal/canon"
	"go.uber.org/zap"
)

// criticalFields are the fields checked by VerifyFlexible. Display name and
// canonical filename can legitimately diverge without indicating tampering,
// so descriptive fields are excluded.
var criticalFields = []string{"document_id", "document_type", "file_size"}

// Verification tiers for historical-root checks, ordered strongest first.
const (
	TierLedgerHash     = "ledger_hash"
	TierHistoricalRoot = "historical_root"
	TierTimestamp      = "timestamp"
)

// HistoricalResult reports the outcome of a historical-root verification
// and which evidence tier produced it. The timestamp tier is weak evidence
// of non-tampering and must be presented as such, never as equivalent to a
// cryptographic match.
type HistoricalResult struct {
	Verified     bool   `json:"verified"`
	Tier         string `json:"tier,omitempty"`
	ComputedRoot string `json:"computed_root,omitempty"`
}

// Verify sanitizes record and compares it field-by-field against the stored
// snapshot for id. Every field the caller provides that also exists in the
// snapshot must match exactly; fields absent from the caller's record are
// not checked. Returns false when the tree is empty or id is unknown.
func (s *Store) Verify(id string, record canon.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[id]
	if s.root == nil || !ok {
		return false
	}

	sanitized := canon.SanitizeRecord(record)
	for key, value := range sanitized {
		storedValue, present := stored[key]
		if !present {
			continue
		}
		if !valuesEqual(storedValue, value) {
			s.logger.Debug("field mismatch",
				zap.String("document_id", id),
				zap.String("field", key))
			return false
		}
	}
	return true
}

// VerifyFlexible is Verify restricted to the critical-field subset
// (identity, type, size). It tolerates drift in descriptive fields such as
// a user-facing display name.
func (s *Store) VerifyFlexible(id string, record canon.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[id]
	if s.root == nil || !ok {
		return false
	}

	sanitized := canon.SanitizeRecord(record)
	for _, key := range criticalFields {
		value, inInput := sanitized[key]
		storedValue, inStored := stored[key]
		if !inInput || !inStored {
			continue
		}
		if !valuesEqual(storedValue, value) {
			s.logger.Debug("critical field mismatch",
				zap.String("document_id", id),
				zap.String("field", key))
			return false
		}
	}
	return true
}

// VerifyAgainstHistoricalRoot reconciles a document against a root anchored
// before the live tree changed shape. A global root changes on every write,
// so root equality alone is too strict for point-in-time verification.
// Tiers are attempted in order:
//
//  1. ledgerHash: the per-document hash retrieved from the ledger, when the
//     caller has one, compared directly against the record's hash.
//  2. historicalRoot: the root of a single-document tree containing only
//     this record, compared exact and 0x/case-normalized.
//  3. timestamp: identity plus upload_date match against the stored
//     snapshot. Weak evidence only; the tier is surfaced so audit trails can
//     flag it distinctly.
func (s *Store) VerifyAgainstHistoricalRoot(id string, record canon.Record, historicalRoot, ledgerHash string) HistoricalResult {
	sanitized := canon.SanitizeRecord(record)

	docHash, err := canon.HashRecord(sanitized)
	if err != nil {
		s.logger.Error("hash record for historical verification",
			zap.String("document_id", id), zap.Error(err))
		return HistoricalResult{}
	}
	docHashHex := hex.EncodeToString(docHash[:])

	if ledgerHash != "" && canon.HashesEqual(docHashHex, ledgerHash) {
		return HistoricalResult{Verified: true, Tier: TierLedgerHash}
	}

	// Recompute the root of a tree containing only this document and compare
	// it with the root anchored at write time.
	single := New(s.logger)
	single.Add(id, sanitized)
	single.Rebuild()
	computed := single.RootHash()

	if historicalRoot != "" && (computed == historicalRoot || canon.HashesEqual(computed, historicalRoot)) {
		return HistoricalResult{Verified: true, Tier: TierHistoricalRoot, ComputedRoot: computed}
	}

	// Weak fallback: same identity and same upload timestamp as the stored
	// snapshot suggests the tree shape changed around an unmodified document.
	if inputID, ok := sanitized["document_id"].(string); ok && inputID == id {
		s.mu.Lock()
		stored, present := s.docs[id]
		s.mu.Unlock()
		if present {
			inputDate, okIn := sanitized["upload_date"]
			storedDate, okStored := stored["upload_date"]
			if okIn && okStored && valuesEqual(inputDate, storedDate) {
				s.logger.Warn("historical verification matched on timestamp only",
					zap.String("document_id", id))
				return HistoricalResult{Verified: true, Tier: TierTimestamp, ComputedRoot: computed}
			}
		}
	}

	return HistoricalResult{ComputedRoot: computed}
}

package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// verifyChain walks records ordered by position and checks hash
// consistency. The genesis entry is validated against GenesisHash.
func verifyChain(entries []Record) error {
	for i := range entries {
		curr := &entries[i]
		if i == 0 {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			continue
		}
		prev := &entries[i-1]
		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at position %d", curr.Position)
		}
		if curr.Hash != chainHash(curr) {
			return fmt.Errorf("entry %d has invalid hash", curr.Position)
		}
	}
	return nil
}

// commitTime returns the timestamp for a new entry, truncated to the
// resolution of the durable backend's TIMESTAMPTZ column. The timestamp is
// part of the chained hash, so any precision lost between hashing and
// storage would make every stored entry fail verification.
func commitTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// chainHash computes a deterministic SHA-256 hash over a record's fields.
// Never called on the genesis entry (position 0).
func chainHash(r *Record) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|%s|%s|%s|%s|%s",
		r.Position, r.Timestamp.Format(time.RFC3339Nano),
		r.Kind, r.Subject, r.ActorHash, r.PayloadHash, r.MetadataHash, r.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

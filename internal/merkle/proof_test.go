package merkle_test

import (
	"fmt"
	"testing"

	"github.com/docvault/docvault/internal/merkle"
)

func TestProof_roundTripAllCardinalities(t *testing.T) {
	// 1..6 covers the balanced cases and every odd-carry shape up to two
	// levels of promotion.
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d_documents", n), func(t *testing.T) {
			s := newStore()
			for i := 0; i < n; i++ {
				id := fmt.Sprintf("doc-%02d", i)
				s.Add(id, docRecord(id, 100+i))
			}
			s.Rebuild()
			root := s.RootHash()

			for i := 0; i < n; i++ {
				id := fmt.Sprintf("doc-%02d", i)
				proof, proofRoot := s.Proof(id)
				if proofRoot != root {
					t.Fatalf("Proof(%s) root = %s, want %s", id, proofRoot, root)
				}
				leaf, ok := s.LeafHash(id)
				if !ok {
					t.Fatalf("no leaf hash for %s", id)
				}
				if !merkle.VerifyProof(leaf, proof, root) {
					t.Errorf("proof for %s does not recompute to root", id)
				}
			}
		})
	}
}

func TestProof_singleDocumentHasEmptyPath(t *testing.T) {
	s := newStore()
	s.Add("only", docRecord("only", 1))
	s.Rebuild()

	proof, root := s.Proof("only")
	if len(proof) != 0 {
		t.Errorf("single-leaf proof should be empty, got %d elements", len(proof))
	}
	leaf, _ := s.LeafHash("only")
	if leaf != root {
		t.Error("single-leaf root must equal the leaf hash")
	}
}

func TestProof_missingDocument(t *testing.T) {
	s := newStore()
	s.Add("A", docRecord("A", 100))
	s.Rebuild()

	proof, root := s.Proof("missing")
	if len(proof) != 0 {
		t.Error("proof for unknown document must be empty")
	}
	if root != s.RootHash() {
		t.Error("root must still be reported for unknown document")
	}
}

func TestVerifyProof_rejectsTamperedLeaf(t *testing.T) {
	s := newStore()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		s.Add(id, docRecord(id, 100+i))
	}
	s.Rebuild()

	proof, root := s.Proof("doc-01")
	leaf, _ := s.LeafHash("doc-00") // wrong leaf
	if merkle.VerifyProof(leaf, proof, root) {
		t.Error("proof must not verify for a different leaf")
	}
}

func TestVerifyProof_normalizedRoot(t *testing.T) {
	s := newStore()
	s.Add("A", docRecord("A", 100))
	s.Add("B", docRecord("B", 200))
	s.Rebuild()

	proof, root := s.Proof("A")
	leaf, _ := s.LeafHash("A")
	if !merkle.VerifyProof(leaf, proof, "0x"+root) {
		t.Error("VerifyProof must accept 0x-prefixed roots")
	}
}

package merkle

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/docvault/docvault/internal/canon"
)

// Sibling positions in a proof path.
const (
	PositionLeft  = "left"
	PositionRight = "right"
)

// ProofNode is one step of a Merkle proof: the sibling hash and which side
// of the current node the sibling sits on.
type ProofNode struct {
	Position string `json:"position"`
	Hash     string `json:"hash"`
}

// Proof returns the sibling-hash path from the leaf for id up to the root,
// plus the current root hex. If the tree is empty or the document is not a
// leaf, the path is empty. At a level where the node has no sibling (the
// odd-carry case) no proof element is emitted and the index simply halves.
func (s *Store) Proof(id string) ([]ProofNode, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.rootHexLocked()
	idx := s.leafIndexLocked(id)
	if idx < 0 {
		return nil, root
	}

	var proof []ProofNode
	for level := 0; level < len(s.levels)-1; level++ {
		nodes := s.levels[level]
		if idx%2 == 1 {
			proof = append(proof, ProofNode{
				Position: PositionLeft,
				Hash:     hex.EncodeToString(nodes[idx-1]),
			})
		} else if idx+1 < len(nodes) {
			proof = append(proof, ProofNode{
				Position: PositionRight,
				Hash:     hex.EncodeToString(nodes[idx+1]),
			})
		}
		idx /= 2
	}
	return proof, root
}

// VerifyProof recomputes the root from a leaf hash and a proof path and
// compares it against the expected root. Hash strings are compared after
// 0x/case normalization.
func VerifyProof(leafHex string, proof []ProofNode, rootHex string) bool {
	current, err := hex.DecodeString(canon.NormalizeHex(leafHex))
	if err != nil {
		return false
	}
	for _, node := range proof {
		sibling, err := hex.DecodeString(canon.NormalizeHex(node.Hash))
		if err != nil {
			return false
		}
		h := sha256.New()
		switch node.Position {
		case PositionLeft:
			h.Write(sibling)
			h.Write(current)
		case PositionRight:
			h.Write(current)
			h.Write(sibling)
		default:
			return false
		}
		current = h.Sum(nil)
	}
	return canon.HashesEqual(hex.EncodeToString(current), rootHex)
}

package merkle_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for any document set, the root is a function of the set alone;
// insertion order must never influence tree shape.
func TestRootHash_insertionOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("root independent of insertion order", prop.ForAll(
		func(sizes []int, seed int64) bool {
			ordered := newStore()
			for i, size := range sizes {
				id := fmt.Sprintf("doc-%04d", i)
				ordered.Add(id, docRecord(id, size))
			}
			ordered.Rebuild()

			perm := rand.New(rand.NewSource(seed)).Perm(len(sizes))
			shuffled := newStore()
			for _, i := range perm {
				id := fmt.Sprintf("doc-%04d", i)
				shuffled.Add(id, docRecord(id, sizes[i]))
			}
			shuffled.Rebuild()

			return ordered.RootHash() == shuffled.RootHash()
		},
		gen.SliceOf(gen.IntRange(0, 1<<20)),
		gen.Int64(),
	))

	properties.Property("rebuild is idempotent", prop.ForAll(
		func(sizes []int) bool {
			s := newStore()
			for i, size := range sizes {
				id := fmt.Sprintf("doc-%04d", i)
				s.Add(id, docRecord(id, size))
			}
			s.Rebuild()
			first := s.RootHash()
			s.Rebuild()
			return s.RootHash() == first
		},
		gen.SliceOf(gen.IntRange(0, 1<<20)),
	))

	properties.TestingRun(t)
}

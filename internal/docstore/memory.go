package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory metadata store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

// Put implements Store. Existing records are overwritten.
func (m *Memory) Put(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DocumentID] = *doc
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := doc
	return &cp, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

// ListByOwner implements Store.
func (m *Memory) ListByOwner(_ context.Context, owner string) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Document
	for _, doc := range m.docs {
		if doc.Owner == owner {
			cp := doc
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

// List implements Store. Results are ordered by document id so startup tree
// population is deterministic.
func (m *Memory) List(_ context.Context) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Document, 0, len(m.docs))
	for _, doc := range m.docs {
		cp := doc
		out = append(out, &cp)
	}
	sortByID(out)
	return out, nil
}

func sortByID(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DocumentID < docs[j].DocumentID
	})
}

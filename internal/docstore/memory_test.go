package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(id, owner string) *Document {
	return &Document{
		DocumentID: id,
		Owner:      owner,
		Name:       "report.pdf",
		Type:       "pdf",
		Size:       2048,
		UploadDate: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		ObjectKey:  "documents/" + owner + "/" + id,
	}
}

func TestMemory_PutGetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	doc := sampleDoc("doc-1", "alice@example.com")
	require.NoError(t, store.Put(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.Owner, got.Owner)

	// Get returns a copy; mutation does not leak back.
	got.Name = "tampered"
	again, _ := store.Get(ctx, "doc-1")
	assert.Equal(t, "report.pdf", again.Name)

	require.NoError(t, store.Delete(ctx, "doc-1"))
	_, err = store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "doc-1"), ErrNotFound)
}

func TestMemory_ListByOwner(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleDoc("doc-b", "alice@example.com")))
	require.NoError(t, store.Put(ctx, sampleDoc("doc-a", "alice@example.com")))
	require.NoError(t, store.Put(ctx, sampleDoc("doc-c", "bob@example.com")))

	docs, err := store.ListByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].DocumentID)
	assert.Equal(t, "doc-b", docs[1].DocumentID)
}

func TestMemory_ListIsOrdered(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Put(ctx, sampleDoc(id, "alice@example.com")))
	}

	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"},
		[]string{docs[0].DocumentID, docs[1].DocumentID, docs[2].DocumentID})
}

func TestDocument_Snapshot(t *testing.T) {
	doc := sampleDoc("doc-1", "alice@example.com")
	doc.ContentHash = "abc123"
	doc.LedgerReceipt = "r-1"

	snap := doc.Snapshot()

	assert.Equal(t, "doc-1", snap["document_id"])
	assert.Equal(t, "report.pdf", snap["document_name"])
	assert.Equal(t, "pdf", snap["document_type"])
	assert.Equal(t, int64(2048), snap["file_size"])
	assert.Equal(t, "2026-03-14T09:00:00Z", snap["upload_date"])

	// Anchor fields stay out of the leaf projection.
	_, ok := snap["document_hash"]
	assert.False(t, ok)
	_, ok = snap["ledger_receipt"]
	assert.False(t, ok)
}

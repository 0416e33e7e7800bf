// Package docstore persists document metadata records. The integrity core
// treats it as the authoritative source of DocumentRecords when rebuilding
// the tree at startup and when persisting anchor receipts after a commit.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id has no metadata record.
var ErrNotFound = errors.New("document not found")

// Document is the metadata record for one stored document.
type Document struct {
	DocumentID  string    `json:"document_id" dynamodbav:"document_id"`
	Owner       string    `json:"owner" dynamodbav:"owner"`
	Name        string    `json:"document_name" dynamodbav:"document_name"`
	Description string    `json:"document_description,omitempty" dynamodbav:"document_description,omitempty"`
	Type        string    `json:"document_type" dynamodbav:"document_type"`
	Size        int64     `json:"file_size" dynamodbav:"file_size"`
	UploadDate  time.Time `json:"upload_date" dynamodbav:"upload_date,unixtime"`
	ObjectKey   string    `json:"object_key" dynamodbav:"object_key"`
	Tags        []string  `json:"tags,omitempty" dynamodbav:"tags,omitempty,stringset"`

	// Anchor fields written back after the ledger commit.
	ContentHash        string `json:"document_hash,omitempty" dynamodbav:"document_hash,omitempty"`
	MerkleRootAtUpload string `json:"merkle_root_at_upload,omitempty" dynamodbav:"merkle_root_at_upload,omitempty"`
	LedgerReceipt      string `json:"ledger_receipt,omitempty" dynamodbav:"ledger_receipt,omitempty"`
	LedgerPosition     uint64 `json:"ledger_position,omitempty" dynamodbav:"ledger_position,omitempty"`
	Anchored           bool   `json:"ledger_anchored" dynamodbav:"ledger_anchored"`
}

// Snapshot returns the subset of fields that feed the document's leaf hash.
// Keeping this projection stable is what makes historical root recomputation
// possible long after the full record has grown extra attributes.
func (d *Document) Snapshot() map[string]any {
	return map[string]any{
		"document_id":   d.DocumentID,
		"document_name": d.Name,
		"document_type": d.Type,
		"file_size":     d.Size,
		"upload_date":   d.UploadDate.UTC().Format(time.RFC3339),
	}
}

// Store is the metadata persistence interface.
type Store interface {
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, owner string) ([]*Document, error)
	List(ctx context.Context) ([]*Document, error)
}

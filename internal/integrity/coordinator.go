// Package integrity coordinates the Merkle tree, the audit ledger, and the
// metadata and object stores so that every document mutation leaves a
// consistent anchor trail.
package integrity

import (
	"context"
	"errors"
	"fmt"

	"github.com/docvault/docvault/internal/auditlog"
	"github.com/docvault/docvault/internal/canon"
	"github.com/docvault/docvault/internal/docstore"
	"github.com/docvault/docvault/internal/ledger"
	"github.com/docvault/docvault/internal/merkle"
	"github.com/docvault/docvault/internal/objstore"
	"go.uber.org/zap"
)

// ErrUnknownDocument is returned when a mutation or verification names a
// document the metadata store has no record of.
var ErrUnknownDocument = errors.New("unknown document")

// Mutation describes one document action to record and anchor.
type Mutation struct {
	Kind  ledger.Kind
	Actor string

	// Document carries the full metadata record. Required for tree-changing
	// kinds (upload, update, version, restore); optional for the rest, where
	// DocumentID alone suffices.
	Document   *docstore.Document
	DocumentID string
}

func (m *Mutation) id() string {
	if m.Document != nil {
		return m.Document.DocumentID
	}
	return m.DocumentID
}

// Anchor reports the ledger outcome of a recorded mutation.
type Anchor struct {
	DocumentID  string `json:"document_id"`
	Root        string `json:"merkle_root,omitempty"`
	Receipt     string `json:"ledger_receipt,omitempty"`
	Position    uint64 `json:"ledger_position,omitempty"`
	ContentHash string `json:"document_hash,omitempty"`
	Simulated   bool   `json:"simulated"`
	Pending     bool   `json:"pending,omitempty"`
	Logged      bool   `json:"action_logged"`
}

// Report is the result of a document verification.
type Report struct {
	DocumentID   string `json:"document_id"`
	Verified     bool   `json:"verified"`
	Stage        string `json:"stage"`
	Tier         string `json:"tier,omitempty"`
	StoredHash   string `json:"stored_hash,omitempty"`
	LedgerHash   string `json:"ledger_hash,omitempty"`
	ComputedRoot string `json:"computed_root,omitempty"`
	CurrentRoot  string `json:"current_root,omitempty"`
	Simulated    bool   `json:"simulated"`
}

// Verification stages reported by VerifyDocument.
const (
	StageDirect     = "direct"
	StageHistorical = "historical"
)

// Coordinator wires the Merkle store, audit logger, metadata store, and
// object store together behind a single mutation/verification API.
type Coordinator struct {
	store   *merkle.Store
	audit   *auditlog.Logger
	meta    docstore.Store
	objects objstore.Store
	logger  *zap.Logger
}

// New creates a Coordinator.
func New(store *merkle.Store, audit *auditlog.Logger, meta docstore.Store, objects objstore.Store, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		audit:   audit,
		meta:    meta,
		objects: objects,
		logger:  logger,
	}
}

// treeChanging reports whether kind adds or refreshes a leaf.
func treeChanging(k ledger.Kind) bool {
	switch k {
	case ledger.KindUpload, ledger.KindUpdate, ledger.KindVersion, ledger.KindRestore:
		return true
	}
	return false
}

// RecordMutation applies a document action: updates the tree, re-anchors the
// root, persists anchor fields on the metadata record, and logs the action.
//
// Root anchoring is synchronous for tree-adding kinds so the receipt can be
// stored with the document; deletion anchors asynchronously since there is
// no record left to carry the receipt. Action logging is always async and
// best-effort.
func (c *Coordinator) RecordMutation(ctx context.Context, in Mutation) (*Anchor, error) {
	id := in.id()
	if id == "" {
		return nil, fmt.Errorf("record %s: document id required", in.Kind)
	}
	if treeChanging(in.Kind) && in.Document == nil {
		return nil, fmt.Errorf("record %s %s: document record required", in.Kind, id)
	}

	anchor := &Anchor{DocumentID: id}

	rebuilt := false
	switch {
	case treeChanging(in.Kind):
		c.store.Add(id, in.Document.Snapshot())
		rebuilt = true
	case in.Kind == ledger.KindDelete:
		c.store.Remove(id)
		rebuilt = true
	}
	if rebuilt {
		c.store.Rebuild()
		anchor.Root = c.store.RootHash()

		async := in.Kind == ledger.KindDelete
		res := c.audit.UpdateRoot(ctx, anchor.Root, async)
		anchor.Receipt = res.Receipt
		anchor.Position = res.Position
		anchor.Simulated = res.Simulated
		anchor.Pending = res.Pending
		if !res.Success {
			c.logger.Error("root anchor failed",
				zap.String("document_id", id),
				zap.String("reason", res.Reason))
		}
	}

	var payload []byte
	if in.Kind == ledger.KindUpload || in.Kind == ledger.KindVersion || in.Kind == ledger.KindRestore {
		payload = c.fetchPayload(ctx, in.Document)
		if payload != nil {
			anchor.ContentHash = canon.DigestHex(payload)
		}
	}

	if treeChanging(in.Kind) {
		doc := in.Document
		if anchor.ContentHash != "" {
			doc.ContentHash = anchor.ContentHash
		}
		doc.MerkleRootAtUpload = anchor.Root
		doc.LedgerReceipt = anchor.Receipt
		doc.LedgerPosition = anchor.Position
		doc.Anchored = !anchor.Pending && anchor.Receipt != ""
		if err := c.meta.Put(ctx, doc); err != nil {
			return anchor, fmt.Errorf("persist anchor for %s: %w", id, err)
		}
	}

	metadata := c.actionMetadata(in, anchor)
	anchor.Logged = c.audit.LogAction(ctx, auditlog.ActionInput{
		DocumentID: id,
		Kind:       in.Kind,
		Actor:      in.Actor,
		Payload:    payload,
		Metadata:   metadata,
	}, true)
	if !anchor.Logged {
		c.logger.Warn("action not queued",
			zap.String("document_id", id),
			zap.String("kind", in.Kind.String()))
	}

	return anchor, nil
}

func (c *Coordinator) fetchPayload(ctx context.Context, doc *docstore.Document) []byte {
	if c.objects == nil || doc.ObjectKey == "" {
		return nil
	}
	data, err := c.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		c.logger.Warn("payload fetch failed, anchoring without content hash",
			zap.String("document_id", doc.DocumentID),
			zap.String("object_key", doc.ObjectKey),
			zap.Error(err))
		return nil
	}
	return data
}

func (c *Coordinator) actionMetadata(in Mutation, anchor *Anchor) canon.Record {
	md := canon.Record{"document_id": in.id()}
	if in.Document != nil {
		for k, v := range in.Document.Snapshot() {
			md[k] = v
		}
	}
	if anchor.Root != "" {
		md["merkle_root"] = anchor.Root
	}
	return md
}

// VerifyDocument checks a document's integrity against the ledger. The
// direct comparison of the stored content hash with the anchored ledger
// hash is authoritative; historical-root verification runs only when no
// direct hash pair exists.
func (c *Coordinator) VerifyDocument(ctx context.Context, id string) (*Report, error) {
	doc, err := c.meta.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("verify %s: %w", id, ErrUnknownDocument)
		}
		return nil, fmt.Errorf("verify %s: %w", id, err)
	}

	report := &Report{
		DocumentID:  id,
		StoredHash:  doc.ContentHash,
		CurrentRoot: c.store.RootHash(),
	}

	ledgerHash, err := c.audit.DocumentHash(ctx, id)
	if err != nil {
		c.logger.Warn("ledger hash lookup failed",
			zap.String("document_id", id), zap.Error(err))
	}
	report.LedgerHash = ledgerHash
	report.Simulated = c.audit.Status(ctx).SimulationMode

	if doc.ContentHash != "" && ledgerHash != "" {
		report.Stage = StageDirect
		report.Verified = canon.HashesEqual(doc.ContentHash, ledgerHash)
		return report, nil
	}

	report.Stage = StageHistorical
	res := c.store.VerifyAgainstHistoricalRoot(id, doc.Snapshot(), doc.MerkleRootAtUpload, ledgerHash)
	report.Verified = res.Verified
	report.Tier = res.Tier
	report.ComputedRoot = res.ComputedRoot
	return report, nil
}

// VerifyRecord checks record field-by-field against the live tree snapshot.
func (c *Coordinator) VerifyRecord(id string, record canon.Record) bool {
	return c.store.Verify(id, record)
}

// VerifyRecordFlexible checks only the critical fields, tolerating renames.
func (c *Coordinator) VerifyRecordFlexible(id string, record canon.Record) bool {
	return c.store.VerifyFlexible(id, record)
}

// CurrentRoot returns the current Merkle root hex, or "" for an empty tree.
func (c *Coordinator) CurrentRoot() string {
	return c.store.RootHash()
}

// Proof returns the inclusion proof and root for id.
func (c *Coordinator) Proof(id string) ([]merkle.ProofNode, string) {
	return c.store.Proof(id)
}

// LeafHash returns the leaf hash for id and whether id is in the tree.
func (c *Coordinator) LeafHash(id string) (string, bool) {
	return c.store.LeafHash(id)
}

// DocumentCount returns the number of leaves in the live tree.
func (c *Coordinator) DocumentCount() int {
	return c.store.Count()
}

// LoadFromStore populates the tree from the metadata store and rebuilds
// once. It runs at startup before the server accepts traffic.
func (c *Coordinator) LoadFromStore(ctx context.Context) (int, error) {
	docs, err := c.meta.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}
	for _, doc := range docs {
		c.store.Add(doc.DocumentID, doc.Snapshot())
	}
	c.store.Rebuild()
	c.logger.Info("merkle tree populated",
		zap.Int("documents", len(docs)),
		zap.String("root", c.store.RootHash()))
	return len(docs), nil
}

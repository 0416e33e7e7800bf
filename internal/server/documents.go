package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docvault/docvault/internal/docstore"
	"github.com/docvault/docvault/internal/integrity"
	"github.com/docvault/docvault/internal/ledger"
	"github.com/docvault/docvault/internal/objstore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActorHeader names the request header carrying the acting identity. Only
// its hash ever reaches the ledger.
const ActorHeader = "X-Actor"

// DocumentHandler anchors document lifecycle operations through the
// integrity coordinator.
type DocumentHandler struct {
	coord   *integrity.Coordinator
	meta    docstore.Store
	objects objstore.Store
	logger  *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(coord *integrity.Coordinator, meta docstore.Store, objects objstore.Store, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{coord: coord, meta: meta, objects: objects, logger: logger}
}

// Register mounts the document routes on the given router group.
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	d := rg.Group("/documents")
	{
		d.POST("", h.Upload)
		d.GET("", h.List)
		d.GET("/:id", h.Get)
		d.GET("/:id/content", h.Download)
		d.POST("/:id/versions", h.UploadVersion)
		d.POST("/:id/versions/:version/restore", h.RestoreVersion)
		d.POST("/:id/share", h.Share)
		d.DELETE("/:id", h.Delete)
	}
}

func actor(c *gin.Context) string {
	if a := c.GetHeader(ActorHeader); a != "" {
		return a
	}
	return "anonymous"
}

func (h *DocumentHandler) readUpload(c *gin.Context) (string, []byte, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return "", nil, false
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return "", nil, false
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return "", nil, false
	}
	return file.Filename, data, true
}

// Upload handles POST /documents: stores the payload, creates the metadata
// record, and anchors an upload action.
func (h *DocumentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	filename, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	owner := actor(c)
	name := c.PostForm("document_name")
	if name == "" {
		name = filename
	}

	doc := &docstore.Document{
		DocumentID:  uuid.NewString(),
		Owner:       owner,
		Name:        name,
		Description: c.PostForm("document_description"),
		Type:        strings.TrimPrefix(filepath.Ext(filename), "."),
		Size:        int64(len(data)),
		UploadDate:  time.Now().UTC(),
		Tags:        c.PostFormArray("tags"),
	}
	doc.ObjectKey = fmt.Sprintf("documents/%s/%s/%s", owner, doc.DocumentID, filename)

	if err := h.objects.Put(ctx, doc.ObjectKey, data); err != nil {
		h.logger.Error("store payload", zap.String("document_id", doc.DocumentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	anchor, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:     ledger.KindUpload,
		Actor:    owner,
		Document: doc,
	})
	if err != nil {
		h.logger.Error("anchor upload", zap.String("document_id", doc.DocumentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to anchor document"})
		return
	}
	RecordLedgerCommit(anchor.Simulated)

	c.JSON(http.StatusCreated, gin.H{
		"document": doc,
		"anchor":   anchor,
	})
}

// UploadVersion handles POST /documents/:id/versions: replaces the payload
// and re-anchors the record as a version action. The previous payload is
// kept under a version suffix.
func (h *DocumentHandler) UploadVersion(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	doc, err := h.meta.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("load document", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	filename, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	backupVersion := time.Now().Unix()
	backupKey := fmt.Sprintf("%s.v%d", doc.ObjectKey, backupVersion)
	if err := h.objects.Copy(ctx, doc.ObjectKey, backupKey); err != nil {
		backupVersion = 0
		if !errors.Is(err, objstore.ErrNotFound) {
			h.logger.Warn("version backup failed", zap.String("document_id", id), zap.Error(err))
		}
	}
	if err := h.objects.Put(ctx, doc.ObjectKey, data); err != nil {
		h.logger.Error("store payload", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	doc.Name = c.DefaultPostForm("document_name", doc.Name)
	doc.Type = strings.TrimPrefix(filepath.Ext(filename), ".")
	doc.Size = int64(len(data))
	doc.UploadDate = time.Now().UTC()

	anchor, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:     ledger.KindVersion,
		Actor:    actor(c),
		Document: doc,
	})
	if err != nil {
		h.logger.Error("anchor version", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to anchor document"})
		return
	}
	RecordLedgerCommit(anchor.Simulated)

	c.JSON(http.StatusOK, gin.H{
		"document":       doc,
		"anchor":         anchor,
		"backup_version": backupVersion,
	})
}

// RestoreVersion handles POST /documents/:id/versions/:version/restore. The
// backed-up payload replaces the live one and the record is re-anchored as a
// restore action, refreshing the content hash and the Merkle root.
func (h *DocumentHandler) RestoreVersion(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	version, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil || version <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	doc, err := h.meta.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("load document", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	backupKey := fmt.Sprintf("%s.v%d", doc.ObjectKey, version)
	data, err := h.objects.Get(ctx, backupKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
			return
		}
		h.logger.Error("fetch backup", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore document"})
		return
	}

	// Keep the payload being replaced so the restore itself is reversible.
	preRestoreKey := fmt.Sprintf("%s.v%d", doc.ObjectKey, time.Now().Unix())
	if err := h.objects.Copy(ctx, doc.ObjectKey, preRestoreKey); err != nil && !errors.Is(err, objstore.ErrNotFound) {
		h.logger.Warn("pre-restore backup failed", zap.String("document_id", id), zap.Error(err))
	}
	if err := h.objects.Put(ctx, doc.ObjectKey, data); err != nil {
		h.logger.Error("store payload", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore document"})
		return
	}

	doc.Size = int64(len(data))
	doc.UploadDate = time.Now().UTC()

	anchor, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:     ledger.KindRestore,
		Actor:    actor(c),
		Document: doc,
	})
	if err != nil {
		h.logger.Error("anchor restore", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to anchor document"})
		return
	}
	RecordLedgerCommit(anchor.Simulated)

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"anchor":   anchor,
	})
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.meta.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// List handles GET /documents?owner=<owner>.
func (h *DocumentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	owner := c.Query("owner")

	var (
		docs []*docstore.Document
		err  error
	)
	if owner == "" {
		docs, err = h.meta.List(ctx)
	} else {
		docs, err = h.meta.ListByOwner(ctx, owner)
	}
	if err != nil {
		h.logger.Error("list documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(docs),
		"documents": docs,
	})
}

// Download handles GET /documents/:id/content and anchors a download action.
func (h *DocumentHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	doc, err := h.meta.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	data, err := h.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document content missing"})
			return
		}
		h.logger.Error("fetch payload", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch document"})
		return
	}

	if _, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:       ledger.KindDownload,
		Actor:      actor(c),
		DocumentID: id,
	}); err != nil {
		h.logger.Warn("anchor download", zap.String("document_id", id), zap.Error(err))
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// Share handles POST /documents/:id/share. Sharing grants no access by
// itself here; the action is anchored so the trail shows who shared what.
func (h *DocumentHandler) Share(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.meta.Get(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	anchor, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:       ledger.KindShare,
		Actor:      actor(c),
		DocumentID: id,
	})
	if err != nil {
		h.logger.Error("anchor share", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to anchor share"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"anchor":      anchor,
	})
}

// Delete handles DELETE /documents/:id: removes payload and metadata and
// anchors the deletion.
func (h *DocumentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	doc, err := h.meta.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	if err := h.objects.Delete(ctx, doc.ObjectKey); err != nil {
		h.logger.Warn("delete payload", zap.String("document_id", id), zap.Error(err))
	}
	if err := h.meta.Delete(ctx, id); err != nil {
		h.logger.Error("delete metadata", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}

	anchor, err := h.coord.RecordMutation(ctx, integrity.Mutation{
		Kind:       ledger.KindDelete,
		Actor:      actor(c),
		DocumentID: id,
	})
	if err != nil {
		h.logger.Error("anchor delete", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to anchor deletion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"deleted":     true,
		"anchor":      anchor,
	})
}

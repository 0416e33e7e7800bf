// Package server exposes the integrity subsystem over HTTP. Handlers follow
// a constructor-plus-Register layout; the router is assembled in NewRouter.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docvault/docvault/internal/auditlog"
	"github.com/docvault/docvault/internal/canon"
	"github.com/docvault/docvault/internal/integrity"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IntegrityHandler exposes verification and Merkle-tree endpoints.
type IntegrityHandler struct {
	coord  *integrity.Coordinator
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewIntegrityHandler creates a new IntegrityHandler.
func NewIntegrityHandler(coord *integrity.Coordinator, audit *auditlog.Logger, logger *zap.Logger) *IntegrityHandler {
	return &IntegrityHandler{coord: coord, audit: audit, logger: logger}
}

// Register mounts the integrity routes on the given router group.
func (h *IntegrityHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/integrity")
	{
		g.GET("/merkle-root", h.MerkleRoot)
		g.GET("/status", h.Status)
		g.GET("/verify/:id", h.VerifyRecord)
		g.GET("/verify-ledger/:id", h.VerifyLedger)
		g.GET("/proof/:id", h.Proof)
	}
}

// MerkleRoot handles GET /integrity/merkle-root.
func (h *IntegrityHandler) MerkleRoot(c *gin.Context) {
	root := h.coord.CurrentRoot()
	c.JSON(http.StatusOK, gin.H{
		"merkle_root": root,
		"documents":   h.coord.DocumentCount(),
		"empty":       root == "",
	})
}

// Status handles GET /integrity/status.
func (h *IntegrityHandler) Status(c *gin.Context) {
	st := h.audit.Status(c.Request.Context())
	SetQueueDepthGauge(st.Queued)
	SetDocumentsGauge(h.coord.DocumentCount())
	c.JSON(http.StatusOK, gin.H{
		"connected":       st.Connected,
		"simulation_mode": st.SimulationMode,
		"queued":          st.Queued,
		"processed":       st.Processed,
		"dropped":         st.Dropped,
		"merkle_root":     h.coord.CurrentRoot(),
		"documents":       h.coord.DocumentCount(),
	})
}

// VerifyRecord handles GET /integrity/verify/:id. The caller supplies the
// record fields to check as query parameters; with flexible=true only the
// critical identity fields are compared.
func (h *IntegrityHandler) VerifyRecord(c *gin.Context) {
	id := c.Param("id")

	record := canon.Record{}
	for key, values := range c.Request.URL.Query() {
		if key == "flexible" || len(values) == 0 {
			continue
		}
		record[key] = coerceField(values[0])
	}
	if len(record) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no record fields supplied"})
		return
	}

	var verified bool
	if c.Query("flexible") == "true" {
		verified = h.coord.VerifyRecordFlexible(id, record)
	} else {
		verified = h.coord.VerifyRecord(id, record)
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"verified":    verified,
	})
}

// coerceField maps a query-string value onto the scalar type the canonical
// form uses. Tree leaves hold JSON-decoded records, so numbers are float64
// and booleans are bool; a raw query string for those fields would never
// compare equal.
func coerceField(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// VerifyLedger handles GET /integrity/verify-ledger/:id, the full
// ledger-backed verification with historical fallback.
func (h *IntegrityHandler) VerifyLedger(c *gin.Context) {
	id := c.Param("id")

	report, err := h.coord.VerifyDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, integrity.ErrUnknownDocument) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("verify document", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	RecordVerification(report.Stage, report.Verified)
	c.JSON(http.StatusOK, report)
}

// Proof handles GET /integrity/proof/:id.
func (h *IntegrityHandler) Proof(c *gin.Context) {
	id := c.Param("id")

	leaf, ok := h.coord.LeafHash(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not in tree"})
		return
	}
	proof, root := h.coord.Proof(id)
	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"leaf_hash":   leaf,
		"merkle_root": root,
		"proof":       proof,
	})
}

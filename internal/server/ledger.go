package server

import (
	"net/http"

	"github.com/docvault/docvault/internal/auditlog"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints for the integrity ledger.
type LedgerHandler struct {
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(audit *auditlog.Logger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{audit: audit, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("/roots", h.Roots)
		l.GET("/history/:id", h.History)
		l.GET("/verify-root", h.VerifyRoot)
	}
}

// Roots handles GET /ledger/roots; newest anchored root first.
func (h *LedgerHandler) Roots(c *gin.Context) {
	roots, err := h.audit.HistoricalRoots(c.Request.Context())
	if err != nil {
		h.logger.Error("list historical roots", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(roots),
		"roots": roots,
	})
}

// History handles GET /ledger/history/:id; the anchored action trail for one
// document, oldest first.
func (h *LedgerHandler) History(c *gin.Context) {
	id := c.Param("id")

	records, err := h.audit.History(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("document history", zap.String("document_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": id,
		"count":       len(records),
		"history":     records,
	})
}

// VerifyRoot handles GET /ledger/verify-root?root=<hex>.
func (h *LedgerHandler) VerifyRoot(c *gin.Context) {
	root := c.Query("root")
	if root == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "root query parameter required"})
		return
	}
	c.JSON(http.StatusOK, h.audit.VerifyRoot(c.Request.Context(), root))
}

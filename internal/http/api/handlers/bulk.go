package handlers

import (
	"net/http"

	"github.com/Niche-Business/voucher-platform/internal/voucher"
	"github.com/gin-gonic/gin"
)

// BulkHandler exposes bulk voucher issuance from tabular input.
type BulkHandler struct {
	bulk *voucher.Bulk
}

// NewBulkHandler wires a bulk issuance handler.
func NewBulkHandler(bulk *voucher.Bulk) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

// bulkRequest captures rows plus execution options.
type bulkRequest struct {
	Rows    []voucher.Row   `json:"rows"`
	Options voucher.Options `json:"options"`
}

// Validate dry-runs row validation without creating anything.
func (h *BulkHandler) Validate(c *gin.Context) {
	var body bulkRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no rows"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": h.bulk.ValidateRows(body.Rows)})
}

// Execute issues vouchers for every usable row on behalf of the caller.
func (h *BulkHandler) Execute(c *gin.Context) {
	var body bulkRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no rows"})
		return
	}
	result, errExecute := h.bulk.Execute(c.Request.Context(), getUserID(c), body.Rows, body.Options)
	if errExecute != nil {
		respondError(c, errExecute)
		return
	}
	c.JSON(http.StatusOK, result)
}

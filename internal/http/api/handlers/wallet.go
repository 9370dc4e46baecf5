package handlers

import (
	"net/http"
	"strings"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler exposes ledger reads, admin allocation, and reconciliation.
type WalletHandler struct {
	ledger *wallet.Ledger
}

// NewWalletHandler wires a wallet handler.
func NewWalletHandler(ledger *wallet.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// Transactions lists the caller's ledger entries in chronological order.
func (h *WalletHandler) Transactions(c *gin.Context) {
	rows, errEntries := h.ledger.Entries(c.Request.Context(), getUserID(c))
	if errEntries != nil {
		respondError(c, errEntries)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":             row.ID,
			"type":           row.Type,
			"amount":         row.Amount.StringFixed(2),
			"balance_before": row.BalanceBefore.StringFixed(2),
			"balance_after":  row.BalanceAfter.StringFixed(2),
			"voucher_id":     row.VoucherID,
			"reference":      row.Reference,
			"created_at":     row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// allocateRequest captures an admin top-up.
type allocateRequest struct {
	UserID    uint64 `json:"user_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

// Allocate tops up an organization's allocated balance. Admin only.
func (h *WalletHandler) Allocate(c *gin.Context) {
	if getUserRole(c) != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	var body allocateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, errAmount := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if errAmount != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}
	entry, errAllocate := h.ledger.Allocate(c.Request.Context(), body.UserID, amount, strings.TrimSpace(body.Reference))
	if errAllocate != nil {
		respondError(c, errAllocate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": entry.ID,
		"balance_after":  entry.BalanceAfter.StringFixed(2),
	})
}

// Reconcile returns the platform-wide reconciliation report. Admin only.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	if getUserRole(c) != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	report, errReconcile := h.ledger.Reconcile(c.Request.Context())
	if errReconcile != nil {
		respondError(c, errReconcile)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": report})
}

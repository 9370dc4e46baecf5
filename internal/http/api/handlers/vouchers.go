package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/voucher"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// VoucherHandler exposes voucher issuance, lookup, and reassignment.
type VoucherHandler struct {
	issuer *voucher.Issuer
	store  *voucher.Store
}

// NewVoucherHandler wires a voucher handler.
func NewVoucherHandler(issuer *voucher.Issuer, store *voucher.Store) *VoucherHandler {
	return &VoucherHandler{issuer: issuer, store: store}
}

// issueRequest captures the payload for issuing one voucher.
type issueRequest struct {
	RecipientID        uint64         `json:"recipient_id"`
	Amount             string         `json:"amount"`
	ExpiryDate         string         `json:"expiry_date"`
	VendorRestrictions datatypes.JSON `json:"vendor_restrictions"`
}

// Issue creates a voucher funded by the caller's allocated balance.
func (h *VoucherHandler) Issue(c *gin.Context) {
	var body issueRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, errAmount := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if errAmount != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}
	expiry, errExpiry := time.ParseInLocation("2006-01-02", strings.TrimSpace(body.ExpiryDate), time.UTC)
	if errExpiry != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry_date must be YYYY-MM-DD"})
		return
	}

	created, errIssue := h.issuer.Issue(c.Request.Context(), voucher.IssueInput{
		IssuerID:           getUserID(c),
		RecipientID:        body.RecipientID,
		Amount:             amount,
		ExpiryDate:         expiry,
		VendorRestrictions: body.VendorRestrictions,
	})
	if errIssue != nil {
		respondError(c, errIssue)
		return
	}
	c.JSON(http.StatusCreated, formatVoucher(created))
}

// List returns vouchers visible to the caller, filtered by query parameters.
func (h *VoucherHandler) List(c *gin.Context) {
	filter := voucher.ListFilter{
		Status:   models.VoucherStatus(strings.TrimSpace(c.Query("status"))),
		CodeLike: strings.TrimSpace(c.Query("code")),
	}
	switch getUserRole(c) {
	case string(models.RoleRecipient):
		filter.RecipientID = getUserID(c)
	case string(models.RoleOrganization):
		filter.IssuedByID = getUserID(c)
	}
	rows, errList := h.store.List(c.Request.Context(), filter)
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatVoucher(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": out})
}

// Get fetches one voucher by its shareable code.
func (h *VoucherHandler) Get(c *gin.Context) {
	found, errGet := h.store.GetByCode(c.Request.Context(), c.Param("code"))
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatVoucher(found))
}

// reassignRequest captures the payload for transferring a voucher.
type reassignRequest struct {
	NewRecipientID uint64 `json:"new_recipient_id"`
}

// Reassign transfers a voucher to a new recipient.
func (h *VoucherHandler) Reassign(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body reassignRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updated, errReassign := h.store.Reassign(c.Request.Context(), id, body.NewRecipientID)
	if errReassign != nil {
		respondError(c, errReassign)
		return
	}
	c.JSON(http.StatusOK, formatVoucher(updated))
}

// formatVoucher maps a voucher model into a response payload.
func formatVoucher(v *models.Voucher) gin.H {
	return gin.H{
		"voucher_id":     v.ID,
		"code":           v.Code,
		"value":          v.Value.StringFixed(2),
		"original_value": v.OriginalValue.StringFixed(2),
		"status":         v.Status,
		"recipient_id":   v.RecipientID,
		"issued_by":      v.IssuedByID,
		"expiry_date":    v.ExpiryDate.Format("2006-01-02"),
		"redeemed_at":    v.RedeemedAt,
		"created_at":     v.CreatedAt,
	}
}

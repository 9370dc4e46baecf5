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
)

// RedemptionHandler exposes the two-step redemption protocol.
type RedemptionHandler struct {
	redemptions *voucher.Redemptions
}

// NewRedemptionHandler wires a redemption handler.
func NewRedemptionHandler(redemptions *voucher.Redemptions) *RedemptionHandler {
	return &RedemptionHandler{redemptions: redemptions}
}

// createRequest captures a vendor's proposed deduction.
type createRequest struct {
	ShopID      uint64 `json:"shop_id"`
	VoucherID   uint64 `json:"voucher_id"`
	RecipientID uint64 `json:"recipient_id"`
	Amount      string `json:"amount"`
}

// Create opens a pending redemption request for the calling vendor.
func (h *RedemptionHandler) Create(c *gin.Context) {
	var body createRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, errAmount := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if errAmount != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}
	request, errCreate := h.redemptions.Create(c.Request.Context(), voucher.CreateInput{
		VendorID:    getUserID(c),
		ShopID:      body.ShopID,
		VoucherID:   body.VoucherID,
		RecipientID: body.RecipientID,
		Amount:      amount,
	})
	if errCreate != nil {
		respondError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"request_id": request.ID,
		"status":     request.Status,
		"amount":     request.Amount.StringFixed(2),
		"expires_at": request.ExpiresAt.Format(time.RFC3339),
	})
}

// respondRequest captures the recipient's decision.
type respondRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Respond applies the calling recipient's decision to a pending request.
func (h *RedemptionHandler) Respond(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body respondRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	result, errRespond := h.redemptions.Respond(c.Request.Context(), voucher.RespondInput{
		RequestID:   id,
		RecipientID: getUserID(c),
		Action:      voucher.RespondAction(strings.ToLower(strings.TrimSpace(body.Action))),
		Reason:      strings.TrimSpace(body.Reason),
	})
	if errRespond != nil {
		respondError(c, errRespond)
		return
	}
	out := gin.H{"status": result.Request.Status}
	if result.Request.Status == models.RedemptionApproved {
		out["voucher_code"] = result.VoucherCode
		out["remaining_balance"] = result.RemainingBalance.StringFixed(2)
	}
	c.JSON(http.StatusOK, out)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Niche-Business/voucher-platform/internal/surplus"
	"github.com/Niche-Business/voucher-platform/internal/voucher"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/gin-gonic/gin"
)

// getUserID extracts the authenticated user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	if id, ok := val.(uint64); ok {
		return id
	}
	return 0
}

// getUserRole extracts the authenticated role from gin context.
func getUserRole(c *gin.Context) string {
	val, exists := c.Get("userRole")
	if !exists {
		return ""
	}
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}

// respondError maps domain errors onto HTTP status codes. Validation problems
// are 400, missing things 404, state conflicts 409, expired windows 410.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, voucher.ErrInvalidAmount),
		errors.Is(err, voucher.ErrExpiryInPast),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, surplus.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, voucher.ErrVoucherNotFound),
		errors.Is(err, voucher.ErrRequestNotFound),
		errors.Is(err, voucher.ErrRecipientNotFound),
		errors.Is(err, voucher.ErrShopNotFound),
		errors.Is(err, wallet.ErrUserNotFound),
		errors.Is(err, surplus.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, voucher.ErrNotRequestRecipient),
		errors.Is(err, voucher.ErrRecipientMismatch),
		errors.Is(err, surplus.ErrNotItemVendor):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, voucher.ErrRequestExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, voucher.ErrAmountExceedsBalance),
		errors.Is(err, voucher.ErrVoucherNotSpendable),
		errors.Is(err, voucher.ErrPendingRequestExists),
		errors.Is(err, voucher.ErrRequestNotPending),
		errors.Is(err, surplus.ErrItemNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

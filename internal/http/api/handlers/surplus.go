package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/surplus"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SurplusHandler exposes surplus food postings.
type SurplusHandler struct {
	service *surplus.Service
}

// NewSurplusHandler wires a surplus handler.
func NewSurplusHandler(service *surplus.Service) *SurplusHandler {
	return &SurplusHandler{service: service}
}

// postItemRequest captures a new surplus posting.
type postItemRequest struct {
	ShopID       uint64  `json:"shop_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	Price        *string `json:"price"`
	CollectFrom  string  `json:"collect_from"`
	CollectUntil string  `json:"collect_until"`
}

// Post publishes a surplus item for the calling vendor.
func (h *SurplusHandler) Post(c *gin.Context) {
	var body postItemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var price *decimal.Decimal
	if body.Price != nil {
		parsed, errPrice := decimal.NewFromString(strings.TrimSpace(*body.Price))
		if errPrice != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
			return
		}
		price = &parsed
	}
	from, errFrom := time.Parse(time.RFC3339, strings.TrimSpace(body.CollectFrom))
	until, errUntil := time.Parse(time.RFC3339, strings.TrimSpace(body.CollectUntil))
	if errFrom != nil || errUntil != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collect_from and collect_until must be RFC3339 timestamps"})
		return
	}
	item, errPost := h.service.Post(c.Request.Context(), surplus.PostInput{
		VendorID:     getUserID(c),
		ShopID:       body.ShopID,
		Name:         body.Name,
		Description:  body.Description,
		Quantity:     body.Quantity,
		Price:        price,
		CollectFrom:  from,
		CollectUntil: until,
	})
	if errPost != nil {
		respondError(c, errPost)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item_id": item.ID, "status": item.Status})
}

// List returns all postings still open for collection.
func (h *SurplusHandler) List(c *gin.Context) {
	rows, errList := h.service.Available(c.Request.Context())
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		item := gin.H{
			"item_id":       row.ID,
			"shop_id":       row.ShopID,
			"name":          row.Name,
			"description":   row.Description,
			"quantity":      row.Quantity,
			"collect_from":  row.CollectFrom,
			"collect_until": row.CollectUntil,
		}
		if row.Price != nil {
			item["price"] = row.Price.StringFixed(2)
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// Collected marks a posting as handed over.
func (h *SurplusHandler) Collected(c *gin.Context) {
	h.transition(c, h.service.MarkCollected)
}

// Withdraw pulls a posting.
func (h *SurplusHandler) Withdraw(c *gin.Context) {
	h.transition(c, h.service.Withdraw)
}

func (h *SurplusHandler) transition(c *gin.Context, apply func(ctx context.Context, itemID, vendorID uint64) error) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if errApply := apply(c.Request.Context(), id, getUserID(c)); errApply != nil {
		respondError(c, errApply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/config"
	"github.com/Niche-Business/voucher-platform/internal/http/api/handlers"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/Niche-Business/voucher-platform/internal/security"
	"github.com/Niche-Business/voucher-platform/internal/surplus"
	"github.com/Niche-Business/voucher-platform/internal/voucher"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB       *gorm.DB
	Ledger   *wallet.Ledger
	Notifier notify.Notifier
	Config   *config.Config
}

// NewRouter builds the gin engine with every platform route registered.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	issuer := voucher.NewIssuer(deps.DB, deps.Ledger, deps.Notifier)
	store := voucher.NewStore(deps.DB, deps.Notifier)
	redemptions := voucher.NewRedemptions(deps.DB, deps.Ledger, deps.Notifier, deps.Config.ApprovalWindow())
	bulk := voucher.NewBulk(deps.DB, issuer, deps.Notifier)
	surplusService := surplus.NewService(deps.DB)

	voucherHandler := handlers.NewVoucherHandler(issuer, store)
	redemptionHandler := handlers.NewRedemptionHandler(redemptions)
	walletHandler := handlers.NewWalletHandler(deps.Ledger)
	bulkHandler := handlers.NewBulkHandler(bulk)
	surplusHandler := handlers.NewSurplusHandler(surplusService)

	v1 := engine.Group("/api/v1")
	v1.Use(authMiddleware(deps.Config.JWT.Secret))

	v1.POST("/vouchers", voucherHandler.Issue)
	v1.GET("/vouchers", voucherHandler.List)
	v1.GET("/vouchers/:code", voucherHandler.Get)
	v1.POST("/vouchers/:id/reassign", voucherHandler.Reassign)

	v1.POST("/redemption-requests", redemptionHandler.Create)
	v1.POST("/redemption-requests/:id/respond", redemptionHandler.Respond)

	v1.GET("/wallet/transactions", walletHandler.Transactions)
	v1.POST("/wallet/allocate", walletHandler.Allocate)
	v1.GET("/wallet/reconciliation", walletHandler.Reconcile)

	v1.POST("/vouchers/bulk/validate", bulkHandler.Validate)
	v1.POST("/vouchers/bulk", bulkHandler.Execute)

	v1.POST("/surplus", surplusHandler.Post)
	v1.GET("/surplus", surplusHandler.List)
	v1.POST("/surplus/:id/collected", surplusHandler.Collected)
	v1.POST("/surplus/:id/withdraw", surplusHandler.Withdraw)

	return engine
}

// authMiddleware validates the bearer token and stashes the caller identity
// in the request context.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, errParse := security.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errParse.Error()})
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

package db

import (
	"fmt"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every platform model.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.Voucher{},
		&models.WalletTransaction{},
		&models.RedemptionRequest{},
		&models.SurplusItem{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return ensurePendingRequestIndex(conn)
}

// ensurePendingRequestIndex enforces at most one pending redemption request
// per voucher at the schema level. Both dialects support partial indexes.
func ensurePendingRequestIndex(conn *gorm.DB) error {
	const stmt = `CREATE UNIQUE INDEX IF NOT EXISTS idx_redemption_requests_one_pending
		ON redemption_requests (voucher_id) WHERE status = 'pending'`
	if err := conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("db: pending request index: %w", err)
	}
	return nil
}

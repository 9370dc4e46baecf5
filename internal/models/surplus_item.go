package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SurplusStatus tracks a surplus food posting.
type SurplusStatus string

// Surplus item states.
const (
	// SurplusAvailable means the item can still be claimed.
	SurplusAvailable SurplusStatus = "available"
	// SurplusCollected means the item was handed over.
	SurplusCollected SurplusStatus = "collected"
	// SurplusWithdrawn means the vendor pulled the posting.
	SurplusWithdrawn SurplusStatus = "withdrawn"
)

// SurplusItem is a donated or discounted good a vendor posts for collection.
// Surplus postings never touch wallets or vouchers.
type SurplusItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	VendorID uint64 `gorm:"not null;index"`      // Posting vendor.
	Vendor   *User  `gorm:"foreignKey:VendorID"` // Posting vendor record.
	ShopID   uint64 `gorm:"not null;index"`      // Shop where the item is collected.

	Name        string `gorm:"type:text;not null"` // Item name.
	Description string `gorm:"type:text"`          // Free-form description.
	Quantity    int    `gorm:"not null;default:1"` // Units on offer.

	Price *decimal.Decimal `gorm:"type:decimal(20,2)"` // Discounted price; nil means free.

	Status SurplusStatus `gorm:"type:text;not null;index"` // Posting state.

	CollectFrom  time.Time `gorm:"not null"` // Start of the collection window.
	CollectUntil time.Time `gorm:"not null"` // End of the collection window.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

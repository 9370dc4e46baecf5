package models

import "time"

// Shop is a participating local shop owned by a vendor. Vouchers are redeemed
// against a shop so receipts can name the place of purchase.
type Shop struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	VendorID uint64 `gorm:"not null;index"`      // Owning vendor account.
	Vendor   *User  `gorm:"foreignKey:VendorID"` // Owning vendor record.

	Name     string `gorm:"type:text;not null"` // Shop display name.
	Address  string `gorm:"type:text"`          // Street address.
	Postcode string `gorm:"type:text;index"`    // Postcode for locality search.

	Active bool `gorm:"not null;default:true"` // Whether the shop accepts redemptions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

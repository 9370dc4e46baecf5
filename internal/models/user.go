package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole identifies what a user account can do on the platform.
type UserRole string

// UserRole constants cover every account type the core deals with.
const (
	// RoleAdmin manages fund allocation across organizations.
	RoleAdmin UserRole = "admin"
	// RoleOrganization is a VCFSE organization or school issuing vouchers.
	RoleOrganization UserRole = "organization"
	// RoleVendor is a shop owner redeeming vouchers and posting surplus items.
	RoleVendor UserRole = "vendor"
	// RoleRecipient receives and spends vouchers.
	RoleRecipient UserRole = "recipient"
)

// User represents any account on the platform. Organizations and vendors carry
// two separate balance pools: AllocatedBalance backs voucher issuance, Balance
// accrues redemption proceeds. The pools never mix.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string   `gorm:"type:text;not null;uniqueIndex"` // Unique login/contact address.
	Name     string   `gorm:"type:text;not null"`             // Display name.
	Password string   `gorm:"type:text;not null"`             // Hashed password.
	Role     UserRole `gorm:"type:text;not null;index"`       // Account role.

	AllocatedBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // Funds available to back voucher issuance.
	Balance          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // Accrued redemption proceeds.

	CharityNumber string `gorm:"type:text"` // Registered charity number, when applicable.

	Active bool `gorm:"not null;default:true"` // Whether the account can act.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

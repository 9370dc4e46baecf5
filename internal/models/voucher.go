package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// VoucherStatus tracks a voucher through its lifecycle.
type VoucherStatus string

// Voucher lifecycle states. Redeemed and expired are terminal.
const (
	// VoucherActive means the voucher still holds spendable value.
	VoucherActive VoucherStatus = "active"
	// VoucherRedeemed means the value reached zero through redemption.
	VoucherRedeemed VoucherStatus = "redeemed"
	// VoucherExpired means the sweeper retired the voucher past its expiry date.
	VoucherExpired VoucherStatus = "expired"
	// VoucherReassigned marks a voucher transferred to a new recipient. It
	// behaves exactly like active: spendable until redeemed or expired.
	VoucherReassigned VoucherStatus = "reassigned"
)

// SpendableStatuses are the states in which a voucher still holds value and
// can back a redemption or a transfer.
var SpendableStatuses = []VoucherStatus{VoucherActive, VoucherReassigned}

// Voucher is a spendable credit of fixed initial value, redeemable in whole or
// in part at participating shops before its expiry date.
//
// Value only ever moves down, and `value == 0` implies status redeemed. An
// expired voucher keeps whatever value was left at expiry time.
type Voucher struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code string `gorm:"type:text;not null;uniqueIndex"` // Human-shareable redemption code.

	Value         decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Current remaining balance.
	OriginalValue decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Value at issuance.

	Status VoucherStatus `gorm:"type:text;not null;index"` // Lifecycle state.

	RecipientID         uint64 `gorm:"not null;index"`         // Current holder.
	Recipient           *User  `gorm:"foreignKey:RecipientID"` // Current holder record.
	OriginalRecipientID uint64 `gorm:"not null"`               // First holder, immutable after issuance.
	IssuedByID          uint64 `gorm:"not null;index"`         // Issuing organization or admin.
	IssuedBy            *User  `gorm:"foreignKey:IssuedByID"`  // Issuer record.

	ExpiryDate time.Time `gorm:"not null;index"` // Last day the voucher can be spent, inclusive.

	RedeemedByVendorID *uint64    `gorm:"index"` // Vendor of the most recent approved redemption.
	RedeemedAtShopID   *uint64    // Shop of the most recent approved redemption.
	RedeemedAt         *time.Time // Time of the most recent approved redemption.

	ReassignmentCount   int            `gorm:"not null;default:0"` // Number of recipient transfers.
	ReassignmentHistory datatypes.JSON `gorm:"type:jsonb"`         // Ordered log of recipient transfers.

	VendorRestrictions datatypes.JSON `gorm:"type:jsonb"` // Optional issuer-imposed vendor restrictions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Spendable reports whether the voucher can currently back a redemption.
// The expiry date is inclusive: a voucher expiring today is still spendable.
func (v *Voucher) Spendable(now time.Time) bool {
	if v.Status != VoucherActive && v.Status != VoucherReassigned {
		return false
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expiry := time.Date(v.ExpiryDate.Year(), v.ExpiryDate.Month(), v.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
	return !day.After(expiry)
}

// ReassignmentRecord is one entry in a voucher's reassignment history log.
type ReassignmentRecord struct {
	FromRecipientID uint64    `json:"from_recipient_id"`
	ToRecipientID   uint64    `json:"to_recipient_id"`
	ReassignedAt    time.Time `json:"reassigned_at"`
}

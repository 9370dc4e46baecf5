package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionStatus tracks a redemption request through its short lifecycle.
type RedemptionStatus string

// Redemption request states. Everything except pending is terminal.
const (
	// RedemptionPending awaits the recipient's decision.
	RedemptionPending RedemptionStatus = "pending"
	// RedemptionApproved means the recipient approved and the deduction settled.
	RedemptionApproved RedemptionStatus = "approved"
	// RedemptionRejected means the recipient declined, or the amount no longer fit.
	RedemptionRejected RedemptionStatus = "rejected"
	// RedemptionExpired means the approval window elapsed with no response.
	RedemptionExpired RedemptionStatus = "expired"
)

// RedemptionRequest is a vendor-initiated proposal to deduct an amount from a
// voucher. It only takes effect once the recipient approves it, and it carries
// a hard expiry window. At most one pending request exists per voucher.
type RedemptionRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	VoucherID uint64   `gorm:"not null;index"`       // Voucher the deduction targets.
	Voucher   *Voucher `gorm:"foreignKey:VoucherID"` // Voucher record.

	VendorID    uint64 `gorm:"not null;index"` // Vendor proposing the deduction.
	ShopID      uint64 `gorm:"not null"`       // Shop where the redemption happens.
	RecipientID uint64 `gorm:"not null;index"` // Recipient who must approve.

	Amount decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Proposed deduction, positive.

	Status RedemptionStatus `gorm:"type:text;not null;index"` // Lifecycle state.

	ExpiresAt       time.Time  `gorm:"not null"` // Hard deadline for the recipient's response.
	RespondedAt     *time.Time // When the recipient acted, if they did.
	RejectionReason string     `gorm:"type:text"` // Recipient-supplied or system reason on rejection.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

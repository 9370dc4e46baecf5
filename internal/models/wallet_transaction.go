package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransactionType identifies which balance pool an entry moved and in
// which direction.
type WalletTransactionType string

// Ledger entry types. Debit and allocation move the allocated pool; credit
// moves the proceeds pool.
const (
	// TxDebit records allocated funds consumed by voucher issuance.
	TxDebit WalletTransactionType = "debit"
	// TxCredit records redemption proceeds paid to a vendor.
	TxCredit WalletTransactionType = "credit"
	// TxAllocation records an admin top-up of an organization's allocated funds.
	TxAllocation WalletTransactionType = "allocation"
)

// WalletTransaction is one append-only ledger entry. Rows are never updated or
// deleted after creation; corrections happen through new entries.
//
// For a given user and balance pool, entries ordered by creation must chain:
// each BalanceBefore equals the previous entry's BalanceAfter. A broken chain
// means a lost update slipped past the row locking.
type WalletTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Account whose balance moved.
	User   *User  `gorm:"foreignKey:UserID"` // Account record.

	Type WalletTransactionType `gorm:"type:text;not null;index"` // Entry type.

	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Positive amount moved.
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Pool balance before this entry.
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Pool balance after this entry.

	VoucherID *uint64 `gorm:"index"`     // Voucher that caused the movement, when applicable.
	Reference string  `gorm:"type:text"` // Free-form description of the movement.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// Pool returns which balance pool the entry type moves.
func (t WalletTransactionType) Pool() string {
	if t == TxCredit {
		return "proceeds"
	}
	return "allocated"
}

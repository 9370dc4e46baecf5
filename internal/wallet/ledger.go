package wallet

import (
	"context"
	"errors"
	"fmt"

	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger errors surfaced to callers.
var (
	// ErrInvalidAmount indicates a non-positive movement amount.
	ErrInvalidAmount = errors.New("wallet: amount must be positive")
	// ErrInsufficientBalance indicates the allocated pool cannot cover a debit.
	ErrInsufficientBalance = errors.New("wallet: insufficient allocated balance")
	// ErrUserNotFound indicates the target account does not exist.
	ErrUserNotFound = errors.New("wallet: user not found")
	// ErrChainBroken indicates ledger entries do not chain for a user.
	ErrChainBroken = errors.New("wallet: transaction chain broken")
)

// Ledger records every balance movement as an append-only wallet transaction
// with before/after snapshots of the affected pool.
//
// Debit and Credit are transaction steps: they take the user row lock, apply
// the movement, and append the entry using whatever *gorm.DB handle they are
// given, so composite operations (issue a voucher, settle a redemption) can
// fold them into one atomic unit.
type Ledger struct {
	db *gorm.DB
}

// NewLedger wires a ledger over the given database handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Allocate tops up an organization's allocated pool as its own transaction.
func (l *Ledger) Allocate(ctx context.Context, userID uint64, amount decimal.Decimal, reference string) (*models.WalletTransaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var entry *models.WalletTransaction
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errLock := lockUser(tx, userID)
		if errLock != nil {
			return errLock
		}
		newBalance := user.AllocatedBalance.Add(amount).Round(2)
		if errUpdate := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("allocated_balance", newBalance).Error; errUpdate != nil {
			return fmt.Errorf("wallet: allocate: %w", errUpdate)
		}
		entry = &models.WalletTransaction{
			UserID:        userID,
			Type:          models.TxAllocation,
			Amount:        amount,
			BalanceBefore: user.AllocatedBalance,
			BalanceAfter:  newBalance,
			Reference:     reference,
		}
		return tx.Create(entry).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return entry, nil
}

// Debit consumes allocated funds inside the caller's transaction. The user
// row is locked before the balance is re-read, so concurrent issuances from
// the same organization serialize here.
func (l *Ledger) Debit(tx *gorm.DB, userID uint64, amount decimal.Decimal, voucherID *uint64, reference string) (*models.WalletTransaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	user, errLock := lockUser(tx, userID)
	if errLock != nil {
		return nil, errLock
	}
	if user.AllocatedBalance.LessThan(amount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
			user.AllocatedBalance.StringFixed(2), amount.StringFixed(2))
	}
	newBalance := user.AllocatedBalance.Sub(amount).Round(2)
	if errUpdate := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("allocated_balance", newBalance).Error; errUpdate != nil {
		return nil, fmt.Errorf("wallet: debit: %w", errUpdate)
	}
	entry := &models.WalletTransaction{
		UserID:        userID,
		Type:          models.TxDebit,
		Amount:        amount,
		BalanceBefore: user.AllocatedBalance,
		BalanceAfter:  newBalance,
		VoucherID:     voucherID,
		Reference:     reference,
	}
	if errCreate := tx.Create(entry).Error; errCreate != nil {
		return nil, errCreate
	}
	return entry, nil
}

// Credit pays redemption proceeds into a vendor's proceeds pool inside the
// caller's transaction.
func (l *Ledger) Credit(tx *gorm.DB, userID uint64, amount decimal.Decimal, voucherID *uint64, reference string) (*models.WalletTransaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	user, errLock := lockUser(tx, userID)
	if errLock != nil {
		return nil, errLock
	}
	newBalance := user.Balance.Add(amount).Round(2)
	if errUpdate := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("balance", newBalance).Error; errUpdate != nil {
		return nil, fmt.Errorf("wallet: credit: %w", errUpdate)
	}
	entry := &models.WalletTransaction{
		UserID:        userID,
		Type:          models.TxCredit,
		Amount:        amount,
		BalanceBefore: user.Balance,
		BalanceAfter:  newBalance,
		VoucherID:     voucherID,
		Reference:     reference,
	}
	if errCreate := tx.Create(entry).Error; errCreate != nil {
		return nil, errCreate
	}
	return entry, nil
}

// Entries returns a user's ledger entries in chronological order.
func (l *Ledger) Entries(ctx context.Context, userID uint64) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	if errFind := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// VerifyChain checks that a user's ledger entries chain per balance pool:
// each entry's BalanceBefore must equal the previous entry's BalanceAfter.
func (l *Ledger) VerifyChain(ctx context.Context, userID uint64) error {
	rows, errEntries := l.Entries(ctx, userID)
	if errEntries != nil {
		return errEntries
	}
	last := map[string]*models.WalletTransaction{}
	for i := range rows {
		entry := &rows[i]
		pool := entry.Type.Pool()
		if prev, ok := last[pool]; ok && !prev.BalanceAfter.Equal(entry.BalanceBefore) {
			return fmt.Errorf("%w: user %d pool %s entry %d: before %s != previous after %s",
				ErrChainBroken, userID, pool, entry.ID,
				entry.BalanceBefore.StringFixed(2), prev.BalanceAfter.StringFixed(2))
		}
		expected := entry.BalanceBefore.Add(entry.Amount)
		if entry.Type == models.TxDebit {
			expected = entry.BalanceBefore.Sub(entry.Amount)
		}
		if !expected.Equal(entry.BalanceAfter) {
			return fmt.Errorf("%w: user %d entry %d: after %s does not match %s %s of %s",
				ErrChainBroken, userID, entry.ID, entry.BalanceAfter.StringFixed(2),
				string(entry.Type), entry.BalanceBefore.StringFixed(2), entry.Amount.StringFixed(2))
		}
		last[pool] = entry
	}
	return nil
}

// lockUser loads a user row under a FOR UPDATE lock.
func lockUser(tx *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := dbutil.Locked(tx).
		First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errFind
	}
	return &user, nil
}

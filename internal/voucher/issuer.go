package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Issuer creates vouchers backed by organization funds. Issuance is atomic:
// the voucher row, the wallet debit, and the ledger entry commit together or
// not at all.
type Issuer struct {
	db       *gorm.DB
	ledger   *wallet.Ledger
	notifier notify.Notifier
}

// NewIssuer wires an issuer with its dependencies.
func NewIssuer(db *gorm.DB, ledger *wallet.Ledger, notifier notify.Notifier) *Issuer {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Issuer{db: db, ledger: ledger, notifier: notifier}
}

// IssueInput holds the parameters for issuing a single voucher.
type IssueInput struct {
	IssuerID           uint64
	RecipientID        uint64
	Amount             decimal.Decimal
	ExpiryDate         time.Time
	VendorRestrictions datatypes.JSON
}

// Issue validates the input, debits the issuer's allocated balance, and
// creates the voucher, all in one transaction. The recipient notification is
// dispatched after commit and never affects the outcome.
func (i *Issuer) Issue(ctx context.Context, in IssueInput) (*models.Voucher, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if beforeToday(in.ExpiryDate, time.Now().UTC()) {
		return nil, ErrExpiryInPast
	}

	var created *models.Voucher
	errTx := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, errIssue := i.issueInTx(tx, in.IssuerID, in.RecipientID, amount, in.ExpiryDate, in.VendorRestrictions)
		if errIssue != nil {
			return errIssue
		}
		created = voucher
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	logIssued(created)
	i.notifier.Notify(ctx, created.RecipientID, notify.EventVoucherIssued, map[string]any{
		"voucher_code": created.Code,
		"value":        created.Value.StringFixed(2),
		"expiry_date":  created.ExpiryDate.Format("2006-01-02"),
	})
	return created, nil
}

// issueInTx performs one voucher issuance inside an open transaction. The
// bulk issuer reuses it per row. The amount must already be rounded and
// positive.
func (i *Issuer) issueInTx(tx *gorm.DB, issuerID, recipientID uint64, amount decimal.Decimal, expiry time.Time, restrictions datatypes.JSON) (*models.Voucher, error) {
	var recipient models.User
	if errFind := tx.Where("id = ? AND role = ?", recipientID, models.RoleRecipient).
		First(&recipient).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, errFind
	}

	code, errCode := uniqueCode(tx)
	if errCode != nil {
		return nil, errCode
	}

	voucher := &models.Voucher{
		Code:                code,
		Value:               amount,
		OriginalValue:       amount,
		Status:              models.VoucherActive,
		RecipientID:         recipientID,
		OriginalRecipientID: recipientID,
		IssuedByID:          issuerID,
		ExpiryDate:          expiry,
		VendorRestrictions:  restrictions,
	}
	if errCreate := tx.Create(voucher).Error; errCreate != nil {
		return nil, fmt.Errorf("voucher: create: %w", errCreate)
	}

	reference := fmt.Sprintf("voucher %s issued to recipient %d", code, recipientID)
	if _, errDebit := i.ledger.Debit(tx, issuerID, amount, &voucher.ID, reference); errDebit != nil {
		return nil, errDebit
	}
	return voucher, nil
}

// beforeToday reports whether the date falls on a day before now's day (UTC).
func beforeToday(date, now time.Time) bool {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	target := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return target.Before(day)
}

// logIssued is a shared hook for consistent issuance logging.
func logIssued(voucher *models.Voucher) {
	log.WithField("code", voucher.Code).
		WithField("recipient_id", voucher.RecipientID).
		Infof("voucher issued for %s", voucher.Value.StringFixed(2))
}

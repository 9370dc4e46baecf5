package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/Niche-Business/voucher-platform/internal/security"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// rowDateFormats are the expiry date layouts accepted in tabular input, tried
// in order.
var rowDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
}

// Bulk issues many vouchers from tabular input, reusing the single-voucher
// issuance path per row inside one storage transaction.
type Bulk struct {
	db       *gorm.DB
	issuer   *Issuer
	notifier notify.Notifier
}

// NewBulk wires a bulk issuer.
func NewBulk(db *gorm.DB, issuer *Issuer, notifier notify.Notifier) *Bulk {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Bulk{db: db, issuer: issuer, notifier: notifier}
}

// Row is one line of tabular bulk input, as parsed from the upload.
type Row struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	Amount         string `json:"amount"`
	ExpiryDate     string `json:"expiry_date"`
}

// ParsedRow is a validated row normalized to internal types.
type ParsedRow struct {
	Email  string
	Name   string
	Amount decimal.Decimal
	Expiry time.Time
}

// RowValidation reports the outcome of validating one row.
type RowValidation struct {
	Index    int        `json:"index"`
	Valid    bool       `json:"valid"`
	Errors   []string   `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
	Parsed   *ParsedRow `json:"-"`
}

// ValidateRows checks every row independently: one bad row never invalidates
// the others. Duplicate recipient emails are flagged as warnings on every
// occurrence after the first; the first occurrence wins on execute.
func (b *Bulk) ValidateRows(rows []Row) []RowValidation {
	now := time.Now().UTC()
	seen := map[string]int{}
	out := make([]RowValidation, len(rows))
	for i, row := range rows {
		validation := RowValidation{Index: i}
		parsed := ParsedRow{
			Email: strings.ToLower(strings.TrimSpace(row.RecipientEmail)),
			Name:  strings.TrimSpace(row.RecipientName),
		}

		if parsed.Email == "" {
			validation.Errors = append(validation.Errors, "missing recipient email")
		} else if !strings.Contains(parsed.Email, "@") {
			validation.Errors = append(validation.Errors, "recipient email is malformed")
		}

		amount, errAmount := decimal.NewFromString(strings.TrimSpace(row.Amount))
		switch {
		case strings.TrimSpace(row.Amount) == "":
			validation.Errors = append(validation.Errors, "missing amount")
		case errAmount != nil:
			validation.Errors = append(validation.Errors, fmt.Sprintf("amount %q is not a number", row.Amount))
		case !amount.Round(2).IsPositive():
			validation.Errors = append(validation.Errors, "amount must be positive")
		default:
			parsed.Amount = amount.Round(2)
		}

		expiry, errExpiry := parseRowDate(row.ExpiryDate)
		switch {
		case strings.TrimSpace(row.ExpiryDate) == "":
			validation.Errors = append(validation.Errors, "missing expiry date")
		case errExpiry != nil:
			validation.Errors = append(validation.Errors, fmt.Sprintf("expiry date %q is not a recognized date", row.ExpiryDate))
		case beforeToday(expiry, now):
			validation.Errors = append(validation.Errors, "expiry date is in the past")
		default:
			parsed.Expiry = expiry
		}

		if parsed.Email != "" {
			if first, dup := seen[parsed.Email]; dup {
				validation.Warnings = append(validation.Warnings,
					fmt.Sprintf("duplicate of row %d for %s; first occurrence wins", first, parsed.Email))
			} else {
				seen[parsed.Email] = i
			}
		}

		if len(validation.Errors) == 0 {
			validation.Valid = true
			validation.Parsed = &parsed
		}
		out[i] = validation
	}
	return out
}

// parseRowDate normalizes any accepted date layout to a UTC day.
func parseRowDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	var lastErr error
	for _, layout := range rowDateFormats {
		parsed, errParse := time.ParseInLocation(layout, trimmed, time.UTC)
		if errParse == nil {
			return parsed, nil
		}
		lastErr = errParse
	}
	return time.Time{}, lastErr
}

// Options control bulk execution behavior.
type Options struct {
	// SkipDuplicates records duplicate-recipient rows as skipped instead of failed.
	SkipDuplicates bool `json:"skip_duplicates"`
	// SendNotifications dispatches per-voucher notifications after commit.
	SendNotifications bool `json:"send_notifications"`
}

// RowOutcome records what happened to one row during execution.
type RowOutcome struct {
	Index       int    `json:"index"`
	Email       string `json:"email,omitempty"`
	VoucherCode string `json:"voucher_code,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Result classifies every input row into exactly one bucket.
type Result struct {
	Created []RowOutcome `json:"created"`
	Skipped []RowOutcome `json:"skipped"`
	Failed  []RowOutcome `json:"failed"`
}

// Execute validates rows, checks the whole batch fits the issuer's allocated
// balance up front, then issues one voucher per usable row. Recipient
// accounts are created on the fly with a temporary credential. Row failures
// are recorded and do not abort the batch; the commit itself is
// all-or-nothing at the storage layer.
func (b *Bulk) Execute(ctx context.Context, issuerID uint64, rows []Row, opts Options) (*Result, error) {
	validations := b.ValidateRows(rows)
	result := &Result{}

	total := decimal.Zero
	usable := make([]RowValidation, 0, len(validations))
	for _, validation := range validations {
		row := rows[validation.Index]
		email := strings.ToLower(strings.TrimSpace(row.RecipientEmail))
		if !validation.Valid {
			result.Failed = append(result.Failed, RowOutcome{
				Index:  validation.Index,
				Email:  email,
				Reason: strings.Join(validation.Errors, "; "),
			})
			continue
		}
		if len(validation.Warnings) > 0 {
			outcome := RowOutcome{
				Index:  validation.Index,
				Email:  email,
				Reason: strings.Join(validation.Warnings, "; "),
			}
			if opts.SkipDuplicates {
				result.Skipped = append(result.Skipped, outcome)
			} else {
				result.Failed = append(result.Failed, outcome)
			}
			continue
		}
		total = total.Add(validation.Parsed.Amount)
		usable = append(usable, validation)
	}

	// Fail-fast before creating anything: the whole batch must fit.
	var issuer models.User
	if errFind := b.db.WithContext(ctx).First(&issuer, issuerID).Error; errFind != nil {
		return nil, wallet.ErrUserNotFound
	}
	if issuer.AllocatedBalance.LessThan(total) {
		return nil, fmt.Errorf("%w: have %s, batch needs %s", wallet.ErrInsufficientBalance,
			issuer.AllocatedBalance.StringFixed(2), total.StringFixed(2))
	}

	type createdVoucher struct {
		recipientID uint64
		code        string
		value       decimal.Decimal
		expiry      time.Time
	}
	var dispatch []createdVoucher

	errTx := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, validation := range usable {
			parsed := validation.Parsed
			// Savepoint per row so one failed row rolls back alone.
			errRow := tx.Transaction(func(rowTx *gorm.DB) error {
				recipientID, errRecipient := b.findOrCreateRecipient(rowTx, parsed.Email, parsed.Name)
				if errRecipient != nil {
					return errRecipient
				}
				voucher, errIssue := b.issuer.issueInTx(rowTx, issuerID, recipientID, parsed.Amount, parsed.Expiry, nil)
				if errIssue != nil {
					return errIssue
				}
				result.Created = append(result.Created, RowOutcome{
					Index:       validation.Index,
					Email:       parsed.Email,
					VoucherCode: voucher.Code,
				})
				dispatch = append(dispatch, createdVoucher{
					recipientID: recipientID,
					code:        voucher.Code,
					value:       voucher.Value,
					expiry:      voucher.ExpiryDate,
				})
				return nil
			})
			if errRow != nil {
				result.Failed = append(result.Failed, RowOutcome{
					Index:  validation.Index,
					Email:  parsed.Email,
					Reason: errRow.Error(),
				})
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.Infof("bulk issue: %d created, %d skipped, %d failed",
		len(result.Created), len(result.Skipped), len(result.Failed))

	if opts.SendNotifications {
		for _, v := range dispatch {
			b.notifier.Notify(ctx, v.recipientID, notify.EventVoucherIssued, map[string]any{
				"voucher_code": v.code,
				"value":        v.value.StringFixed(2),
				"expiry_date":  v.expiry.Format("2006-01-02"),
			})
		}
	}
	return result, nil
}

// findOrCreateRecipient resolves a recipient account by email, creating one
// with a generated temporary credential when none exists. An existing account
// with a non-recipient role cannot receive vouchers.
func (b *Bulk) findOrCreateRecipient(tx *gorm.DB, email, name string) (uint64, error) {
	var existing models.User
	errFind := tx.Where("email = ?", email).First(&existing).Error
	if errFind == nil {
		if existing.Role != models.RoleRecipient {
			return 0, fmt.Errorf("account %s exists with role %s", email, existing.Role)
		}
		return existing.ID, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return 0, errFind
	}

	tempPassword, errGen := generateCode(16)
	if errGen != nil {
		return 0, errGen
	}
	hashed, errHash := security.HashPassword(tempPassword)
	if errHash != nil {
		return 0, errHash
	}
	if name == "" {
		name = email
	}
	user := models.User{
		Email:    email,
		Name:     name,
		Password: hashed,
		Role:     models.RoleRecipient,
		Active:   true,
	}
	if errCreate := tx.Create(&user).Error; errCreate != nil {
		return 0, errCreate
	}
	return user.ID, nil
}

package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultApprovalWindow bounds how long a recipient has to answer a
// redemption request.
const DefaultApprovalWindow = 5 * time.Minute

// exceedsBalanceReason is stored on requests auto-rejected because the
// voucher's remaining value no longer covers the proposed amount.
const exceedsBalanceReason = "amount exceeds remaining voucher balance"

// notSpendableReason is stored on requests auto-rejected because the voucher
// left its spendable states before the recipient answered.
const notSpendableReason = "voucher is no longer spendable"

// Redemptions runs the two-step redemption protocol: a vendor proposes a
// deduction, the recipient approves or rejects it within a short window.
// Approval settles atomically: voucher value down, vendor proceeds up, ledger
// entry appended, request closed — one transaction.
type Redemptions struct {
	db       *gorm.DB
	ledger   *wallet.Ledger
	notifier notify.Notifier
	window   time.Duration
}

// NewRedemptions wires the redemption protocol. A non-positive window falls
// back to the default.
func NewRedemptions(db *gorm.DB, ledger *wallet.Ledger, notifier notify.Notifier, window time.Duration) *Redemptions {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if window <= 0 {
		window = DefaultApprovalWindow
	}
	return &Redemptions{db: db, ledger: ledger, notifier: notifier, window: window}
}

// CreateInput holds a vendor's proposed deduction.
type CreateInput struct {
	VendorID    uint64
	ShopID      uint64
	VoucherID   uint64
	RecipientID uint64
	Amount      decimal.Decimal
}

// Create opens a pending redemption request. The voucher row lock serializes
// concurrent creations, and at most one pending request may exist per voucher
// at a time.
func (r *Redemptions) Create(ctx context.Context, in CreateInput) (*models.RedemptionRequest, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	var request *models.RedemptionRequest
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shop models.Shop
		if errFind := tx.Where("id = ? AND vendor_id = ? AND active = ?", in.ShopID, in.VendorID, true).
			First(&shop).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrShopNotFound
			}
			return errFind
		}

		var voucher models.Voucher
		if errFind := dbutil.Locked(tx).
			First(&voucher, in.VoucherID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrVoucherNotFound
			}
			return errFind
		}
		if !voucher.Spendable(now) {
			return ErrVoucherNotSpendable
		}
		if voucher.RecipientID != in.RecipientID {
			return ErrRecipientMismatch
		}
		if amount.GreaterThan(voucher.Value) {
			return ErrAmountExceedsBalance
		}

		// A pending request past its window no longer blocks the voucher;
		// flip it here instead of waiting for the next sweep.
		if errStale := tx.Model(&models.RedemptionRequest{}).
			Where("voucher_id = ? AND status = ? AND expires_at < ?", in.VoucherID, models.RedemptionPending, now).
			Updates(map[string]any{
				"status":           models.RedemptionExpired,
				"responded_at":     now,
				"rejection_reason": "approval window elapsed",
			}).Error; errStale != nil {
			return errStale
		}

		var pendingCount int64
		if errCount := tx.Model(&models.RedemptionRequest{}).
			Where("voucher_id = ? AND status = ?", in.VoucherID, models.RedemptionPending).
			Count(&pendingCount).Error; errCount != nil {
			return errCount
		}
		if pendingCount > 0 {
			return ErrPendingRequestExists
		}

		request = &models.RedemptionRequest{
			VoucherID:   in.VoucherID,
			VendorID:    in.VendorID,
			ShopID:      in.ShopID,
			RecipientID: in.RecipientID,
			Amount:      amount,
			Status:      models.RedemptionPending,
			ExpiresAt:   now.Add(r.window),
		}
		return tx.Create(request).Error
	})
	if errTx != nil {
		return nil, errTx
	}

	r.notifier.Notify(ctx, in.RecipientID, notify.EventRedemptionRequested, map[string]any{
		"request_id": request.ID,
		"amount":     request.Amount.StringFixed(2),
		"expires_at": request.ExpiresAt.Format(time.RFC3339),
	})
	return request, nil
}

// RespondAction is the recipient's decision on a pending request.
type RespondAction string

// Recipient decisions.
const (
	ActionApprove RespondAction = "approve"
	ActionReject  RespondAction = "reject"
)

// RespondInput holds a recipient's answer to a redemption request.
type RespondInput struct {
	RequestID   uint64
	RecipientID uint64
	Action      RespondAction
	Reason      string
}

// RespondResult reports the settled state after a response.
type RespondResult struct {
	Request          *models.RedemptionRequest
	VoucherCode      string
	RemainingBalance decimal.Decimal
}

// Respond applies the recipient's decision. An attempt past the window flips
// the request to expired and fails with ErrRequestExpired; the transition is
// kept even though the call errors. On approval the voucher value, vendor
// balance, ledger, and request all settle in a single transaction. The voucher
// is re-validated under its row lock: if it left its spendable states since
// the request was created the request is auto-rejected and
// ErrVoucherNotSpendable returned, and if a concurrent settlement shrank it
// below the requested amount the request is auto-rejected and
// ErrAmountExceedsBalance returned.
func (r *Redemptions) Respond(ctx context.Context, in RespondInput) (*RespondResult, error) {
	if in.Action != ActionApprove && in.Action != ActionReject {
		return nil, fmt.Errorf("voucher: unknown action %q", in.Action)
	}

	now := time.Now().UTC()
	var (
		result          RespondResult
		notSpendable    bool
		exceededBalance bool
		vendorID        uint64
	)
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.RedemptionRequest
		if errFind := dbutil.Locked(tx).
			First(&request, in.RequestID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return errFind
		}
		if request.RecipientID != in.RecipientID {
			return ErrNotRequestRecipient
		}
		if request.Status != models.RedemptionPending {
			return ErrRequestNotPending
		}
		if now.After(request.ExpiresAt) {
			// Reported to the caller after the transition commits.
			result.Request = &request
			return r.closeRequest(tx, &request, models.RedemptionExpired, "approval window elapsed", now)
		}

		switch in.Action {
		case ActionReject:
			result.Request = &request
			return r.closeRequest(tx, &request, models.RedemptionRejected, in.Reason, now)
		case ActionApprove:
			var voucher models.Voucher
			if errFind := dbutil.Locked(tx).
				First(&voucher, request.VoucherID).Error; errFind != nil {
				return errFind
			}
			// The voucher may have expired or been redeemed since the request
			// was created. Terminal states take no further value mutation.
			if !voucher.Spendable(now) {
				notSpendable = true
				result.Request = &request
				result.VoucherCode = voucher.Code
				result.RemainingBalance = voucher.Value
				return r.closeRequest(tx, &request, models.RedemptionRejected, notSpendableReason, now)
			}
			// Re-validate against the current value: a concurrent settlement
			// may have shrunk it since the request was created.
			if request.Amount.GreaterThan(voucher.Value) {
				exceededBalance = true
				result.Request = &request
				result.VoucherCode = voucher.Code
				result.RemainingBalance = voucher.Value
				return r.closeRequest(tx, &request, models.RedemptionRejected, exceedsBalanceReason, now)
			}

			newValue := voucher.Value.Sub(request.Amount).Round(2)
			updates := map[string]any{
				"value":                 newValue,
				"redeemed_by_vendor_id": request.VendorID,
				"redeemed_at_shop_id":   request.ShopID,
				"redeemed_at":           now,
			}
			if newValue.IsZero() {
				updates["status"] = models.VoucherRedeemed
			}
			if errUpdate := tx.Model(&voucher).Updates(updates).Error; errUpdate != nil {
				return fmt.Errorf("voucher: settle: %w", errUpdate)
			}

			reference := fmt.Sprintf("redemption of voucher %s, request %d", voucher.Code, request.ID)
			if _, errCredit := r.ledger.Credit(tx, request.VendorID, request.Amount, &voucher.ID, reference); errCredit != nil {
				return errCredit
			}

			vendorID = request.VendorID
			result.Request = &request
			result.VoucherCode = voucher.Code
			result.RemainingBalance = newValue
			return r.closeRequest(tx, &request, models.RedemptionApproved, "", now)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	switch {
	case result.Request.Status == models.RedemptionExpired:
		return nil, ErrRequestExpired
	case notSpendable:
		r.notifyRejected(ctx, result.Request)
		return nil, ErrVoucherNotSpendable
	case exceededBalance:
		r.notifyRejected(ctx, result.Request)
		return nil, fmt.Errorf("%w: remaining %s, requested %s", ErrAmountExceedsBalance,
			result.RemainingBalance.StringFixed(2), result.Request.Amount.StringFixed(2))
	case result.Request.Status == models.RedemptionRejected:
		r.notifyRejected(ctx, result.Request)
		return &result, nil
	default:
		log.WithField("request_id", result.Request.ID).
			WithField("voucher_code", result.VoucherCode).
			Infof("redemption settled for %s", result.Request.Amount.StringFixed(2))
		r.notifier.Notify(ctx, vendorID, notify.EventRedemptionApproved, map[string]any{
			"request_id": result.Request.ID,
			"amount":     result.Request.Amount.StringFixed(2),
		})
		r.notifier.Notify(ctx, result.Request.RecipientID, notify.EventRedemptionReceipt, map[string]any{
			"voucher_code":      result.VoucherCode,
			"amount":            result.Request.Amount.StringFixed(2),
			"remaining_balance": result.RemainingBalance.StringFixed(2),
		})
		return &result, nil
	}
}

// closeRequest moves a pending request to a terminal state. The guard on
// status keeps the transition at-most-once even under retries.
func (r *Redemptions) closeRequest(tx *gorm.DB, request *models.RedemptionRequest, status models.RedemptionStatus, reason string, now time.Time) error {
	res := tx.Model(&models.RedemptionRequest{}).
		Where("id = ? AND status = ?", request.ID, models.RedemptionPending).
		Updates(map[string]any{
			"status":           status,
			"responded_at":     now,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("voucher: close request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotPending
	}
	request.Status = status
	request.RespondedAt = &now
	request.RejectionReason = reason
	return nil
}

func (r *Redemptions) notifyRejected(ctx context.Context, request *models.RedemptionRequest) {
	r.notifier.Notify(ctx, request.VendorID, notify.EventRedemptionRejected, map[string]any{
		"request_id": request.ID,
		"reason":     request.RejectionReason,
	})
}

// GetRequest fetches a redemption request by ID.
func (r *Redemptions) GetRequest(ctx context.Context, id uint64) (*models.RedemptionRequest, error) {
	var request models.RedemptionRequest
	if errFind := r.db.WithContext(ctx).First(&request, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, errFind
	}
	return &request, nil
}

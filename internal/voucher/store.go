package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"gorm.io/gorm"
)

// Store owns voucher reads and the non-monetary mutations (recipient
// transfer). All value changes go through the redemption protocol.
type Store struct {
	db       *gorm.DB
	notifier notify.Notifier
}

// NewStore wires a voucher store.
func NewStore(db *gorm.DB, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Store{db: db, notifier: notifier}
}

// GetByID fetches a voucher by primary key.
func (s *Store) GetByID(ctx context.Context, id uint64) (*models.Voucher, error) {
	var voucher models.Voucher
	if errFind := s.db.WithContext(ctx).First(&voucher, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, errFind
	}
	return &voucher, nil
}

// GetByCode fetches a voucher by its shareable code, case-insensitively.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrVoucherNotFound
	}
	var voucher models.Voucher
	if errFind := s.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, errFind
	}
	return &voucher, nil
}

// ListFilter narrows a voucher listing.
type ListFilter struct {
	Status      models.VoucherStatus // Empty means any status.
	RecipientID uint64               // Zero means any recipient.
	IssuedByID  uint64               // Zero means any issuer.
	CodeLike    string               // Case-insensitive code fragment.
}

// List returns vouchers matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.Voucher, error) {
	q := s.db.WithContext(ctx).Model(&models.Voucher{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RecipientID != 0 {
		q = q.Where("recipient_id = ?", filter.RecipientID)
	}
	if filter.IssuedByID != 0 {
		q = q.Where("issued_by_id = ?", filter.IssuedByID)
	}
	if fragment := strings.TrimSpace(filter.CodeLike); fragment != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+fragment+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "code"), pattern)
	}
	var rows []models.Voucher
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Reassign transfers a spendable voucher to a new recipient, appending to the
// reassignment history. The remaining value is untouched and the original
// recipient stays on record.
func (s *Store) Reassign(ctx context.Context, voucherID, newRecipientID uint64) (*models.Voucher, error) {
	var updated *models.Voucher
	now := time.Now().UTC()
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voucher models.Voucher
		if errFind := dbutil.Locked(tx).
			First(&voucher, voucherID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrVoucherNotFound
			}
			return errFind
		}
		if !voucher.Spendable(now) {
			return ErrVoucherNotSpendable
		}
		if voucher.RecipientID == newRecipientID {
			return ErrRecipientMismatch
		}
		var recipient models.User
		if errFind := tx.Where("id = ? AND role = ?", newRecipientID, models.RoleRecipient).
			First(&recipient).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrRecipientNotFound
			}
			return errFind
		}

		history, errHistory := appendReassignment(voucher.ReassignmentHistory, models.ReassignmentRecord{
			FromRecipientID: voucher.RecipientID,
			ToRecipientID:   newRecipientID,
			ReassignedAt:    now,
		})
		if errHistory != nil {
			return errHistory
		}

		if errUpdate := tx.Model(&voucher).Updates(map[string]any{
			"recipient_id":         newRecipientID,
			"status":               models.VoucherReassigned,
			"reassignment_count":   voucher.ReassignmentCount + 1,
			"reassignment_history": history,
		}).Error; errUpdate != nil {
			return fmt.Errorf("voucher: reassign: %w", errUpdate)
		}

		voucher.RecipientID = newRecipientID
		voucher.Status = models.VoucherReassigned
		voucher.ReassignmentCount++
		voucher.ReassignmentHistory = history
		updated = &voucher
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	s.notifier.Notify(ctx, newRecipientID, notify.EventVoucherReassigned, map[string]any{
		"voucher_code": updated.Code,
		"value":        updated.Value.StringFixed(2),
	})
	return updated, nil
}

// appendReassignment appends a record to the JSON history log.
func appendReassignment(raw []byte, record models.ReassignmentRecord) ([]byte, error) {
	var history []models.ReassignmentRecord
	if len(raw) > 0 {
		if errUnmarshal := json.Unmarshal(raw, &history); errUnmarshal != nil {
			return nil, fmt.Errorf("voucher: decode reassignment history: %w", errUnmarshal)
		}
	}
	history = append(history, record)
	return json.Marshal(history)
}

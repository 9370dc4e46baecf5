package surplus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service errors.
var (
	// ErrItemNotFound indicates no surplus item matches the given ID.
	ErrItemNotFound = errors.New("surplus: item not found")
	// ErrNotItemVendor indicates the caller does not own the posting.
	ErrNotItemVendor = errors.New("surplus: caller is not the posting vendor")
	// ErrItemNotAvailable indicates the posting is already collected or withdrawn.
	ErrItemNotAvailable = errors.New("surplus: item no longer available")
	// ErrInvalidItem indicates a posting with missing or nonsensical fields.
	ErrInvalidItem = errors.New("surplus: invalid item")
)

// Service manages surplus food postings. Postings never touch wallets or
// vouchers; a shop offering leftover stock for free or at a discount is pure
// inventory state.
type Service struct {
	db *gorm.DB
}

// NewService wires a surplus service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// PostInput describes a new surplus posting.
type PostInput struct {
	VendorID     uint64
	ShopID       uint64
	Name         string
	Description  string
	Quantity     int
	Price        *decimal.Decimal
	CollectFrom  time.Time
	CollectUntil time.Time
}

// Post publishes a surplus item for collection.
func (s *Service) Post(ctx context.Context, in PostInput) (*models.SurplusItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Quantity <= 0 || !in.CollectUntil.After(in.CollectFrom) {
		return nil, ErrInvalidItem
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, ErrInvalidItem
	}
	item := &models.SurplusItem{
		VendorID:     in.VendorID,
		ShopID:       in.ShopID,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Quantity:     in.Quantity,
		Price:        in.Price,
		Status:       models.SurplusAvailable,
		CollectFrom:  in.CollectFrom,
		CollectUntil: in.CollectUntil,
	}
	if errCreate := s.db.WithContext(ctx).Create(item).Error; errCreate != nil {
		return nil, errCreate
	}
	return item, nil
}

// Available lists postings still open for collection, soonest deadline first.
func (s *Service) Available(ctx context.Context) ([]models.SurplusItem, error) {
	var rows []models.SurplusItem
	if errFind := s.db.WithContext(ctx).
		Where("status = ? AND collect_until > ?", models.SurplusAvailable, time.Now().UTC()).
		Order("collect_until ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// MarkCollected closes a posting as handed over. Only the posting vendor may
// do this.
func (s *Service) MarkCollected(ctx context.Context, itemID, vendorID uint64) error {
	return s.transition(ctx, itemID, vendorID, models.SurplusCollected)
}

// Withdraw pulls a posting. Only the posting vendor may do this.
func (s *Service) Withdraw(ctx context.Context, itemID, vendorID uint64) error {
	return s.transition(ctx, itemID, vendorID, models.SurplusWithdrawn)
}

func (s *Service) transition(ctx context.Context, itemID, vendorID uint64, status models.SurplusStatus) error {
	var item models.SurplusItem
	if errFind := s.db.WithContext(ctx).First(&item, itemID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return errFind
	}
	if item.VendorID != vendorID {
		return ErrNotItemVendor
	}
	res := s.db.WithContext(ctx).Model(&models.SurplusItem{}).
		Where("id = ? AND status = ?", itemID, models.SurplusAvailable).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrItemNotAvailable
	}
	return nil
}

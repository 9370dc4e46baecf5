package voucher

import (
	"context"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultSweepInterval is how often the background sweep runs.
const defaultSweepInterval = time.Hour

// Sweeper retires vouchers past their expiry date and redemption requests
// past their approval window. Both sweeps are set-based updates, idempotent
// and safe to run concurrently with themselves.
type Sweeper struct {
	db       *gorm.DB
	notifier notify.Notifier
	interval time.Duration
}

// NewSweeper wires an expiration sweeper. A non-positive interval falls back
// to the default.
func NewSweeper(db *gorm.DB, notifier notify.Notifier, interval time.Duration) *Sweeper {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{db: db, notifier: notifier, interval: interval}
}

// Sweep expires every spendable voucher whose expiry date has passed. The
// expiry date is inclusive, so a voucher expiring today survives today's
// sweep. Remaining value is untouched and nothing is refunded.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	res := s.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("status IN ? AND expiry_date < ?", models.SpendableStatuses, today).
		Update("status", models.VoucherExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExpireStaleRequests retires pending redemption requests whose approval
// window elapsed without a response.
func (s *Sweeper) ExpireStaleRequests(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.RedemptionRequest{}).
		Where("status = ? AND expires_at < ?", models.RedemptionPending, now).
		Updates(map[string]any{
			"status":           models.RedemptionExpired,
			"responded_at":     now,
			"rejection_reason": "approval window elapsed",
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExpiringVoucher is one soon-to-expire voucher in a reminder scan.
type ExpiringVoucher struct {
	VoucherID     uint64          `json:"voucher_id"`
	Code          string          `json:"code"`
	Value         decimal.Decimal `json:"value"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	DaysRemaining int             `json:"days_remaining"`
}

// RecipientReminder groups a recipient's soon-to-expire vouchers for the
// external notification dispatcher.
type RecipientReminder struct {
	RecipientID uint64            `json:"recipient_id"`
	Vouchers    []ExpiringVoucher `json:"vouchers"`
}

// ExpiringWithin returns spendable vouchers expiring within the next
// daysAhead days, grouped by recipient. Read-only.
func (s *Sweeper) ExpiringWithin(ctx context.Context, daysAhead int) ([]RecipientReminder, error) {
	if daysAhead < 0 {
		daysAhead = 0
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, daysAhead+1)

	var rows []models.Voucher
	if errFind := s.db.WithContext(ctx).
		Where("status IN ? AND expiry_date >= ? AND expiry_date < ?", models.SpendableStatuses, today, horizon).
		Order("recipient_id ASC, expiry_date ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}

	var reminders []RecipientReminder
	for _, row := range rows {
		expiry := time.Date(row.ExpiryDate.Year(), row.ExpiryDate.Month(), row.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
		entry := ExpiringVoucher{
			VoucherID:     row.ID,
			Code:          row.Code,
			Value:         row.Value,
			ExpiryDate:    expiry,
			DaysRemaining: int(expiry.Sub(today).Hours() / 24),
		}
		if n := len(reminders); n > 0 && reminders[n-1].RecipientID == row.RecipientID {
			reminders[n-1].Vouchers = append(reminders[n-1].Vouchers, entry)
			continue
		}
		reminders = append(reminders, RecipientReminder{
			RecipientID: row.RecipientID,
			Vouchers:    []ExpiringVoucher{entry},
		})
	}
	return reminders, nil
}

// DispatchReminders runs a reminder scan and hands one event per recipient to
// the notification dispatcher. Best-effort, like all notifications.
func (s *Sweeper) DispatchReminders(ctx context.Context, daysAhead int) (int, error) {
	reminders, errScan := s.ExpiringWithin(ctx, daysAhead)
	if errScan != nil {
		return 0, errScan
	}
	for _, reminder := range reminders {
		vouchers := make([]map[string]any, 0, len(reminder.Vouchers))
		for _, entry := range reminder.Vouchers {
			vouchers = append(vouchers, map[string]any{
				"code":           entry.Code,
				"value":          entry.Value.StringFixed(2),
				"days_remaining": entry.DaysRemaining,
			})
		}
		s.notifier.Notify(ctx, reminder.RecipientID, notify.EventVoucherExpiring, map[string]any{
			"vouchers": vouchers,
		})
	}
	return len(reminders), nil
}

// Start launches the periodic sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("expiration sweeper started (interval=%s)", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	expired, errSweep := s.Sweep(ctx)
	if errSweep != nil {
		log.WithError(errSweep).Warn("sweeper: voucher sweep failed")
	} else if expired > 0 {
		log.Infof("sweeper: expired %d vouchers", expired)
	}
	stale, errStale := s.ExpireStaleRequests(ctx)
	if errStale != nil {
		log.WithError(errStale).Warn("sweeper: stale request sweep failed")
	} else if stale > 0 {
		log.Infof("sweeper: expired %d stale redemption requests", stale)
	}
}

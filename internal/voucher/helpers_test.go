package voucher

import (
	"context"
	"testing"
	"time"

	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("raw handle: %v", errDB)
	}
	// One connection, or each pooled connection gets its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, role models.UserRole, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, Password: "x", Role: role, Active: true}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("create user %s: %v", email, errCreate)
	}
	return user
}

func createShop(t *testing.T, conn *gorm.DB, vendorID uint64, name string) *models.Shop {
	t.Helper()
	shop := &models.Shop{VendorID: vendorID, Name: name, Postcode: "M1 1AA", Active: true}
	if errCreate := conn.Create(shop).Error; errCreate != nil {
		t.Fatalf("create shop %s: %v", name, errCreate)
	}
	return shop
}

func fundUser(t *testing.T, ledger *wallet.Ledger, userID uint64, amount int64) {
	t.Helper()
	if _, errAllocate := ledger.Allocate(context.Background(), userID, decimal.NewFromInt(amount), "test funding"); errAllocate != nil {
		t.Fatalf("fund user %d: %v", userID, errAllocate)
	}
}

func reloadUser(t *testing.T, conn *gorm.DB, id uint64) *models.User {
	t.Helper()
	var user models.User
	if errFind := conn.First(&user, id).Error; errFind != nil {
		t.Fatalf("reload user %d: %v", id, errFind)
	}
	return &user
}

func reloadVoucher(t *testing.T, conn *gorm.DB, id uint64) *models.Voucher {
	t.Helper()
	var voucher models.Voucher
	if errFind := conn.First(&voucher, id).Error; errFind != nil {
		t.Fatalf("reload voucher %d: %v", id, errFind)
	}
	return &voucher
}

func reloadRequest(t *testing.T, conn *gorm.DB, id uint64) *models.RedemptionRequest {
	t.Helper()
	var request models.RedemptionRequest
	if errFind := conn.First(&request, id).Error; errFind != nil {
		t.Fatalf("reload request %d: %v", id, errFind)
	}
	return &request
}

func futureDate(days int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

type recordedEvent struct {
	userID  uint64
	event   string
	payload map[string]any
}

// recorderNotifier captures dispatched events for assertions.
type recorderNotifier struct {
	events []recordedEvent
}

func (r *recorderNotifier) Notify(_ context.Context, userID uint64, event string, payload map[string]any) {
	r.events = append(r.events, recordedEvent{userID: userID, event: event, payload: payload})
}

func (r *recorderNotifier) byEvent(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

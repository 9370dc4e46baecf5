package surplus

import (
	"context"
	"errors"
	"testing"
	"time"

	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
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
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func postTestItem(t *testing.T, service *Service, vendorID uint64, name string, until time.Duration) *models.SurplusItem {
	t.Helper()
	now := time.Now().UTC()
	item, errPost := service.Post(context.Background(), PostInput{
		VendorID:     vendorID,
		ShopID:       1,
		Name:         name,
		Quantity:     3,
		CollectFrom:  now,
		CollectUntil: now.Add(until),
	})
	if errPost != nil {
		t.Fatalf("post %s: %v", name, errPost)
	}
	return item
}

func TestPostValidatesInput(t *testing.T) {
	service := NewService(newTestDB(t))
	now := time.Now().UTC()
	negative := decimal.NewFromInt(-1)

	cases := []struct {
		name string
		in   PostInput
	}{
		{"empty name", PostInput{VendorID: 1, ShopID: 1, Name: "  ", Quantity: 1, CollectFrom: now, CollectUntil: now.Add(time.Hour)}},
		{"zero quantity", PostInput{VendorID: 1, ShopID: 1, Name: "Bread", Quantity: 0, CollectFrom: now, CollectUntil: now.Add(time.Hour)}},
		{"window ends before it starts", PostInput{VendorID: 1, ShopID: 1, Name: "Bread", Quantity: 1, CollectFrom: now.Add(time.Hour), CollectUntil: now}},
		{"negative price", PostInput{VendorID: 1, ShopID: 1, Name: "Bread", Quantity: 1, Price: &negative, CollectFrom: now, CollectUntil: now.Add(time.Hour)}},
	}
	for _, tc := range cases {
		if _, errPost := service.Post(context.Background(), tc.in); !errors.Is(errPost, ErrInvalidItem) {
			t.Fatalf("%s: got %v, want ErrInvalidItem", tc.name, errPost)
		}
	}
}

func TestPostAndListAvailable(t *testing.T) {
	service := NewService(newTestDB(t))

	later := postTestItem(t, service, 1, "Pastries", 4*time.Hour)
	sooner := postTestItem(t, service, 1, "Bread", 2*time.Hour)
	if errWithdraw := service.Withdraw(context.Background(), later.ID, 1); errWithdraw != nil {
		t.Fatalf("withdraw: %v", errWithdraw)
	}
	postTestItem(t, service, 2, "Veg Box", 3*time.Hour)

	items, errList := service.Available(context.Background())
	if errList != nil {
		t.Fatalf("available: %v", errList)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 available items, got %d", len(items))
	}
	// Soonest collection deadline first.
	if items[0].ID != sooner.ID {
		t.Fatalf("items not ordered by deadline: %+v", items)
	}

	// Free items carry no price.
	if items[0].Price != nil {
		t.Fatalf("free item has a price: %s", items[0].Price)
	}
}

func TestTransitionsGuardVendorAndState(t *testing.T) {
	service := NewService(newTestDB(t))
	item := postTestItem(t, service, 1, "Bread", time.Hour)

	if errCollect := service.MarkCollected(context.Background(), 9999, 1); !errors.Is(errCollect, ErrItemNotFound) {
		t.Fatalf("unknown item: got %v", errCollect)
	}
	if errCollect := service.MarkCollected(context.Background(), item.ID, 2); !errors.Is(errCollect, ErrNotItemVendor) {
		t.Fatalf("wrong vendor: got %v", errCollect)
	}
	if errCollect := service.MarkCollected(context.Background(), item.ID, 1); errCollect != nil {
		t.Fatalf("collect: %v", errCollect)
	}
	// The posting is closed now; both transitions must refuse.
	if errCollect := service.MarkCollected(context.Background(), item.ID, 1); !errors.Is(errCollect, ErrItemNotAvailable) {
		t.Fatalf("double collect: got %v", errCollect)
	}
	if errWithdraw := service.Withdraw(context.Background(), item.ID, 1); !errors.Is(errWithdraw, ErrItemNotAvailable) {
		t.Fatalf("withdraw after collect: got %v", errWithdraw)
	}
}

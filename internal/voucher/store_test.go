package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/notify"
	"github.com/shopspring/decimal"
)

func TestGetByCodeNormalizesInput(t *testing.T) {
	conn := newTestDB(t)
	recipient := createUser(t, conn, models.RoleRecipient, "recipient@example.org")
	store := NewStore(conn, nil)

	insertVoucher(t, conn, "LOOKUPCODE01", recipient.ID, 10, models.VoucherActive, futureDate(5))

	voucher, errGet := store.GetByCode(context.Background(), "  lookupcode01 ")
	if errGet != nil {
		t.Fatalf("get by code: %v", errGet)
	}
	if voucher.Code != "LOOKUPCODE01" {
		t.Fatalf("wrong voucher: %s", voucher.Code)
	}

	if _, errGet = store.GetByCode(context.Background(), ""); !errors.Is(errGet, ErrVoucherNotFound) {
		t.Fatalf("empty code: got %v", errGet)
	}
	if _, errGet = store.GetByCode(context.Background(), "NOSUCHCODE99"); !errors.Is(errGet, ErrVoucherNotFound) {
		t.Fatalf("unknown code: got %v", errGet)
	}
}

func TestListFilters(t *testing.T) {
	conn := newTestDB(t)
	first := createUser(t, conn, models.RoleRecipient, "first@example.org")
	second := createUser(t, conn, models.RoleRecipient, "second@example.org")
	store := NewStore(conn, nil)

	insertVoucher(t, conn, "LISTAAAA0001", first.ID, 10, models.VoucherActive, futureDate(5))
	insertVoucher(t, conn, "LISTBBBB0002", first.ID, 10, models.VoucherExpired, futureDate(-1))
	insertVoucher(t, conn, "LISTCCCC0003", second.ID, 10, models.VoucherActive, futureDate(5))

	byStatus, errList := store.List(context.Background(), ListFilter{Status: models.VoucherActive})
	if errList != nil {
		t.Fatalf("list by status: %v", errList)
	}
	if len(byStatus) != 2 {
		t.Fatalf("expected 2 active vouchers, got %d", len(byStatus))
	}

	byRecipient, errList := store.List(context.Background(), ListFilter{RecipientID: second.ID})
	if errList != nil {
		t.Fatalf("list by recipient: %v", errList)
	}
	if len(byRecipient) != 1 || byRecipient[0].Code != "LISTCCCC0003" {
		t.Fatalf("recipient filter wrong: %+v", byRecipient)
	}

	byFragment, errList := store.List(context.Background(), ListFilter{CodeLike: "bbbb"})
	if errList != nil {
		t.Fatalf("list by code fragment: %v", errList)
	}
	if len(byFragment) != 1 || byFragment[0].Code != "LISTBBBB0002" {
		t.Fatalf("code fragment filter wrong: %+v", byFragment)
	}
}

func TestReassignTransfersVoucher(t *testing.T) {
	conn := newTestDB(t)
	original := createUser(t, conn, models.RoleRecipient, "original@example.org")
	next := createUser(t, conn, models.RoleRecipient, "next@example.org")
	recorder := &recorderNotifier{}
	store := NewStore(conn, recorder)

	voucher := insertVoucher(t, conn, "REASSIGN0001", original.ID, 35, models.VoucherActive, futureDate(10))

	updated, errReassign := store.Reassign(context.Background(), voucher.ID, next.ID)
	if errReassign != nil {
		t.Fatalf("reassign: %v", errReassign)
	}
	if updated.RecipientID != next.ID || updated.Status != models.VoucherReassigned || updated.ReassignmentCount != 1 {
		t.Fatalf("reassignment state wrong: %+v", updated)
	}
	if updated.OriginalRecipientID != original.ID {
		t.Fatalf("original recipient lost")
	}
	if !updated.Value.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("reassignment moved value")
	}

	var history []models.ReassignmentRecord
	if errDecode := json.Unmarshal(updated.ReassignmentHistory, &history); errDecode != nil {
		t.Fatalf("decode history: %v", errDecode)
	}
	if len(history) != 1 || history[0].FromRecipientID != original.ID || history[0].ToRecipientID != next.ID {
		t.Fatalf("history wrong: %+v", history)
	}

	if events := recorder.byEvent(notify.EventVoucherReassigned); len(events) != 1 || events[0].userID != next.ID {
		t.Fatalf("new holder not notified")
	}

	// A second transfer keeps appending.
	third := createUser(t, conn, models.RoleRecipient, "third@example.org")
	updated, errReassign = store.Reassign(context.Background(), voucher.ID, third.ID)
	if errReassign != nil {
		t.Fatalf("second reassign: %v", errReassign)
	}
	if updated.ReassignmentCount != 2 {
		t.Fatalf("reassignment count = %d, want 2", updated.ReassignmentCount)
	}
	if errDecode := json.Unmarshal(updated.ReassignmentHistory, &history); errDecode != nil {
		t.Fatalf("decode history: %v", errDecode)
	}
	if len(history) != 2 || history[1].FromRecipientID != next.ID {
		t.Fatalf("second record wrong: %+v", history)
	}
}

func TestReassignGuards(t *testing.T) {
	conn := newTestDB(t)
	holder := createUser(t, conn, models.RoleRecipient, "holder@example.org")
	next := createUser(t, conn, models.RoleRecipient, "next@example.org")
	vendor := createUser(t, conn, models.RoleVendor, "vendor@example.org")
	store := NewStore(conn, nil)

	expired := insertVoucher(t, conn, "REASSIGNEXP1", holder.ID, 10, models.VoucherExpired, futureDate(-1))
	active := insertVoucher(t, conn, "REASSIGNACT1", holder.ID, 10, models.VoucherActive, futureDate(10))

	if _, errReassign := store.Reassign(context.Background(), 9999, next.ID); !errors.Is(errReassign, ErrVoucherNotFound) {
		t.Fatalf("unknown voucher: got %v", errReassign)
	}
	if _, errReassign := store.Reassign(context.Background(), expired.ID, next.ID); !errors.Is(errReassign, ErrVoucherNotSpendable) {
		t.Fatalf("expired voucher: got %v", errReassign)
	}
	if _, errReassign := store.Reassign(context.Background(), active.ID, holder.ID); !errors.Is(errReassign, ErrRecipientMismatch) {
		t.Fatalf("same holder: got %v", errReassign)
	}
	if _, errReassign := store.Reassign(context.Background(), active.ID, vendor.ID); !errors.Is(errReassign, ErrRecipientNotFound) {
		t.Fatalf("vendor as recipient: got %v", errReassign)
	}
	if _, errReassign := store.Reassign(context.Background(), active.ID, 9999); !errors.Is(errReassign, ErrRecipientNotFound) {
		t.Fatalf("unknown recipient: got %v", errReassign)
	}
}

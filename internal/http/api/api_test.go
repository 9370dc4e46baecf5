package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Niche-Business/voucher-platform/internal/config"
	dbutil "github.com/Niche-Business/voucher-platform/internal/db"
	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/Niche-Business/voucher-platform/internal/security"
	"github.com/Niche-Business/voucher-platform/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type apiFixture struct {
	conn   *gorm.DB
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Redemption.ApprovalWindowMinutes = 5

	router := NewRouter(Deps{
		DB:     conn,
		Ledger: wallet.NewLedger(conn),
		Config: cfg,
	})
	return &apiFixture{conn: conn, router: router}
}

func (f *apiFixture) createUser(t *testing.T, role models.UserRole, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, Password: "x", Role: role, Active: true}
	if errCreate := f.conn.Create(user).Error; errCreate != nil {
		t.Fatalf("create user %s: %v", email, errCreate)
	}
	return user
}

func (f *apiFixture) request(t *testing.T, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if errEncode := json.NewEncoder(&buf).Encode(body); errEncode != nil {
			t.Fatalf("encode body: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, errToken := security.GenerateToken(testSecret, user.ID, user.Email, string(user.Role), time.Hour)
		if errToken != nil {
			t.Fatalf("mint token: %v", errToken)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), errDecode)
	}
	return out
}

func TestHealthzNeedsNoToken(t *testing.T) {
	f := newAPIFixture(t)
	recorder := f.request(t, nil, http.MethodGet, "/healthz", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", recorder.Code)
	}
}

func TestAPIRejectsMissingAndBadTokens(t *testing.T) {
	f := newAPIFixture(t)

	if recorder := f.request(t, nil, http.MethodGet, "/api/v1/vouchers", nil); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", recorder.Code)
	}
}

func TestVoucherLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.org")
	org := f.createUser(t, models.RoleOrganization, "org@example.org")
	recipient := f.createUser(t, models.RoleRecipient, "recipient@example.org")
	vendor := f.createUser(t, models.RoleVendor, "vendor@example.org")
	shop := &models.Shop{VendorID: vendor.ID, Name: "Corner Shop", Active: true}
	if errCreate := f.conn.Create(shop).Error; errCreate != nil {
		t.Fatalf("create shop: %v", errCreate)
	}

	// Admin funds the organization.
	recorder := f.request(t, admin, http.MethodPost, "/api/v1/wallet/allocate", map[string]any{
		"user_id":   org.ID,
		"amount":    "100.00",
		"reference": "autumn grant",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("allocate status = %d: %s", recorder.Code, recorder.Body.String())
	}

	// Non-admins cannot allocate.
	if recorder = f.request(t, org, http.MethodPost, "/api/v1/wallet/allocate", map[string]any{
		"user_id": org.ID, "amount": "1",
	}); recorder.Code != http.StatusForbidden {
		t.Fatalf("non-admin allocate status = %d", recorder.Code)
	}

	// Organization issues a voucher.
	expiry := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	recorder = f.request(t, org, http.MethodPost, "/api/v1/vouchers", map[string]any{
		"recipient_id": recipient.ID,
		"amount":       "50.00",
		"expiry_date":  expiry,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("issue status = %d: %s", recorder.Code, recorder.Body.String())
	}
	issued := decodeBody(t, recorder)
	code, _ := issued["code"].(string)
	voucherID := uint64(issued["voucher_id"].(float64))
	if code == "" || voucherID == 0 {
		t.Fatalf("issue response incomplete: %v", issued)
	}

	// Anyone holding the code can look the voucher up.
	recorder = f.request(t, vendor, http.MethodGet, "/api/v1/vouchers/"+code, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", recorder.Code)
	}

	// Vendor proposes a deduction.
	recorder = f.request(t, vendor, http.MethodPost, "/api/v1/redemption-requests", map[string]any{
		"shop_id":      shop.ID,
		"voucher_id":   voucherID,
		"recipient_id": recipient.ID,
		"amount":       "30.00",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create request status = %d: %s", recorder.Code, recorder.Body.String())
	}
	created := decodeBody(t, recorder)
	requestID := uint64(created["request_id"].(float64))

	// A second pending request is refused.
	if recorder = f.request(t, vendor, http.MethodPost, "/api/v1/redemption-requests", map[string]any{
		"shop_id": shop.ID, "voucher_id": voucherID, "recipient_id": recipient.ID, "amount": "5.00",
	}); recorder.Code != http.StatusConflict {
		t.Fatalf("duplicate request status = %d", recorder.Code)
	}

	// Recipient approves.
	recorder = f.request(t, recipient, http.MethodPost,
		fmt.Sprintf("/api/v1/redemption-requests/%d/respond", requestID),
		map[string]any{"action": "approve"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", recorder.Code, recorder.Body.String())
	}
	settled := decodeBody(t, recorder)
	if settled["remaining_balance"] != "20.00" {
		t.Fatalf("remaining balance = %v", settled["remaining_balance"])
	}

	// Another recipient cannot answer someone else's request.
	if recorder = f.request(t, vendor, http.MethodPost,
		fmt.Sprintf("/api/v1/redemption-requests/%d/respond", requestID),
		map[string]any{"action": "approve"}); recorder.Code != http.StatusForbidden {
		t.Fatalf("foreign respond status = %d", recorder.Code)
	}

	// Vendor sees the credit in their ledger.
	recorder = f.request(t, vendor, http.MethodGet, "/api/v1/wallet/transactions", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("transactions status = %d", recorder.Code)
	}
	ledger := decodeBody(t, recorder)
	entries, _ := ledger["transactions"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 vendor ledger entry, got %d", len(entries))
	}

	// The books balance end to end.
	recorder = f.request(t, admin, http.MethodGet, "/api/v1/wallet/reconciliation", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("reconciliation status = %d", recorder.Code)
	}
	report := decodeBody(t, recorder)
	reconciliation, _ := report["reconciliation"].(map[string]any)
	if reconciliation["balanced"] != true {
		t.Fatalf("books do not balance: %v", reconciliation)
	}
}

func TestSurplusLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	vendor := f.createUser(t, models.RoleVendor, "vendor@example.org")
	recipient := f.createUser(t, models.RoleRecipient, "recipient@example.org")

	now := time.Now().UTC()
	recorder := f.request(t, vendor, http.MethodPost, "/api/v1/surplus", map[string]any{
		"shop_id":       1,
		"name":          "Day-old bread",
		"quantity":      4,
		"collect_from":  now.Format(time.RFC3339),
		"collect_until": now.Add(3 * time.Hour).Format(time.RFC3339),
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("post status = %d: %s", recorder.Code, recorder.Body.String())
	}
	posted := decodeBody(t, recorder)
	itemID := uint64(posted["item_id"].(float64))

	recorder = f.request(t, recipient, http.MethodGet, "/api/v1/surplus", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list status = %d", recorder.Code)
	}
	listed := decodeBody(t, recorder)
	items, _ := listed["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 available item, got %d", len(items))
	}

	recorder = f.request(t, recipient, http.MethodPost, fmt.Sprintf("/api/v1/surplus/%d/collected", itemID), nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("non-vendor collect status = %d", recorder.Code)
	}
	recorder = f.request(t, vendor, http.MethodPost, fmt.Sprintf("/api/v1/surplus/%d/collected", itemID), nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("collect status = %d: %s", recorder.Code, recorder.Body.String())
	}
	recorder = f.request(t, vendor, http.MethodPost, fmt.Sprintf("/api/v1/surplus/%d/withdraw", itemID), nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("withdraw after collect status = %d", recorder.Code)
	}
}

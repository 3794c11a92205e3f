package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Employee{}, &models.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPendingCardOrder(t *testing.T, db *gorm.DB) models.Order {
	t.Helper()
	product := models.Product{Name: "Premium Package", Price: 150000, Cost: 90000, IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	order := models.Order{
		ProductID:     product.ID,
		Quantity:      2,
		TotalAmount:   300000,
		PaymentType:   models.PaymentTypeCard,
		Status:        models.OrderStatusPendingPayment,
		CustomerName:  "Kim",
		CustomerEmail: "kim@example.com",
		CustomerPhone: "010-0000-0000",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("order: %v", err)
	}
	return order
}

type fakeGateway struct {
	calls    int
	lastRef  string
	failWith *GatewayError
}

func (f *fakeGateway) Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (*Confirmation, error) {
	f.calls++
	f.lastRef = orderRef
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &Confirmation{
		Method: "카드",
		Raw:    map[string]interface{}{"method": "카드", "totalAmount": amount},
	}, nil
}

func newConfirmRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payment-confirm", h.ConfirmPayment)
	return r
}

func postConfirm(t *testing.T, r *gin.Engine, paymentKey, orderRef string, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"paymentKey":%q,"orderId":%q,"amount":%d}`, paymentKey, orderRef, amount)
	req := httptest.NewRequest(http.MethodPost, "/payment-confirm", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db := setupPaymentTestDB(t)
	order := seedPendingCardOrder(t, db)
	gateway := &fakeGateway{}
	h := NewHandler(db, nil, gateway, "test_ck")
	r := newConfirmRouter(h)

	ref := BuildOrderReference(order.ID, order.CreatedAt)

	// First invocation confirms and completes.
	w := postConfirm(t, r, "pk_live_1", ref, 300000)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var first map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["status"] != "success" {
		t.Fatalf("expected success, got %v", first)
	}
	if gateway.lastRef != ref {
		t.Errorf("gateway must receive the original reference, got %q", gateway.lastRef)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != models.OrderStatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
	if stored.PaymentKey == nil || *stored.PaymentKey != "pk_live_1" {
		t.Errorf("payment key not stored: %+v", stored.PaymentKey)
	}
	if stored.PaymentMethod == nil || *stored.PaymentMethod != "카드" {
		t.Errorf("payment method must come from the gateway response, got %+v", stored.PaymentMethod)
	}
	if stored.PaymentDate == nil {
		t.Error("payment date not stamped")
	}

	// Second invocation short-circuits: no second gateway call, no mutation.
	w = postConfirm(t, r, "pk_live_1", ref, 300000)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", w.Code)
	}
	var second map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second["status"] != "already_completed" {
		t.Fatalf("expected already_completed, got %v", second)
	}
	if gateway.calls != 1 {
		t.Errorf("gateway must be called exactly once, got %d", gateway.calls)
	}
}

func TestConfirmPaymentGatewayRejectionLeavesOrderPending(t *testing.T) {
	db := setupPaymentTestDB(t)
	order := seedPendingCardOrder(t, db)
	gateway := &fakeGateway{failWith: &GatewayError{Code: "NOT_ENOUGH_BALANCE", Message: "잔액이 부족합니다."}}
	h := NewHandler(db, nil, gateway, "test_ck")
	r := newConfirmRouter(h)

	w := postConfirm(t, r, "pk_live_2", BuildOrderReference(order.ID, order.CreatedAt), 300000)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The gateway's message is propagated verbatim.
	if body["error"] != "잔액이 부족합니다." {
		t.Errorf("unexpected error body: %v", body)
	}
	if body["code"] != "NOT_ENOUGH_BALANCE" {
		t.Errorf("expected raw code in body: %v", body)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != models.OrderStatusPendingPayment {
		t.Errorf("order must stay pending after rejection, got %s", stored.Status)
	}
	if stored.PaymentKey != nil {
		t.Error("payment key must not be stored on failure")
	}
}

func TestConfirmPaymentMissingParameters(t *testing.T) {
	db := setupPaymentTestDB(t)
	h := NewHandler(db, nil, &fakeGateway{}, "test_ck")
	r := newConfirmRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/payment-confirm", strings.NewReader(`{"paymentKey":"pk"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing parameters, got %d", w.Code)
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	db := setupPaymentTestDB(t)
	gateway := &fakeGateway{}
	h := NewHandler(db, nil, gateway, "test_ck")
	r := newConfirmRouter(h)

	w := postConfirm(t, r, "pk", BuildOrderReference(9999, time.Now()), 1000)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if gateway.calls != 0 {
		t.Errorf("gateway must not be called for an unknown order")
	}
}

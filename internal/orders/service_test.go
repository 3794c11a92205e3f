package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
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

func seedProduct(t *testing.T, db *gorm.DB) models.Product {
	t.Helper()
	product := models.Product{Name: "Starter Kit", Price: 50000, Cost: 20000, IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return product
}

func seedOrder(t *testing.T, db *gorm.DB, productID int64, paymentType, status string) models.Order {
	t.Helper()
	order := models.Order{
		ProductID:     productID,
		Quantity:      1,
		TotalAmount:   50000,
		PaymentType:   paymentType,
		Status:        status,
		CustomerName:  "Lee",
		CustomerEmail: "lee@example.com",
		CustomerPhone: "010-1111-2222",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("order: %v", err)
	}
	return order
}

func TestCreateOrderFixesTotalFromCurrentPrice(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)
	s := NewService(db)

	order, err := s.Create(context.Background(), CreateInput{
		ProductID:     product.ID,
		Quantity:      3,
		PaymentType:   models.PaymentTypeBankTransfer,
		CustomerName:  "Park",
		CustomerEmail: "park@example.com",
		CustomerPhone: "010-3333-4444",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.TotalAmount != 150000 {
		t.Errorf("expected total 150000, got %d", order.TotalAmount)
	}
	if order.Status != models.OrderStatusPendingPayment {
		t.Errorf("expected pending_payment, got %s", order.Status)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)
	s := NewService(db)

	var ve *ValidationError
	_, err := s.Create(context.Background(), CreateInput{
		ProductID: product.ID, Quantity: 0, PaymentType: models.PaymentTypeCard,
		CustomerName: "A", CustomerEmail: "a@b.c", CustomerPhone: "010",
	})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for zero quantity, got %v", err)
	}

	_, err = s.Create(context.Background(), CreateInput{
		ProductID: product.ID, Quantity: 1, PaymentType: "crypto",
		CustomerName: "A", CustomerEmail: "a@b.c", CustomerPhone: "010",
	})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for bad payment type, got %v", err)
	}

	_, err = s.Create(context.Background(), CreateInput{
		ProductID: product.ID, Quantity: 1, PaymentType: models.PaymentTypeCard,
		CustomerName: "", CustomerEmail: "a@b.c", CustomerPhone: "010",
	})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}
}

func TestConfirmBankTransferTransitions(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)
	s := NewService(db)
	order := seedOrder(t, db, product.ID, models.PaymentTypeBankTransfer, models.OrderStatusPendingPayment)

	confirmed, err := s.ConfirmBankTransfer(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.OrderStatusCompleted {
		t.Errorf("expected completed, got %s", confirmed.Status)
	}
	if confirmed.PaymentID == nil || len(*confirmed.PaymentID) == 0 {
		t.Error("expected a locally generated payment id")
	}
	if confirmed.PaymentDate == nil {
		t.Error("expected a payment date stamp")
	}

	// Confirming again is rejected as already processed, never re-run.
	if _, err := s.ConfirmBankTransfer(context.Background(), order.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestConfirmBankTransferRejectsCardOrders(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)
	s := NewService(db)
	order := seedOrder(t, db, product.ID, models.PaymentTypeCard, models.OrderStatusPendingPayment)

	if _, err := s.ConfirmBankTransfer(context.Background(), order.ID); !errors.Is(err, ErrWrongPaymentType) {
		t.Errorf("expected ErrWrongPaymentType, got %v", err)
	}
}

func TestNoBackwardTransitionsFromTerminalStates(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)
	s := NewService(db)

	completed := seedOrder(t, db, product.ID, models.PaymentTypeBankTransfer, models.OrderStatusCompleted)
	cancelled := seedOrder(t, db, product.ID, models.PaymentTypeBankTransfer, models.OrderStatusCancelled)

	for _, id := range []int64{completed.ID, cancelled.ID} {
		if _, err := s.ConfirmBankTransfer(context.Background(), id); !errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("confirm on terminal order %d: expected ErrAlreadyProcessed, got %v", id, err)
		}
		if _, err := s.Cancel(context.Background(), id); !errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("cancel on terminal order %d: expected ErrAlreadyProcessed, got %v", id, err)
		}
	}

	var check models.Order
	if err := db.First(&check, completed.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if check.Status != models.OrderStatusCompleted {
		t.Errorf("terminal state must never revert, got %s", check.Status)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	s := NewService(db)
	if _, err := s.Cancel(context.Background(), 12345); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	base := models.Order{PaymentType: models.PaymentTypeBankTransfer, Status: models.OrderStatusPendingPayment}

	old := base
	old.CreatedAt = now.Add(-25 * time.Hour)
	if !IsExpired(&old, now) {
		t.Error("25 hour old pending bank transfer must be flagged expired")
	}

	fresh := base
	fresh.CreatedAt = now.Add(-23 * time.Hour)
	if IsExpired(&fresh, now) {
		t.Error("23 hour old pending bank transfer must not be flagged")
	}

	card := old
	card.PaymentType = models.PaymentTypeCard
	if IsExpired(&card, now) {
		t.Error("expiry applies to bank transfers only")
	}

	done := old
	done.Status = models.OrderStatusCompleted
	if IsExpired(&done, now) {
		t.Error("completed orders are never expired")
	}
}

func TestLegacyPendingStatusIsNormalized(t *testing.T) {
	db := setupOrderTestDB(t)
	product := seedProduct(t, db)

	order := models.Order{
		ProductID:     product.ID,
		Quantity:      1,
		TotalAmount:   50000,
		PaymentType:   models.PaymentTypeCard,
		Status:        "pending",
		CustomerName:  "Old",
		CustomerEmail: "old@example.com",
		CustomerPhone: "010",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != models.OrderStatusPendingPayment {
		t.Errorf("legacy pending must normalize to pending_payment, got %s", stored.Status)
	}
}

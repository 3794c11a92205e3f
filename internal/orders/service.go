package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
)

// BankTransferExpiry is how long a pending bank-transfer order may sit
// before admin views flag it as overdue. Advisory only: nothing cancels the
// order automatically, an admin has to act.
const BankTransferExpiry = 24 * time.Hour

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyProcessed = errors.New("order already processed")
	ErrWrongPaymentType = errors.New("operation not allowed for this payment type")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	ProductID       int64
	EmployeeID      *int64
	Quantity        int32
	PaymentType     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	ImageURLs       []string
}

// Create opens a new order in pending_payment for either payment path. The
// total is fixed here from the product's current price and never changes
// afterwards.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}
	if input.CustomerName == "" || input.CustomerEmail == "" || input.CustomerPhone == "" {
		return nil, &ValidationError{Field: "customer", Reason: "name, email and phone are required"}
	}
	if input.PaymentType != models.PaymentTypeCard && input.PaymentType != models.PaymentTypeBankTransfer {
		return nil, &ValidationError{Field: "payment_type", Reason: "must be card or bank_transfer"}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", input.ProductID, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d not found or inactive", input.ProductID)
		}
		return nil, err
	}

	order := models.Order{
		ProductID:       input.ProductID,
		EmployeeID:      input.EmployeeID,
		Quantity:        input.Quantity,
		TotalAmount:     product.Price * int64(input.Quantity),
		PaymentType:     input.PaymentType,
		Status:          models.OrderStatusPendingPayment,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		CustomerAddress: input.CustomerAddress,
		ImageURLs:       input.ImageURLs,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.Product = &product
	return &order, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Product").Preload("Employee").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) List(ctx context.Context, status string) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Product").Preload("Employee").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ConfirmBankTransfer is the admin-side completion of a manual transfer.
// The transition runs as a single conditional update so a double click (or
// two admins) cannot complete the same order twice. The payment id is
// generated locally, it is not a gateway artifact.
func (s *Service) ConfirmBankTransfer(ctx context.Context, id int64) (*models.Order, error) {
	now := time.Now()
	paymentID := fmt.Sprintf("PAY_%d", now.UnixMilli())

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_type = ?",
			id, models.OrderStatusPendingPayment, models.PaymentTypeBankTransfer).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"payment_id":   paymentID,
			"payment_date": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.explainRejectedTransition(ctx, id, models.PaymentTypeBankTransfer)
	}
	return s.Get(ctx, id)
}

// Cancel moves a pending order of either payment type to cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (*models.Order, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPendingPayment).
		Update("status", models.OrderStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.explainRejectedTransition(ctx, id, "")
	}
	return s.Get(ctx, id)
}

// explainRejectedTransition distinguishes a missing order from a terminal
// one (surfaced as "already processed" rather than silently ignored) and
// from a payment-type mismatch.
func (s *Service) explainRejectedTransition(ctx context.Context, id int64, wantType string) error {
	var order models.Order
	err := s.db.WithContext(ctx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderStatusPendingPayment {
		return ErrAlreadyProcessed
	}
	if wantType != "" && order.PaymentType != wantType {
		return ErrWrongPaymentType
	}
	return ErrAlreadyProcessed
}

// IsExpired reports whether a pending bank-transfer order has outlived the
// 24 hour window, evaluated lazily from the creation timestamp.
func IsExpired(o *models.Order, now time.Time) bool {
	return o.PaymentType == models.PaymentTypeBankTransfer &&
		o.Status == models.OrderStatusPendingPayment &&
		now.Sub(o.CreatedAt) >= BankTransferExpiry
}

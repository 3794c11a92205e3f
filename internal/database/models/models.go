package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Order statuses. The legacy generic "pending" from the first checkout
// iteration is normalized to pending_payment on write, see Order.BeforeSave.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"

	orderStatusLegacyPending = "pending"
)

const (
	PaymentTypeCard         = "card"
	PaymentTypeBankTransfer = "bank_transfer"
)

type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return fmt.Errorf("failed to scan StringArray: %v", value)
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// User is a login identity for the admin console or an employee portal.
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Name      string `gorm:"not null"`
	Role      string `gorm:"type:varchar(16);not null;default:'employee'"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

// Employee is a salesperson whose orders and sales roll up into commission.
// Inactive employees keep their historical records but cannot be attached
// to new offline sales.
type Employee struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	EmployeeCode string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	Email        string
	Phone        string
	UserID       *int64     `gorm:"index"`
	IsActive     bool       `gorm:"default:true"`
	CreatedAt    *time.Time `gorm:"autoCreateTime"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null"`
	Price       int64  `gorm:"not null"`
	Cost        int64  `gorm:"not null"`
	Description string `gorm:"type:text"`
	ImageURL    *string
	IsActive    bool       `gorm:"default:true"`
	CreatedAt   *time.Time `gorm:"autoCreateTime"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime"`
}

// Order is one online checkout attempt, card or bank transfer. TotalAmount
// is fixed at creation (unit price x quantity) and never recomputed.
// Cancellation is a status, rows are never deleted by normal flow.
type Order struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	ProductID       int64  `gorm:"index;not null"`
	EmployeeID      *int64 `gorm:"index"`
	Quantity        int32  `gorm:"not null"`
	TotalAmount     int64  `gorm:"not null"`
	PaymentType     string `gorm:"type:varchar(16);not null"`
	Status          string `gorm:"type:varchar(24);index;not null;default:'pending_payment'"`
	CustomerName    string `gorm:"not null"`
	CustomerEmail   string `gorm:"not null"`
	CustomerPhone   string `gorm:"not null"`
	CustomerAddress string
	ImageURLs       StringArray `gorm:"type:text"`

	// Gateway correlation fields. PaymentKey doubles as the idempotency
	// marker for the card path: a non-null key means the gateway has
	// already been told the charge is confirmed.
	PaymentKey    *string `gorm:"type:varchar(200)"`
	PaymentMethod *string `gorm:"type:varchar(32)"`
	PaymentID     *string `gorm:"type:varchar(64)"`
	PaymentDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Product  *Product  `gorm:"foreignKey:ProductID"`
	Employee *Employee `gorm:"foreignKey:EmployeeID"`
}

func (o *Order) BeforeSave(tx *gorm.DB) error {
	if o.Status == orderStatusLegacyPending {
		o.Status = OrderStatusPendingPayment
	}
	return nil
}

// Sale is an offline transaction entered by staff, always final. SalePrice
// and SaleCost are snapshots taken at entry time so later product price
// changes never rewrite historical figures.
type Sale struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	EmployeeID int64     `gorm:"index;not null"`
	ProductID  int64     `gorm:"index;not null"`
	SaleDate   time.Time `gorm:"index;not null"`
	Quantity   int32     `gorm:"not null"`
	SalePrice  int64     `gorm:"not null"`
	SaleCost   int64     `gorm:"not null"`
	CreatedAt  *time.Time `gorm:"autoCreateTime"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime"`

	Employee *Employee `gorm:"foreignKey:EmployeeID"`
	Product  *Product  `gorm:"foreignKey:ProductID"`
}

// Commission is the persisted payout row, one per employee per calendar
// month. Created lazily the first time a payout is toggled.
type Commission struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	EmployeeID      int64  `gorm:"not null;uniqueIndex:idx_commissions_employee_month"`
	YearMonth       string `gorm:"type:varchar(7);not null;uniqueIndex:idx_commissions_employee_month"`
	TotalSales      int64  `gorm:"not null"`
	TotalCost       int64  `gorm:"not null"`
	SalesCount      int32  `gorm:"not null"`
	BaseCommission  string `gorm:"type:decimal(18,2);not null"`
	BonusCommission string `gorm:"type:decimal(18,2);not null"`
	TotalCommission string `gorm:"type:decimal(18,2);not null"`
	IsPaid          bool   `gorm:"default:false"`
	PaidDate        *time.Time
	CreatedAt       *time.Time `gorm:"autoCreateTime"`
	UpdatedAt       *time.Time `gorm:"autoUpdateTime"`

	Employee *Employee `gorm:"foreignKey:EmployeeID"`
}

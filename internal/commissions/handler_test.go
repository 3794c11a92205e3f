package commissions

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

func setupCommissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Employee{}, &models.Product{}, &models.Order{}, &models.Sale{}, &models.Commission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedMonthFixtures sets up one employee with, in July 2025: one offline
// sale, one completed online order, and one pending order of the same
// amount that must never count.
func seedMonthFixtures(t *testing.T, db *gorm.DB) models.Employee {
	t.Helper()
	employee := models.Employee{EmployeeCode: "EMP001", Name: "Choi", IsActive: true}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("employee: %v", err)
	}
	product := models.Product{Name: "Deluxe Set", Price: 200000, Cost: 80000, IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}

	sale := models.Sale{
		EmployeeID: employee.ID,
		ProductID:  product.ID,
		SaleDate:   time.Date(2025, 7, 10, 0, 0, 0, 0, time.Local),
		Quantity:   2,
		SalePrice:  180000, // snapshot differs from the current price on purpose
		SaleCost:   70000,
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("sale: %v", err)
	}

	midJuly := time.Date(2025, 7, 15, 12, 0, 0, 0, time.Local)
	completed := models.Order{
		ProductID:     product.ID,
		EmployeeID:    &employee.ID,
		Quantity:      1,
		TotalAmount:   200000,
		PaymentType:   models.PaymentTypeCard,
		Status:        models.OrderStatusCompleted,
		CustomerName:  "Buyer A",
		CustomerEmail: "a@example.com",
		CustomerPhone: "010",
		CreatedAt:     midJuly,
	}
	if err := db.Create(&completed).Error; err != nil {
		t.Fatalf("completed order: %v", err)
	}

	pending := completed
	pending.ID = 0
	pending.Status = models.OrderStatusPendingPayment
	pending.CustomerName = "Buyer B"
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("pending order: %v", err)
	}

	return employee
}

func TestBuildReportCountsEachSourceOnce(t *testing.T) {
	db := setupCommissionTestDB(t)
	employee := seedMonthFixtures(t, db)
	h := NewHandler(db, nil)

	report, err := h.buildReport(context.Background(), "2025-07")
	if err != nil {
		t.Fatalf("buildReport: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}

	row := report.Rows[0]
	if row.Employee.ID != employee.ID {
		t.Errorf("unexpected employee: %+v", row.Employee)
	}
	// Offline 2 x 180,000 (snapshot) + online 200,000, pending excluded.
	if row.TotalSales != 560000 {
		t.Errorf("expected total sales 560000, got %d", row.TotalSales)
	}
	if row.SalesCount != 2 {
		t.Errorf("expected 2 records (one each), got %d", row.SalesCount)
	}
	// Offline cost at snapshot 2 x 70,000, online at current cost 80,000.
	if row.TotalCost != 220000 {
		t.Errorf("expected total cost 220000, got %d", row.TotalCost)
	}
	if row.TotalCommission != "140000" {
		t.Errorf("expected commission 140000 (25%%), got %s", row.TotalCommission)
	}
	if row.HasBonus {
		t.Error("560,000 is below the bonus threshold")
	}
	if row.IsPaid || row.CommissionID != nil {
		t.Error("no payout row should exist before the first toggle")
	}
}

func TestTogglePaidFindOrCreate(t *testing.T) {
	db := setupCommissionTestDB(t)
	employee := seedMonthFixtures(t, db)
	h := NewHandler(db, nil)

	// First toggle creates the row, paid.
	first, err := h.togglePaid(context.Background(), employee.ID, "2025-07")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !first.IsPaid || first.PaidDate == nil {
		t.Errorf("expected paid row with date, got %+v", first)
	}
	if first.TotalSales != 560000 {
		t.Errorf("expected figures captured at toggle time, got %d", first.TotalSales)
	}

	// Second toggle flips in place, keeping one row per (employee, month).
	second, err := h.togglePaid(context.Background(), employee.ID, "2025-07")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if second.IsPaid || second.PaidDate != nil {
		t.Errorf("expected unpaid row with cleared date, got %+v", second)
	}
	if second.ID != first.ID {
		t.Errorf("toggle must update in place, got ids %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&models.Commission{}).
		Where("employee_id = ? AND year_month = ?", employee.ID, "2025-07").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row per employee/month, got %d", count)
	}
}

func TestTogglePaidWithoutSalesFails(t *testing.T) {
	db := setupCommissionTestDB(t)
	employee := seedMonthFixtures(t, db)
	h := NewHandler(db, nil)

	if _, err := h.togglePaid(context.Background(), employee.ID, "2025-01"); err == nil {
		t.Error("expected an error toggling a month with no sales")
	}
}

func TestGetMonthlyReportEndpoint(t *testing.T) {
	db := setupCommissionTestDB(t)
	seedMonthFixtures(t, db)
	h := NewHandler(db, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/commissions", h.GetMonthlyReport)

	req := httptest.NewRequest(http.MethodGet, "/commissions?month=2025-07", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total_sales":560000`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	var envelope struct {
		Success bool          `json:"success"`
		Data    MonthlyReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || envelope.Data.Month != "2025-07" {
		t.Errorf("unexpected envelope: %+v", envelope)
	}
}

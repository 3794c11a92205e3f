package commissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

const (
	COMMISSION_REPORT_CACHE_PREFIX = "commission_report:"
	CACHE_TTL_SHORT                = 5 * time.Minute
)

type Handler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHandler(db *gorm.DB, redisClient *redis.Client) *Handler {
	return &Handler{
		db:    db,
		redis: redisClient,
	}
}

type EmployeeSummary struct {
	ID           int64  `json:"id"`
	EmployeeCode string `json:"employee_code"`
	Name         string `json:"name"`
}

type ReportRow struct {
	Employee        EmployeeSummary `json:"employee"`
	TotalSales      int64           `json:"total_sales"`
	TotalCost       int64           `json:"total_cost"`
	SalesCount      int32           `json:"sales_count"`
	BaseCommission  string          `json:"base_commission"`
	BonusCommission string          `json:"bonus_commission"`
	TotalCommission string          `json:"total_commission"`
	HasBonus        bool            `json:"has_bonus"`
	IsPaid          bool            `json:"is_paid"`
	PaidDate        *time.Time      `json:"paid_date,omitempty"`
	CommissionID    *int64          `json:"commission_id,omitempty"`
}

type MonthlyReport struct {
	Month           string      `json:"month"`
	Rows            []ReportRow `json:"rows"`
	TotalSales      int64       `json:"total_sales"`
	TotalCommission string      `json:"total_commission"`
	PaidCount       int         `json:"paid_count"`
}

// MonthRange turns "2025-07" into the half-open [start, end) window of that
// calendar month.
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// monthlyEntries loads everything commissionable in the window: offline
// sales at their snapshotted price/cost, plus completed online orders at
// their fixed total and the current product cost. Pending and cancelled
// orders never count.
func (h *Handler) monthlyEntries(ctx context.Context, start, end time.Time) ([]Entry, error) {
	var sales []models.Sale
	if err := h.db.WithContext(ctx).
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	var orders []models.Order
	if err := h.db.WithContext(ctx).
		Preload("Product").
		Where("created_at >= ? AND created_at < ? AND status = ? AND employee_id IS NOT NULL",
			start, end, models.OrderStatusCompleted).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	entries := make([]Entry, 0, len(sales)+len(orders))
	for _, s := range sales {
		empID := s.EmployeeID
		entries = append(entries, Entry{
			EmployeeID: &empID,
			Amount:     s.SalePrice * int64(s.Quantity),
			Cost:       s.SaleCost * int64(s.Quantity),
		})
	}
	for _, o := range orders {
		var cost int64
		if o.Product != nil {
			cost = o.Product.Cost * int64(o.Quantity)
		}
		entries = append(entries, Entry{
			EmployeeID: o.EmployeeID,
			Amount:     o.TotalAmount,
			Cost:       cost,
		})
	}
	return entries, nil
}

func (h *Handler) buildReport(ctx context.Context, month string) (*MonthlyReport, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	entries, err := h.monthlyEntries(ctx, start, end)
	if err != nil {
		return nil, err
	}
	figures := Calculate(entries)

	ids := make([]int64, 0, len(figures))
	for _, f := range figures {
		ids = append(ids, f.EmployeeID)
	}

	employees := map[int64]models.Employee{}
	if len(ids) > 0 {
		var emps []models.Employee
		if err := h.db.WithContext(ctx).Where("id IN ?", ids).Find(&emps).Error; err != nil {
			return nil, fmt.Errorf("failed to load employees: %w", err)
		}
		for _, e := range emps {
			employees[e.ID] = e
		}
	}

	var payouts []models.Commission
	if err := h.db.WithContext(ctx).Where("year_month = ?", month).Find(&payouts).Error; err != nil {
		return nil, fmt.Errorf("failed to load commission payouts: %w", err)
	}
	payoutByEmployee := map[int64]models.Commission{}
	for _, p := range payouts {
		payoutByEmployee[p.EmployeeID] = p
	}

	report := &MonthlyReport{Month: month, Rows: []ReportRow{}}
	totalCommission := figuresTotal(figures)
	for _, f := range figures {
		row := ReportRow{
			TotalSales:      f.TotalSales,
			TotalCost:       f.TotalCost,
			SalesCount:      f.SalesCount,
			BaseCommission:  f.BaseCommission.String(),
			BonusCommission: f.BonusCommission.String(),
			TotalCommission: f.TotalCommission.String(),
			HasBonus:        f.HasBonus,
		}
		if emp, ok := employees[f.EmployeeID]; ok {
			row.Employee = EmployeeSummary{ID: emp.ID, EmployeeCode: emp.EmployeeCode, Name: emp.Name}
		} else {
			row.Employee = EmployeeSummary{ID: f.EmployeeID}
		}
		if p, ok := payoutByEmployee[f.EmployeeID]; ok {
			id := p.ID
			row.IsPaid = p.IsPaid
			row.PaidDate = p.PaidDate
			row.CommissionID = &id
			if p.IsPaid {
				report.PaidCount++
			}
		}
		report.TotalSales += f.TotalSales
		report.Rows = append(report.Rows, row)
	}
	report.TotalCommission = totalCommission
	return report, nil
}

func figuresTotal(figures []*Figures) string {
	total := decimal.Zero
	for _, f := range figures {
		total = total.Add(f.TotalCommission)
	}
	return total.String()
}

// GetMonthlyReport serves GET /commissions?month=YYYY-MM, redis-cached.
func (h *Handler) GetMonthlyReport(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}

	cacheKey := COMMISSION_REPORT_CACHE_PREFIX + month
	if h.redis != nil {
		if cached, err := h.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var report MonthlyReport
			if json.Unmarshal([]byte(cached), &report) == nil {
				c.JSON(http.StatusOK, utils.SuccessResponse("Commission report retrieved (cached)", report))
				return
			}
		}
	}

	report, err := h.buildReport(c.Request.Context(), month)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}

	if h.redis != nil {
		if payload, err := json.Marshal(report); err == nil {
			_ = h.redis.Set(c.Request.Context(), cacheKey, payload, CACHE_TTL_SHORT).Err()
		}
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Commission report retrieved successfully", report))
}

type TogglePaidRequest struct {
	EmployeeID int64  `json:"employee_id" binding:"required"`
	Month      string `json:"month" binding:"required"`
}

// TogglePaid flips the payout flag for one (employee, month). The row is
// created lazily on first toggle, carrying the figures computed at that
// moment.
func (h *Handler) TogglePaid(c *gin.Context) {
	var req TogglePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("employee_id and month are required"))
		return
	}

	commission, err := h.togglePaid(c.Request.Context(), req.EmployeeID, req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}

	h.invalidateReportCache(c.Request.Context(), req.Month)
	c.JSON(http.StatusOK, utils.SuccessResponse("Payout status updated successfully", commission))
}

func (h *Handler) togglePaid(ctx context.Context, employeeID int64, month string) (*models.Commission, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	var commission models.Commission
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found := tx.Where("employee_id = ? AND year_month = ?", employeeID, month).First(&commission)
		if found.Error != nil && !errors.Is(found.Error, gorm.ErrRecordNotFound) {
			return found.Error
		}

		if errors.Is(found.Error, gorm.ErrRecordNotFound) {
			entries, err := h.monthlyEntries(ctx, start, end)
			if err != nil {
				return err
			}
			var figure *Figures
			for _, f := range Calculate(entries) {
				if f.EmployeeID == employeeID {
					figure = f
					break
				}
			}
			if figure == nil {
				return fmt.Errorf("no sales for employee %d in %s", employeeID, month)
			}

			now := time.Now()
			commission = models.Commission{
				EmployeeID:      employeeID,
				YearMonth:       month,
				TotalSales:      figure.TotalSales,
				TotalCost:       figure.TotalCost,
				SalesCount:      figure.SalesCount,
				BaseCommission:  figure.BaseCommission.String(),
				BonusCommission: figure.BonusCommission.String(),
				TotalCommission: figure.TotalCommission.String(),
				IsPaid:          true,
				PaidDate:        &now,
			}
			return tx.Create(&commission).Error
		}

		updates := map[string]interface{}{"is_paid": !commission.IsPaid}
		if !commission.IsPaid {
			updates["paid_date"] = time.Now()
		} else {
			updates["paid_date"] = nil
		}
		if err := tx.Model(&models.Commission{}).Where("id = ?", commission.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&commission, commission.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

type PayAllRequest struct {
	Month string `json:"month" binding:"required"`
}

// PayAll marks every employee with sales in the month as paid, creating
// missing rows along the way. Already-paid rows are left untouched.
func (h *Handler) PayAll(c *gin.Context) {
	var req PayAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("month is required"))
		return
	}

	start, end, err := MonthRange(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}

	entries, err := h.monthlyEntries(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	paid := 0
	now := time.Now()
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, f := range Calculate(entries) {
			var existing models.Commission
			found := tx.Where("employee_id = ? AND year_month = ?", f.EmployeeID, req.Month).First(&existing)
			if found.Error != nil && !errors.Is(found.Error, gorm.ErrRecordNotFound) {
				return found.Error
			}
			if errors.Is(found.Error, gorm.ErrRecordNotFound) {
				row := models.Commission{
					EmployeeID:      f.EmployeeID,
					YearMonth:       req.Month,
					TotalSales:      f.TotalSales,
					TotalCost:       f.TotalCost,
					SalesCount:      f.SalesCount,
					BaseCommission:  f.BaseCommission.String(),
					BonusCommission: f.BonusCommission.String(),
					TotalCommission: f.TotalCommission.String(),
					IsPaid:          true,
					PaidDate:        &now,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				paid++
				continue
			}
			if !existing.IsPaid {
				if err := tx.Model(&models.Commission{}).Where("id = ?", existing.ID).
					Updates(map[string]interface{}{"is_paid": true, "paid_date": now}).Error; err != nil {
					return err
				}
				paid++
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	h.invalidateReportCache(c.Request.Context(), req.Month)
	c.JSON(http.StatusOK, utils.SuccessResponse("All commissions marked as paid", gin.H{"paid_count": paid}))
}

func (h *Handler) invalidateReportCache(ctx context.Context, month string) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, COMMISSION_REPORT_CACHE_PREFIX+month).Err()
}

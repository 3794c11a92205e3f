package reports

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"salesdesk-system/internal/commissions"
	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type DashboardQuery struct {
	Start string `form:"start,omitempty"`
	End   string `form:"end,omitempty"`
}

// GetDashboard serves the admin landing summary. The window is
// closed-inclusive on whole days; it defaults to the current month.
// Unassigned completed orders are included in the totals here.
func (h *Handler) GetDashboard(c *gin.Context) {
	var q DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query"))
		return
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)
	if q.Start != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q.Start, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid start date, expected YYYY-MM-DD"))
			return
		}
		start = parsed
	}
	if q.End != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q.End, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid end date, expected YYYY-MM-DD"))
			return
		}
		end = parsed.AddDate(0, 0, 1)
	}

	ctx := c.Request.Context()

	var sales []models.Sale
	if err := h.db.WithContext(ctx).Preload("Product").Preload("Employee").
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Order("sale_date DESC").
		Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	var completedOrders []models.Order
	if err := h.db.WithContext(ctx).Preload("Product").
		Where("created_at >= ? AND created_at < ? AND status = ?", start, end, models.OrderStatusCompleted).
		Find(&completedOrders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	summary := Summarize(sales, completedOrders)

	// Active headcount is global, not bounded by the date window.
	var activeEmployees int64
	if err := h.db.WithContext(ctx).Model(&models.Employee{}).
		Where("is_active = ?", true).Count(&activeEmployees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	recent := sales
	if len(recent) > 5 {
		recent = recent[:5]
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Dashboard retrieved successfully", gin.H{
		"summary":          summary,
		"active_employees": activeEmployees,
		"recent_sales":     recent,
	}))
}

type StatisticsQuery struct {
	Period string `form:"period,default=6months"`
}

var periodMonths = map[string]int{
	"1month":   1,
	"3months":  3,
	"6months":  6,
	"12months": 12,
}

// GetStatistics serves the offline-sales trend charts: monthly totals,
// per-product totals, and the top ten employees. Amounts use the price
// snapshot captured at sale time.
func (h *Handler) GetStatistics(c *gin.Context) {
	var q StatisticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query"))
		return
	}

	months, ok := periodMonths[q.Period]
	if !ok {
		months = 6
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -(months - 1), 0)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, 0)

	var sales []models.Sale
	if err := h.db.WithContext(c.Request.Context()).Preload("Product").Preload("Employee").
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	monthly := map[string]int64{}
	byProduct := map[string]int64{}
	byEmployee := map[string]int64{}
	for _, s := range sales {
		amount := s.SalePrice * int64(s.Quantity)
		monthly[s.SaleDate.Format("2006-01")] += amount
		if s.Product != nil {
			byProduct[s.Product.Name] += amount
		}
		if s.Employee != nil {
			byEmployee[s.Employee.Name] += amount
		}
	}

	trend := make([]gin.H, 0, months)
	for i := 0; i < months; i++ {
		m := start.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, gin.H{"month": m, "total": monthly[m]})
	}

	products := make([]namedTotal, 0, len(byProduct))
	for name, total := range byProduct {
		products = append(products, namedTotal{name, total})
	}
	employees := make([]namedTotal, 0, len(byEmployee))
	for name, total := range byEmployee {
		employees = append(employees, namedTotal{name, total})
	}
	sortNamedTotals(products)
	sortNamedTotals(employees)
	if len(employees) > 10 {
		employees = employees[:10]
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Statistics retrieved successfully", gin.H{
		"trend":     trend,
		"products":  products,
		"employees": employees,
	}))
}

type namedTotal struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

func sortNamedTotals(items []namedTotal) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Total != items[j].Total {
			return items[i].Total > items[j].Total
		}
		return items[i].Name < items[j].Name
	})
}

// GetEmployeeDashboard serves one employee's month: the merged online plus
// offline feed, totals, and the single display-rounded commission figure.
// Online orders count only when completed, filtered by creation timestamp;
// offline sales filter by sale_date.
func (h *Handler) GetEmployeeDashboard(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid employee ID"))
		return
	}

	month := c.Query("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	start, end, err := commissions.MonthRange(month)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()

	var employee models.Employee
	if err := h.db.WithContext(ctx).First(&employee, employeeID).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Employee not found"))
		return
	}

	var sales []models.Sale
	if err := h.db.WithContext(ctx).Preload("Product").
		Where("employee_id = ? AND sale_date >= ? AND sale_date < ?", employeeID, start, end).
		Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	var completedOrders []models.Order
	if err := h.db.WithContext(ctx).Preload("Product").
		Where("employee_id = ? AND created_at >= ? AND created_at < ? AND status = ?",
			employeeID, start, end, models.OrderStatusCompleted).
		Find(&completedOrders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	var totalSales, totalCost int64
	for _, s := range sales {
		totalSales += s.SalePrice * int64(s.Quantity)
		totalCost += s.SaleCost * int64(s.Quantity)
	}
	for _, o := range completedOrders {
		totalSales += o.TotalAmount
		if o.Product != nil {
			totalCost += o.Product.Cost * int64(o.Quantity)
		}
	}

	figure := commissions.CalculateOne(employeeID, totalSales, totalCost, int32(len(sales)+len(completedOrders)))

	c.JSON(http.StatusOK, utils.SuccessResponse("Employee dashboard retrieved successfully", gin.H{
		"employee":      gin.H{"id": employee.ID, "name": employee.Name, "employee_code": employee.EmployeeCode},
		"month":         month,
		"total_sales":   totalSales,
		"online_count":  len(completedOrders),
		"offline_count": len(sales),
		// The only place a commission figure is rounded: the standalone
		// monthly display value, to the nearest whole KRW.
		"monthly_commission": figure.TotalCommission.Round(0).IntPart(),
		"has_bonus":          figure.HasBonus,
		"feed":               MergeFeed(sales, completedOrders),
	}))
}

package sales

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type CreateSaleRequest struct {
	EmployeeID int64  `json:"employee_id" binding:"required"`
	ProductID  int64  `json:"product_id" binding:"required"`
	SaleDate   string `json:"sale_date" binding:"required"`
	Quantity   int32  `json:"quantity" binding:"required,min=1"`
}

type ListSalesQuery struct {
	StartDate  string `form:"start_date,omitempty"`
	EndDate    string `form:"end_date,omitempty"`
	EmployeeID *int64 `form:"employee_id,omitempty"`
}

// CreateSale records an offline sale. The product's price and cost are
// snapshotted onto the row so later catalog edits never alter historical
// figures. Inactive employees cannot take new sales.
func (h *Handler) CreateSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sale payload: "+err.Error()))
		return
	}

	saleDate, err := time.ParseInLocation("2006-01-02", req.SaleDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sale_date, expected YYYY-MM-DD"))
		return
	}

	ctx := c.Request.Context()

	var employee models.Employee
	if err := h.db.WithContext(ctx).First(&employee, req.EmployeeID).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Employee not found"))
		return
	}
	if !employee.IsActive {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Inactive employees cannot record new sales"))
		return
	}

	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, req.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Product not found"))
		return
	}

	sale := models.Sale{
		EmployeeID: req.EmployeeID,
		ProductID:  req.ProductID,
		SaleDate:   saleDate,
		Quantity:   req.Quantity,
		SalePrice:  product.Price,
		SaleCost:   product.Cost,
	}
	if err := h.db.WithContext(ctx).Create(&sale).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create sale"))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Sale recorded successfully", sale))
}

func (h *Handler) ListSales(c *gin.Context) {
	var q ListSalesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query"))
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Preload("Employee").Preload("Product").
		Order("sale_date DESC")
	if q.StartDate != "" {
		start, err := time.ParseInLocation("2006-01-02", q.StartDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid start_date"))
			return
		}
		query = query.Where("sale_date >= ?", start)
	}
	if q.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", q.EndDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid end_date"))
			return
		}
		query = query.Where("sale_date < ?", end.AddDate(0, 0, 1))
	}
	if q.EmployeeID != nil {
		query = query.Where("employee_id = ?", *q.EmployeeID)
	}

	var sales []models.Sale
	if err := query.Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Sales retrieved successfully", sales))
}

type UpdateSaleRequest struct {
	SaleDate *string `json:"sale_date,omitempty"`
	Quantity *int32  `json:"quantity,omitempty"`
}

// UpdateSale edits date or quantity only. The price/cost snapshot is fixed
// at entry time and never rewritten.
func (h *Handler) UpdateSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sale ID"))
		return
	}

	var req UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid payload"))
		return
	}

	updates := map[string]interface{}{}
	if req.SaleDate != nil {
		saleDate, err := time.ParseInLocation("2006-01-02", *req.SaleDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sale_date"))
			return
		}
		updates["sale_date"] = saleDate
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Quantity must be positive"))
			return
		}
		updates["quantity"] = *req.Quantity
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Nothing to update"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Sale{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(res.Error.Error()))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Sale not found"))
		return
	}

	var sale models.Sale
	if err := h.db.WithContext(c.Request.Context()).Preload("Employee").Preload("Product").First(&sale, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Sale updated successfully", sale))
}

func (h *Handler) DeleteSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sale ID"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Delete(&models.Sale{}, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Sale not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(res.Error.Error()))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Sale not found"))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Sale deleted successfully", nil))
}

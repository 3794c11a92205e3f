package employees

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

type Handler struct {
	db *gorm.DB
	// serviceKey gates credential-reset; empty disables the endpoint.
	serviceKey string
}

func NewHandler(db *gorm.DB, serviceKey string) *Handler {
	return &Handler{db: db, serviceKey: serviceKey}
}

type CreateEmployeeRequest struct {
	EmployeeCode string `json:"employee_code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	UserID       *int64 `json:"user_id,omitempty"`
}

type UpdateEmployeeRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ListEmployeesQuery struct {
	IsActive *bool `form:"is_active,omitempty"`
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid employee payload: "+err.Error()))
		return
	}

	employee := models.Employee{
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		UserID:       req.UserID,
		IsActive:     true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&employee).Error; err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Failed to create employee (duplicate code?)"))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Employee created successfully", employee))
}

func (h *Handler) ListEmployees(c *gin.Context) {
	var q ListEmployeesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query"))
		return
	}

	query := h.db.WithContext(c.Request.Context()).Order("employee_code")
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Employees retrieved successfully", employees))
}

func (h *Handler) GetEmployee(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid employee ID"))
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(c.Request.Context()).First(&employee, id).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Employee not found"))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Employee retrieved successfully", employee))
}

// UpdateEmployee also handles deactivation. Deactivated employees keep all
// historical sales and commission rows; they only stop taking new sales.
func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid employee ID"))
		return
	}

	var req UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid payload"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Nothing to update"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Employee{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(res.Error.Error()))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Employee not found"))
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(c.Request.Context()).First(&employee, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Employee updated successfully", employee))
}

type ResetCredentialRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetCredential resets the linked login's password. It requires the
// elevated service key; without one configured the endpoint degrades to 503
// instead of the server refusing to start.
func (h *Handler) ResetCredential(c *gin.Context) {
	if h.serviceKey == "" {
		c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Credential reset is not configured on this deployment"))
		return
	}
	if c.GetHeader("X-Service-Key") != h.serviceKey {
		c.JSON(http.StatusForbidden, utils.ErrorResponse("Invalid service key"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid employee ID"))
		return
	}

	var req ResetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("new_password of at least 8 characters is required"))
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(c.Request.Context()).First(&employee, id).Error; err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Employee not found"))
		return
	}
	if employee.UserID == nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Employee has no linked login"))
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to hash password"))
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", *employee.UserID).Update("password", hashed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Credential reset successfully", nil))
}

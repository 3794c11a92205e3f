package orders

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"salesdesk-system/internal/database/models"
	"salesdesk-system/internal/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type CreateOrderRequest struct {
	ProductID       int64    `json:"product_id" binding:"required"`
	EmployeeID      *int64   `json:"employee_id,omitempty"`
	Quantity        int32    `json:"quantity" binding:"required,min=1"`
	PaymentType     string   `json:"payment_type" binding:"required,oneof=card bank_transfer"`
	CustomerName    string   `json:"customer_name" binding:"required"`
	CustomerEmail   string   `json:"customer_email" binding:"required,email"`
	CustomerPhone   string   `json:"customer_phone" binding:"required"`
	CustomerAddress string   `json:"customer_address,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
}

type ListOrdersQuery struct {
	Status string `form:"status,omitempty"`
}

// OrderView decorates an order with the lazy expiry flag so the admin list
// can tell an overdue bank transfer from a fresh one.
type OrderView struct {
	models.Order
	IsExpired bool `json:"is_expired"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order payload: "+err.Error()))
		return
	}

	order, err := h.service.Create(c.Request.Context(), CreateInput{
		ProductID:       req.ProductID,
		EmployeeID:      req.EmployeeID,
		Quantity:        req.Quantity,
		PaymentType:     req.PaymentType,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		ImageURLs:       req.ImageURLs,
	})
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse(ve.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Order created successfully", order))
}

// GetOrder backs the success page read-back: the page displays whatever is
// persisted, not what the client thinks happened.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID"))
		return
	}

	order, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Order retrieved successfully", order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid query"))
		return
	}

	list, err := h.service.List(c.Request.Context(), q.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
		return
	}

	now := time.Now()
	views := make([]OrderView, 0, len(list))
	var pending, completed, cancelled int
	for i := range list {
		o := list[i]
		views = append(views, OrderView{Order: o, IsExpired: IsExpired(&o, now)})
		switch o.Status {
		case models.OrderStatusPendingPayment:
			pending++
		case models.OrderStatusCompleted:
			completed++
		case models.OrderStatusCancelled:
			cancelled++
		}
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Orders retrieved successfully", gin.H{
		"orders": views,
		"counts": gin.H{
			"pending_payment": pending,
			"completed":       completed,
			"cancelled":       cancelled,
		},
	}))
}

func (h *Handler) ConfirmBankTransfer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID"))
		return
	}

	order, err := h.service.ConfirmBankTransfer(c.Request.Context(), id)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Bank transfer confirmed, order completed", order))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID"))
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Order cancelled", order))
}

func (h *Handler) writeTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found"))
	case errors.Is(err, ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, utils.ErrorResponse("Order already processed"))
	case errors.Is(err, ErrWrongPaymentType):
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Operation not allowed for this payment type"))
	default:
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse(err.Error()))
	}
}

package payments

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"salesdesk-system/internal/database/models"
)

const (
	// PAYMENT_INFLIGHT_PREFIX keys the server-side duplicate-suppression
	// marker, one per order reference. The marker only prevents a second
	// non-idempotent gateway call; the conditional update below is the
	// authoritative guard.
	PAYMENT_INFLIGHT_PREFIX = "payment_inflight:"
	inflightTTL             = 30 * time.Second
	duplicateRecheckDelay   = time.Second
)

type Handler struct {
	db        *gorm.DB
	redis     *redis.Client
	gateway   Gateway
	clientKey string
}

func NewHandler(db *gorm.DB, redisClient *redis.Client, gateway Gateway, clientKey string) *Handler {
	return &Handler{
		db:       db,
		redis:    redisClient,
		gateway:  gateway,
		clientKey: clientKey,
	}
}

type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey" binding:"required"`
	OrderID    string `json:"orderId" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
}

// ConfirmPayment is the return-redirect endpoint for the card path. It must
// stay safe under duplicate and concurrent invocation for the same order:
// the gateway confirm call is not idempotent on the remote side and must
// never be issued twice.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentKey, orderId and amount are required"})
		return
	}

	ctx := c.Request.Context()

	orderID, err := ParseOrderReference(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	if err := h.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}

	// Idempotency short-circuit: a completed status or a stored payment key
	// means the gateway has already been told. No second call, no mutation.
	if order.Status == models.OrderStatusCompleted || order.PaymentKey != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "already_completed",
			"message": "이미 처리된 주문입니다.",
		})
		return
	}

	acquired := h.acquireInflight(ctx, req.OrderID)
	if !acquired {
		// Another confirmation for the same reference may still be in
		// flight. Wait briefly and report whatever state it left behind
		// instead of re-issuing the gateway call.
		time.Sleep(duplicateRecheckDelay)
		var recheck models.Order
		if err := h.db.WithContext(ctx).First(&recheck, orderID).Error; err == nil &&
			(recheck.Status == models.OrderStatusCompleted || recheck.PaymentKey != nil) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "already_completed",
				"message": "이미 처리된 주문입니다.",
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "payment confirmation already in progress"})
		return
	}
	defer h.releaseInflight(context.Background(), req.OrderID)

	// The gateway receives the original untruncated reference; only local
	// lookups use the parsed numeric id.
	confirmation, err := h.gateway.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			log.Printf("payment-confirm: gateway rejected order %d: %s (%s)", orderID, gwErr.Message, gwErr.Code)
			c.JSON(http.StatusBadRequest, gin.H{"error": gwErr.Message, "code": gwErr.Code})
			return
		}
		log.Printf("payment-confirm: gateway call failed for order %d: %v", orderID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	res := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_key IS NULL",
			orderID, models.OrderStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCompleted,
			"payment_key":    req.PaymentKey,
			"payment_method": confirmation.Method,
			"payment_date":   now,
		})
	if res.Error != nil {
		// The charge is confirmed remotely but not recorded locally. This
		// is the one failure that cannot simply be retried without risking
		// a double charge, so it is logged apart from everything else.
		log.Printf("CRITICAL payment-confirm: gateway confirmed order %d (key %s) but local update failed: %v",
			orderID, req.PaymentKey, res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment confirmed but order update failed, contact support"})
		return
	}
	if res.RowsAffected == 0 {
		// A concurrent attempt won the conditional update after our guard
		// check. Treated as a no-op success.
		c.JSON(http.StatusOK, gin.H{
			"status":  "already_completed",
			"message": "이미 처리된 주문입니다.",
		})
		return
	}

	body := gin.H{"status": "success"}
	for k, v := range confirmation.Raw {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// PaymentFail maps a gateway failure code for the failure view. The order is
// untouched; it stays pending and eligible for retry or cancellation.
func (h *Handler) PaymentFail(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		code = "UNKNOWN_ERROR"
	}
	message := c.Query("message")
	if message == "" {
		message = DescribeFailure("UNKNOWN_ERROR")
	}

	c.JSON(http.StatusOK, gin.H{
		"code":        code,
		"message":     message,
		"description": DescribeFailure(code),
	})
}

// CheckoutConfig hands the browser the public gateway key plus the order
// reference it should present to the gateway widget.
func (h *Handler) CheckoutConfig(c *gin.Context) {
	ref := ""
	if idParam := c.Query("order_id"); idParam != "" {
		var order models.Order
		if err := h.db.WithContext(c.Request.Context()).First(&order, idParam).Error; err == nil {
			ref = BuildOrderReference(order.ID, order.CreatedAt)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"client_key":      h.clientKey,
		"order_reference": ref,
	})
}

func (h *Handler) acquireInflight(ctx context.Context, orderRef string) bool {
	if h.redis == nil {
		return true
	}
	ok, err := h.redis.SetNX(ctx, PAYMENT_INFLIGHT_PREFIX+orderRef, "1", inflightTTL).Result()
	if err != nil {
		// Redis being down must not block payments; the conditional update
		// still guarantees a single transition.
		log.Printf("payment-confirm: inflight marker unavailable: %v", err)
		return true
	}
	return ok
}

func (h *Handler) releaseInflight(ctx context.Context, orderRef string) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, PAYMENT_INFLIGHT_PREFIX+orderRef).Err()
}

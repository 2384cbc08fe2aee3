package controller

import (
	"net/http"

	"github.com/eternaldev/recipe-backend/internal/app/service"
	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CreatePaymentIntentRequest uses the configured currency when none is given.
type CreatePaymentIntentRequest struct {
	Currency string `json:"currency" binding:"omitempty,len=3,alpha"`
}

type PaymentIntentResponse struct {
	OrderID      uint   `json:"order_id"`
	PaymentID    uint   `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

// CreatePaymentIntent checks out the caller's cart
// POST /api/v1/payments/intent/
func (ctrl *PaymentController) CreatePaymentIntent(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentIntentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid payment intent request", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
			return
		}
	}

	result, err := ctrl.paymentService.CreatePaymentIntent(c.Request.Context(), userID, req.Currency)
	if err != nil {
		respondServiceError(c, log, err, "create payment intent", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	log.Info("Payment intent created", map[string]interface{}{
		"user_id":    userID,
		"order_id":   result.Order.ID,
		"payment_id": result.Payment.ID,
		"amount":     formatMoney(result.Payment.Amount),
	})

	c.JSON(http.StatusCreated, PaymentIntentResponse{
		OrderID:      result.Order.ID,
		PaymentID:    result.Payment.ID,
		ClientSecret: result.ClientSecret,
		Amount:       formatMoney(result.Payment.Amount),
		Currency:     result.Payment.Currency,
	})
}

// ConfirmPayment syncs the order with the provider's view of its payment
// POST /api/v1/payments/:order_id/confirm/
func (ctrl *PaymentController) ConfirmPayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, ok := pathID(c, "order_id", "order")
	if !ok {
		return
	}

	order, err := ctrl.paymentService.ConfirmPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		respondServiceError(c, log, err, "confirm payment", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return
	}

	log.Info("Payment confirmation processed", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// ListOrders
// GET /api/v1/orders/
func (ctrl *PaymentController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orders, err := ctrl.paymentService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "list orders", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	results := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		results = append(results, newOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// GetOrder
// GET /api/v1/orders/:id/
func (ctrl *PaymentController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orderID, ok := pathID(c, "id", "order")
	if !ok {
		return
	}

	order, err := ctrl.paymentService.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondServiceError(c, log, err, "fetch order", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eternaldev/recipe-backend/internal/app/service"
	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

var errorCodes = []struct {
	err     error
	code    string
	message string
}{
	{service.ErrInvalidQuantity, apperrors.ValidationInvalidQuantity, "Quantity must be between 1 and 999"},
	{service.ErrInvalidRating, apperrors.ReviewInvalidRating, "Rating must be between 1 and 5"},
	{service.ErrInvalidRecipe, apperrors.RecipeInvalid, "Recipe fields are invalid"},
	{service.ErrCategoryNotFound, apperrors.CategoryNotFound, "Category not found"},
	{service.ErrRecipeNotFound, apperrors.RecipeNotFound, "Recipe not found"},
	{service.ErrCartItemNotFound, apperrors.CartItemNotFound, "Cart item not found"},
	{service.ErrReviewNotFound, apperrors.ReviewNotFound, "Review not found"},
	{service.ErrOrderNotFound, apperrors.OrderNotFound, "Order not found"},
	{service.ErrReviewForbidden, apperrors.AuthzOwnerOnly, "Only the author can change this review"},
	{service.ErrEmptyCart, apperrors.CartEmpty, "Cart is empty"},
	{service.ErrPaymentAlreadyProcessed, apperrors.PaymentAlreadyProcessed, "Payment has already been processed"},
	{service.ErrReviewAlreadyExists, apperrors.ReviewAlreadyExists, "You have already reviewed this recipe"},
	{service.ErrPaymentProviderUnavailable, apperrors.PaymentProviderError, "Payment provider is unavailable"},
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:  http.StatusBadRequest,
	service.KindNotFound:    http.StatusNotFound,
	service.KindForbidden:   http.StatusForbidden,
	service.KindConflict:    http.StatusConflict,
	service.KindUnavailable: http.StatusBadGateway,
}

// respondServiceError maps err by kind. Internal errors are logged with
// action and fields and answered with a generic 500.
func respondServiceError(c *gin.Context, log *logger.Logger, err error, action string, fields map[string]interface{}) {
	if status, known := kindStatus[service.KindOf(err)]; known {
		for _, e := range errorCodes {
			if errors.Is(err, e.err) {
				log.Warn("Request rejected: "+action, mergeFields(fields, map[string]interface{}{
					"error": err.Error(),
					"code":  e.code,
				}))
				apperrors.RespondWithError(c, status, e.code, e.message)
				return
			}
		}
	}

	log.Error("Failed to "+action, err, fields)
	apperrors.InternalError(c, "Failed to "+action)
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// requireUserID writes a 401 and returns false when the request is anonymous.
func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// pathID parses a positive uint path parameter or writes a 400.
func pathID(c *gin.Context, name, label string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid "+label+" ID format", map[string]interface{}{
			name: raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+label+" ID")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

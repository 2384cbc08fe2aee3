package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe code and message derived from an internal error
type ErrorInfo struct {
	Code    string // see codes.go
	Message string
}

// ParseError turns database and transport errors into a code and message
// that can be shown to clients without leaking driver details.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong. Please try again later",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// unique violation (23505)
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errStrLower, "duplicate key") ||
		strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower, context)
	}

	// foreign key violation (23503)
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStrLower, context)
	}

	// not-null violation (23502)
	if strings.Contains(errStrLower, "violates not-null constraint") || strings.Contains(errStrLower, "not null constraint failed") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	// check violation (23514)
	if strings.Contains(errStrLower, "check constraint") {
		return parseCheckConstraintError(errStrLower)
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "An upstream service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errStr string, context string) ErrorInfo {
	switch {
	case strings.Contains(errStr, "idx_review_recipe_user"):
		return ErrorInfo{Code: ReviewAlreadyExists, Message: "You have already reviewed this recipe"}
	case strings.Contains(errStr, "idx_cart_recipe"):
		return ErrorInfo{Code: ResourceConflict, Message: "This recipe is already in your cart"}
	case strings.Contains(errStr, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This email is already registered"}
	case strings.Contains(errStr, "username"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This username is already taken"}
	case strings.Contains(errStr, "categories") || context == "category":
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A category with this name already exists"}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "This resource already exists",
	}
}

func parseForeignKeyError(errStr string, context string) ErrorInfo {
	switch {
	case strings.Contains(errStr, "recipe"):
		return ErrorInfo{Code: RecipeNotFound, Message: "Recipe not found"}
	case strings.Contains(errStr, "categor"):
		return ErrorInfo{Code: ResourceNotFound, Message: "Category not found"}
	case strings.Contains(errStr, "order"):
		return ErrorInfo{Code: OrderNotFound, Message: "Order not found"}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: getNotFoundMessage(context),
	}
}

func parseCheckConstraintError(errStr string) ErrorInfo {
	switch {
	case strings.Contains(errStr, "chk_reviews_rating"), strings.Contains(errStr, "rating"):
		return ErrorInfo{Code: ReviewInvalidRating, Message: "Rating must be between 1 and 5"}
	case strings.Contains(errStr, "chk_cart_items_quantity"), strings.Contains(errStr, "quantity"):
		return ErrorInfo{Code: ValidationInvalidQuantity, Message: "Quantity must be at least 1"}
	}

	return ErrorInfo{
		Code:    ValidationInvalidRange,
		Message: "A value is out of the allowed range",
	}
}

func getNotFoundMessage(context string) string {
	switch context {
	case "recipe":
		return "Recipe not found"
	case "category":
		return "Category not found"
	case "cart", "cart item":
		return "Cart item not found"
	case "review":
		return "Review not found"
	case "order":
		return "Order not found"
	case "payment":
		return "Payment not found"
	case "user":
		return "User not found"
	}
	return "Resource not found"
}

func getDefaultErrorMessage(context string) string {
	if context == "" {
		return "Something went wrong. Please try again later"
	}
	return "Failed to process " + context + ". Please try again later"
}

// StatusFor maps an ErrorInfo code onto the HTTP status it is served with.
func StatusFor(code string) int {
	switch code {
	case ResourceNotFound, RecipeNotFound, CartItemNotFound, ReviewNotFound, OrderNotFound:
		return http.StatusNotFound
	case ResourceAlreadyExists, ResourceConflict, ReviewAlreadyExists, CartEmpty, PaymentAlreadyProcessed:
		return http.StatusConflict
	case ValidationInvalidInput, ValidationInvalidID, ValidationInvalidQuantity, ValidationInvalidRange,
		ValidationRequired, ReviewInvalidRating:
		return http.StatusBadRequest
	case AuthUnauthorized, AuthTokenExpired, AuthTokenInvalid:
		return http.StatusUnauthorized
	case AuthzForbidden, AuthzOwnerOnly, AuthzRoleNotFound:
		return http.StatusForbidden
	case InternalExternalAPI, PaymentProviderError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ParseAndRespond parses err and writes it with the status matching its code.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, context string) {
	errInfo := ParseError(err, context)
	c.JSON(StatusFor(errInfo.Code), ErrorResponse{
		Error:   errInfo.Code,
		Message: errInfo.Message,
	})
}

package controller

import (
	"net/http"

	"github.com/eternaldev/recipe-backend/internal/app/service"
	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// AddToCartRequest leaves quantity range checks to the service; an omitted
// quantity means one.
type AddToCartRequest struct {
	RecipeID uint `json:"recipe_id" binding:"required"`
	Quantity *int `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the caller's cart, creating it on first access
// GET /api/v1/cart/
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	summary, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	log.Info("Cart fetched successfully", map[string]interface{}{
		"user_id":     userID,
		"lines":       len(summary.Cart.Items),
		"total_price": formatMoney(summary.TotalPrice),
	})

	c.JSON(http.StatusOK, newCartResponse(summary))
}

// AddToCart adds a recipe or merges into its existing line
// POST /api/v1/cart/items/
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, created, err := ctrl.cartService.AddItem(c.Request.Context(), userID, req.RecipeID, quantity)
	if err != nil {
		respondServiceError(c, log, err, "add item to cart", map[string]interface{}{
			"user_id":   userID,
			"recipe_id": req.RecipeID,
			"quantity":  quantity,
		})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	log.Info("Item added to cart successfully", map[string]interface{}{
		"user_id":      userID,
		"recipe_id":    req.RecipeID,
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
		"created":      created,
	})

	c.JSON(status, newCartItemResponse(item))
}

// UpdateCartItem sets the quantity of one line
// PATCH|PUT /api/v1/cart/items/:id/
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	itemID, ok := pathID(c, "id", "cart item")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
			"error":        err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	item, err := ctrl.cartService.UpdateItemQuantity(c.Request.Context(), userID, itemID, *req.Quantity)
	if err != nil {
		respondServiceError(c, log, err, "update cart item", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return
	}

	log.Info("Cart item updated successfully", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
		"quantity":     item.Quantity,
	})

	c.JSON(http.StatusOK, newCartItemResponse(item))
}

// RemoveFromCart deletes one line
// DELETE /api/v1/cart/items/:id/
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	itemID, ok := pathID(c, "id", "cart item")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		respondServiceError(c, log, err, "remove cart item", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return
	}

	log.Info("Cart item removed successfully", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})

	c.Status(http.StatusNoContent)
}

// ClearCart removes every line
// DELETE /api/v1/cart/clear/
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	removed, err := ctrl.cartService.ClearCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "clear cart", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	log.Info("Cart cleared successfully", map[string]interface{}{
		"user_id": userID,
		"removed": removed,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"removed": removed,
	})
}

// GetCartCount returns the number of units in the cart
// GET /api/v1/cart/count/
func (ctrl *CartController) GetCartCount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	count, err := ctrl.cartService.ItemCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "count cart items", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}

// DeleteUserCart removes a user's cart and its lines (Admin only)
// DELETE /api/v1/admin/users/:user_id/cart/
func (ctrl *CartController) DeleteUserCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := pathID(c, "user_id", "user")
	if !ok {
		return
	}

	if err := ctrl.cartService.DeleteCart(c.Request.Context(), userID); err != nil {
		respondServiceError(c, log, err, "delete cart", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	adminID, _ := middleware.GetUserID(c)
	log.Info("Cart deleted by admin", map[string]interface{}{
		"user_id":  userID,
		"admin_id": adminID,
	})

	c.Status(http.StatusNoContent)
}

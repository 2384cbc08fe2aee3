package service

import (
	"context"
	"errors"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxItemQuantity bounds a single cart line, merged quantities included.
const MaxItemQuantity = 999

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be between 1 and 999")
)

func validQuantity(quantity int) bool {
	return quantity > 0 && quantity <= MaxItemQuantity
}

// CartSummary is a cart with its derived totals.
type CartSummary struct {
	Cart       *model.Cart
	TotalPrice decimal.Decimal
	ItemCount  int
}

type CartService interface {
	GetOrCreateCart(ctx context.Context, userID uint) (*model.Cart, error)
	GetCart(ctx context.Context, userID uint) (*CartSummary, error)
	// AddItem merges into an existing line for the same recipe; created is
	// false when it did.
	AddItem(ctx context.Context, userID, recipeID uint, quantity int) (item *model.CartItem, created bool, err error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uint) error
	ClearCart(ctx context.Context, userID uint) (int64, error)
	ItemCount(ctx context.Context, userID uint) (int, error)
	DeleteCart(ctx context.Context, userID uint) error
}

type cartService struct {
	db         *gorm.DB
	cartRepo   repository.CartRepository
	recipeRepo repository.RecipeRepository
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	recipeRepo repository.RecipeRepository,
) CartService {
	return &cartService{
		db:         db,
		cartRepo:   cartRepo,
		recipeRepo: recipeRepo,
	}
}

func (s *cartService) GetOrCreateCart(ctx context.Context, userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to get or create cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartSummary, error) {
	if _, err := s.GetOrCreateCart(ctx, userID); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.FindWithItemsByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to load cart items", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	summary := &CartSummary{
		Cart:       cart,
		TotalPrice: cart.TotalPrice(),
		ItemCount:  cart.ItemCount(),
	}

	logger.Debug("Cart fetched", map[string]interface{}{
		"user_id":     userID,
		"cart_id":     cart.ID,
		"lines":       len(cart.Items),
		"item_count":  summary.ItemCount,
		"total_price": summary.TotalPrice.String(),
	})
	return summary, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, recipeID uint, quantity int) (*model.CartItem, bool, error) {
	if !validQuantity(quantity) {
		logger.Warn("Rejected cart add with out of range quantity", map[string]interface{}{
			"user_id":   userID,
			"recipe_id": recipeID,
			"quantity":  quantity,
		})
		return nil, false, ErrInvalidQuantity
	}

	recipe, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: recipe not found", map[string]interface{}{
				"user_id":   userID,
				"recipe_id": recipeID,
			})
			return nil, false, ErrRecipeNotFound
		}
		logger.Error("Failed to fetch recipe", err, map[string]interface{}{
			"recipe_id": recipeID,
		})
		return nil, false, err
	}

	var stored *model.CartItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		cart, err := carts.GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}

		stored, err = carts.UpsertItem(ctx, cart.ID, recipe.ID, quantity, recipe.Price)
		if err != nil {
			return err
		}
		if stored.Quantity > MaxItemQuantity {
			return ErrInvalidQuantity
		}
		return carts.Touch(ctx, cart.ID)
	})
	if errors.Is(err, ErrInvalidQuantity) {
		logger.Warn("Rejected cart add that would exceed the line limit", map[string]interface{}{
			"user_id":   userID,
			"recipe_id": recipeID,
			"quantity":  quantity,
		})
		return nil, false, err
	}
	if err != nil {
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":   userID,
			"recipe_id": recipeID,
		})
		return nil, false, err
	}

	stored.Recipe = *recipe
	created := stored.Quantity == quantity

	logger.Info("Item added to cart", map[string]interface{}{
		"user_id":      userID,
		"recipe_id":    recipeID,
		"cart_item_id": stored.ID,
		"quantity":     stored.Quantity,
		"created":      created,
	})
	return stored, created, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*model.CartItem, error) {
	if !validQuantity(quantity) {
		logger.Warn("Rejected cart update with out of range quantity", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
			"quantity":     quantity,
		})
		return nil, ErrInvalidQuantity
	}

	var updated *model.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		cart, err := carts.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartItemNotFound
			}
			return err
		}

		rows, err := carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrCartItemNotFound
		}

		updated, err = carts.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		return carts.Touch(ctx, cart.ID)
	})
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			logger.Warn("Cart item not found for update", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": itemID,
			})
			return nil, err
		}
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return nil, err
	}

	logger.Info("Cart item quantity updated", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})
	return updated, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		logger.Error("Failed to find cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	rows, err := s.cartRepo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.Warn("Cart item not found for removal", map[string]interface{}{
			"user_id":      userID,
			"cart_item_id": itemID,
		})
		return ErrCartItemNotFound
	}

	if err := s.cartRepo.Touch(ctx, cart.ID); err != nil {
		return err
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})
	return nil
}

// ClearCart never creates a cart; a user without one has nothing to clear.
func (s *cartService) ClearCart(ctx context.Context, userID uint) (int64, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		logger.Error("Failed to find cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, err
	}

	removed, err := s.cartRepo.DeleteItems(ctx, cart.ID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if err := s.cartRepo.Touch(ctx, cart.ID); err != nil {
			return 0, err
		}
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
		"removed": removed,
	})
	return removed, nil
}

func (s *cartService) ItemCount(ctx context.Context, userID uint) (int, error) {
	total, err := s.cartRepo.SumQuantityByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// DeleteCart removes the items and then the cart itself.
func (s *cartService) DeleteCart(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		cart, err := carts.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if _, err := carts.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		return carts.Delete(ctx, cart.ID)
	})
	if err != nil {
		logger.Error("Failed to delete cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Info("Cart deleted", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

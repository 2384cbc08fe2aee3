package repository

import (
	"context"
	"time"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) CartRepository

	GetOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindWithItemsByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	Touch(ctx context.Context, cartID uint) error
	Delete(ctx context.Context, cartID uint) error

	UpsertItem(ctx context.Context, cartID, recipeID uint, quantity int, unitPrice decimal.Decimal) (*model.CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uint, quantity int) (int64, error)
	DeleteItem(ctx context.Context, cartID, itemID uint) (int64, error)
	DeleteItems(ctx context.Context, cartID uint) (int64, error)
	DeductItem(ctx context.Context, cartID, recipeID uint, quantity int) error
	SumQuantityByUserID(ctx context.Context, userID uint) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

// GetOrCreateByUserID relies on the unique user_id index so concurrent first
// accesses converge on a single cart row.
func (r *cartRepository) GetOrCreateByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	db := r.db.WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&model.Cart{UserID: userID}).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	var cart model.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		logger.Error("Failed to load cart after create", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart resolved for user", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": userID,
	})
	return &cart, nil
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindWithItemsByUserID loads the cart with items in insertion order, each
// with its recipe and category.
func (r *cartRepository) FindWithItemsByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart with items in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id ASC")
		}).
		Preload("Items.Recipe").
		Preload("Items.Recipe.Category").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}

	logger.Debug("Cart found in database", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": userID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

func (r *cartRepository) Touch(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
}

func (r *cartRepository) Delete(ctx context.Context, cartID uint) error {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.WithContext(ctx).Delete(&model.Cart{}, cartID).Error; err != nil {
		logger.Error("Failed to delete cart from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

// UpsertItem inserts a line or adds quantity to the existing line for the
// same recipe in one statement. The stored unit price is never overwritten.
func (r *cartRepository) UpsertItem(ctx context.Context, cartID, recipeID uint, quantity int, unitPrice decimal.Decimal) (*model.CartItem, error) {
	db := r.db.WithContext(ctx)

	logger.Debug("Upserting cart item in database", map[string]interface{}{
		"cart_id":   cartID,
		"recipe_id": recipeID,
		"quantity":  quantity,
	})

	item := model.CartItem{
		CartID:   cartID,
		RecipeID: recipeID,
		Quantity: quantity,
		Price:    unitPrice,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "recipe_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		logger.Error("Failed to upsert cart item in database", err, map[string]interface{}{
			"cart_id":   cartID,
			"recipe_id": recipeID,
		})
		return nil, err
	}

	var stored model.CartItem
	if err := db.Where("cart_id = ? AND recipe_id = ?", cartID, recipeID).First(&stored).Error; err != nil {
		logger.Error("Failed to reload cart item after upsert", err, map[string]interface{}{
			"cart_id":   cartID,
			"recipe_id": recipeID,
		})
		return nil, err
	}

	logger.Debug("Cart item upserted in database", map[string]interface{}{
		"cart_item_id": stored.ID,
		"quantity":     stored.Quantity,
	})
	return &stored, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Recipe").
		Preload("Recipe.Category").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uint, quantity int) (int64, error) {
	logger.Debug("Updating cart item quantity in database", map[string]interface{}{
		"cart_id":      cartID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	result := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to update cart item quantity", result.Error, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_id":      cartID,
			"cart_item_id": itemID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items from database", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, result.Error
	}

	logger.Debug("Cart items deleted from database", map[string]interface{}{
		"cart_id": cartID,
		"removed": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

// DeductItem takes quantity units of recipeID out of the cart. The line is
// deleted when nothing would be left, and a missing line is not an error.
func (r *cartRepository) DeductItem(ctx context.Context, cartID, recipeID uint, quantity int) error {
	db := r.db.WithContext(ctx)

	logger.Debug("Deducting cart item quantity in database", map[string]interface{}{
		"cart_id":   cartID,
		"recipe_id": recipeID,
		"quantity":  quantity,
	})

	if err := db.
		Where("cart_id = ? AND recipe_id = ? AND quantity <= ?", cartID, recipeID, quantity).
		Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete settled cart item", err, map[string]interface{}{
			"cart_id":   cartID,
			"recipe_id": recipeID,
		})
		return err
	}

	if err := db.Model(&model.CartItem{}).
		Where("cart_id = ? AND recipe_id = ? AND quantity > ?", cartID, recipeID, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now(),
		}).Error; err != nil {
		logger.Error("Failed to decrement settled cart item", err, map[string]interface{}{
			"cart_id":   cartID,
			"recipe_id": recipeID,
		})
		return err
	}
	return nil
}

// SumQuantityByUserID is 0 for users without a cart.
func (r *cartRepository) SumQuantityByUserID(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Select("COALESCE(SUM(cart_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		logger.Error("Failed to sum cart quantities", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, err
	}
	return total, nil
}

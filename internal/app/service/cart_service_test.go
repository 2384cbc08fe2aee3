package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, testDB *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		Username:     name,
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createRecipe(t *testing.T, testDB *gorm.DB, title, price string) *model.Recipe {
	t.Helper()
	recipe := &model.Recipe{
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Servings: 2,
	}
	require.NoError(t, testDB.Create(recipe).Error)
	return recipe
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupCartServiceTest(t *testing.T) (CartService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartService := NewCartService(
		testDB,
		repository.NewCartRepository(testDB),
		repository.NewRecipeRepository(testDB),
	)
	return cartService, testDB
}

func TestCartService_PricingScenario(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	pasta := createRecipe(t, testDB, "Pasta", "9.99")
	salad := createRecipe(t, testDB, "Salad", "5.00")

	item, created, err := cartService.AddItem(ctx, user.ID, pasta.ID, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.TotalPrice().Equal(money("19.98")))

	summary, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalPrice.Equal(money("19.98")))
	assert.Equal(t, 2, summary.ItemCount)

	merged, created, err := cartService.AddItem(ctx, user.ID, pasta.ID, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, item.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)

	summary, err = cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Cart.Items, 1)
	assert.True(t, summary.TotalPrice.Equal(money("49.95")))

	_, created, err = cartService.AddItem(ctx, user.ID, salad.ID, 1)
	require.NoError(t, err)
	assert.True(t, created)

	summary, err = cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Cart.Items, 2)
	assert.Equal(t, pasta.ID, summary.Cart.Items[0].RecipeID)
	assert.Equal(t, salad.ID, summary.Cart.Items[1].RecipeID)
	assert.True(t, summary.TotalPrice.Equal(money("54.95")))
	assert.Equal(t, 6, summary.ItemCount)

	count, err := cartService.ItemCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestCartService_GetCart_CreatesEmptyCart(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "newbie")

	summary, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.NotZero(t, summary.Cart.ID)
	assert.Empty(t, summary.Cart.Items)
	assert.True(t, summary.TotalPrice.IsZero())
	assert.Zero(t, summary.ItemCount)

	again, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Cart.ID, again.Cart.ID)
}

func TestCartService_AddItem_Validation(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	tests := []struct {
		name     string
		recipeID uint
		quantity int
		wantErr  error
		wantKind Kind
	}{
		{"zero quantity", recipe.ID, 0, ErrInvalidQuantity, KindValidation},
		{"negative quantity", recipe.ID, -2, ErrInvalidQuantity, KindValidation},
		{"above line limit", recipe.ID, MaxItemQuantity + 1, ErrInvalidQuantity, KindValidation},
		{"huge quantity", recipe.ID, math.MaxInt, ErrInvalidQuantity, KindValidation},
		{"unknown recipe", 9999, 1, ErrRecipeNotFound, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, _, err := cartService.AddItem(ctx, user.ID, tt.recipeID, tt.quantity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Nil(t, item)
		})
	}

	count, err := cartService.ItemCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCartService_AddItem_MergeBeyondLimit(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	item, created, err := cartService.AddItem(ctx, user.ID, recipe.ID, MaxItemQuantity)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, MaxItemQuantity, item.Quantity)

	_, _, err = cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, KindValidation, KindOf(err))

	count, err := cartService.ItemCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxItemQuantity, count, "rejected merge leaves the line untouched")

	_, err = cartService.UpdateItemQuantity(ctx, user.ID, item.ID, MaxItemQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_PriceSnapshotNotRefreshed(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	_, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	require.NoError(t, err)

	require.NoError(t, testDB.Model(recipe).Update("price", money("12.49")).Error)

	merged, created, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, merged.Price.Equal(money("9.99")))

	summary, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalPrice.Equal(money("19.98")))
	assert.True(t, summary.Cart.Items[0].Recipe.Price.Equal(money("12.49")))
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	item, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 5)
	require.NoError(t, err)

	updated, err := cartService.UpdateItemQuantity(ctx, user.ID, item.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.True(t, updated.Price.Equal(money("9.99")))
	assert.Equal(t, "Pasta", updated.Recipe.Title)

	_, err = cartService.UpdateItemQuantity(ctx, user.ID, item.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = cartService.UpdateItemQuantity(ctx, user.ID, 9999, 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	count, err := cartService.ItemCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCartService_ForeignItemsAreNotFound(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	owner := createUser(t, testDB, "owner")
	other := createUser(t, testDB, "other")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	item, _, err := cartService.AddItem(ctx, owner.ID, recipe.ID, 1)
	require.NoError(t, err)

	t.Run("other user without cart", func(t *testing.T) {
		_, err := cartService.UpdateItemQuantity(ctx, other.ID, item.ID, 3)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
		assert.ErrorIs(t, cartService.RemoveItem(ctx, other.ID, item.ID), ErrCartItemNotFound)
	})

	t.Run("other user with cart", func(t *testing.T) {
		_, err := cartService.GetCart(ctx, other.ID)
		require.NoError(t, err)

		_, err = cartService.UpdateItemQuantity(ctx, other.ID, item.ID, 3)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.ErrorIs(t, cartService.RemoveItem(ctx, other.ID, item.ID), ErrCartItemNotFound)
	})

	summary, err := cartService.GetCart(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, summary.Cart.Items, 1)
	assert.Equal(t, 1, summary.Cart.Items[0].Quantity)
}

func TestCartService_RemoveItem(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	item, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 2)
	require.NoError(t, err)

	require.NoError(t, cartService.RemoveItem(ctx, user.ID, item.ID))
	assert.ErrorIs(t, cartService.RemoveItem(ctx, user.ID, item.ID), ErrCartItemNotFound)

	again, created, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, again.Quantity)
}

func TestCartService_ClearCart(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	pasta := createRecipe(t, testDB, "Pasta", "9.99")
	salad := createRecipe(t, testDB, "Salad", "5.00")

	removed, err := cartService.ClearCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)

	var carts int64
	testDB.Model(&model.Cart{}).Where("user_id = ?", user.ID).Count(&carts)
	assert.Zero(t, carts, "clearing must not create a cart")

	_, _, err = cartService.AddItem(ctx, user.ID, pasta.ID, 2)
	require.NoError(t, err)
	_, _, err = cartService.AddItem(ctx, user.ID, salad.ID, 1)
	require.NoError(t, err)

	removed, err = cartService.ClearCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = cartService.ClearCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)

	summary, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Cart.Items)
	assert.True(t, summary.TotalPrice.IsZero())
}

func TestCartService_ItemCount_NoCart(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	user := createUser(t, testDB, "ghost")

	count, err := cartService.ItemCount(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// addFromGoroutines fires workers single-unit adds of one recipe at once and
// checks they all land on one cart line.
func addFromGoroutines(t *testing.T, cartService CartService, testDB *gorm.DB, workers int) {
	t.Helper()
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var carts, rows int64
	testDB.Model(&model.Cart{}).Where("user_id = ?", user.ID).Count(&carts)
	testDB.Model(&model.CartItem{}).Count(&rows)
	assert.Equal(t, int64(1), carts)
	assert.Equal(t, int64(1), rows)

	count, err := cartService.ItemCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}

// The SQLite pool holds one connection, so these adds are serialized; the
// postgres-tagged variant races them on a real pool.
func TestCartService_AddsFromGoroutinesMergeIntoOneLine(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	addFromGoroutines(t, cartService, testDB, 8)
}

func TestCartService_DeleteCart(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")

	require.NoError(t, cartService.DeleteCart(ctx, user.ID))

	_, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 3)
	require.NoError(t, err)
	require.NoError(t, cartService.DeleteCart(ctx, user.ID))

	var carts, rows int64
	testDB.Model(&model.Cart{}).Count(&carts)
	testDB.Model(&model.CartItem{}).Count(&rows)
	assert.Zero(t, carts)
	assert.Zero(t, rows)
}

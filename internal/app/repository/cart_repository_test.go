package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestUser(t *testing.T, testDB *gorm.DB, name string) *model.User {
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

func createTestRecipe(t *testing.T, testDB *gorm.DB, title, price string) *model.Recipe {
	t.Helper()
	recipe := &model.Recipe{
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Servings: 2,
	}
	require.NoError(t, testDB.Create(recipe).Error)
	return recipe
}

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.User, *model.Recipe) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewCartRepository(testDB)
	user := createTestUser(t, testDB, "cartuser")
	recipe := createTestRecipe(t, testDB, "Shakshuka", "9.99")

	return testDB, repo, user, recipe
}

func TestCartRepository_GetOrCreateByUserID(t *testing.T) {
	testDB, repo, user, _ := setupCartTest(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, user.ID, first.UserID)

	second, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	testDB.Model(&model.Cart{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartRepository_FindByUserID_NotFound(t *testing.T) {
	_, repo, user, _ := setupCartTest(t)

	cart, err := repo.FindByUserID(context.Background(), user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, cart)
}

func TestCartRepository_UpsertItem(t *testing.T) {
	testDB, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)

	item, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 2, recipe.Price)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("9.99")))

	t.Run("merges quantity and keeps first price", func(t *testing.T) {
		merged, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 3, decimal.RequireFromString("12.50"))
		require.NoError(t, err)
		assert.Equal(t, item.ID, merged.ID)
		assert.Equal(t, 5, merged.Quantity)
		assert.True(t, merged.Price.Equal(decimal.RequireFromString("9.99")))
	})

	var rows int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestCartRepository_FindWithItemsByUserID(t *testing.T) {
	testDB, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()
	other := createTestRecipe(t, testDB, "Focaccia", "5.00")

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, cart.ID, recipe.ID, 1, recipe.Price)
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, cart.ID, other.ID, 1, other.Price)
	require.NoError(t, err)

	loaded, err := repo.FindWithItemsByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, recipe.ID, loaded.Items[0].RecipeID)
	assert.Equal(t, "Shakshuka", loaded.Items[0].Recipe.Title)
	assert.Equal(t, other.ID, loaded.Items[1].RecipeID)
}

func TestCartRepository_ItemScopedByCart(t *testing.T) {
	testDB, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()
	intruder := createTestUser(t, testDB, "intruder")

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	otherCart, err := repo.GetOrCreateByUserID(ctx, intruder.ID)
	require.NoError(t, err)

	item, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 1, recipe.Price)
	require.NoError(t, err)

	_, err = repo.FindItem(ctx, otherCart.ID, item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	rows, err := repo.UpdateItemQuantity(ctx, otherCart.ID, item.ID, 7)
	require.NoError(t, err)
	assert.Zero(t, rows)

	rows, err = repo.DeleteItem(ctx, otherCart.ID, item.ID)
	require.NoError(t, err)
	assert.Zero(t, rows)

	rows, err = repo.UpdateItemQuantity(ctx, cart.ID, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	found, err := repo.FindItem(ctx, cart.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.Quantity)
}

func TestCartRepository_DeleteItemsAndSum(t *testing.T) {
	testDB, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()
	other := createTestRecipe(t, testDB, "Focaccia", "5.00")

	total, err := repo.SumQuantityByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, cart.ID, recipe.ID, 2, recipe.Price)
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, cart.ID, other.ID, 4, other.Price)
	require.NoError(t, err)

	total, err = repo.SumQuantityByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)

	removed, err := repo.DeleteItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = repo.DeleteItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCartRepository_DeletedItemReleasesKey(t *testing.T) {
	_, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	item, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 3, recipe.Price)
	require.NoError(t, err)

	rows, err := repo.DeleteItem(ctx, cart.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	fresh, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 1, recipe.Price)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Quantity)
}

func TestCartRepository_DeductItem(t *testing.T) {
	testDB, repo, user, recipe := setupCartTest(t)
	ctx := context.Background()
	other := createTestRecipe(t, testDB, "Focaccia", "5.00")

	cart, err := repo.GetOrCreateByUserID(ctx, user.ID)
	require.NoError(t, err)
	kept, err := repo.UpsertItem(ctx, cart.ID, recipe.ID, 5, recipe.Price)
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, cart.ID, other.ID, 2, other.Price)
	require.NoError(t, err)

	require.NoError(t, repo.DeductItem(ctx, cart.ID, recipe.ID, 3))
	require.NoError(t, repo.DeductItem(ctx, cart.ID, other.ID, 2))
	require.NoError(t, repo.DeductItem(ctx, cart.ID, 9999, 1), "missing line is ignored")

	loaded, err := repo.FindWithItemsByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, kept.ID, loaded.Items[0].ID)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	assert.True(t, loaded.Items[0].Price.Equal(recipe.Price))
}

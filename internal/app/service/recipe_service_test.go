package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/internal/cache"
	"github.com/eternaldev/recipe-backend/internal/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRecipeServiceTest(t *testing.T, withCache bool) (RecipeService, *gorm.DB, *miniredis.Miniredis) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	var recipeCache cache.Cache
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		recipeCache = cache.NewRedisCache(client, time.Minute)
	}

	recipeService := NewRecipeService(
		repository.NewRecipeRepository(testDB),
		repository.NewCategoryRepository(testDB),
		repository.NewReviewRepository(testDB),
		recipeCache,
	)
	return recipeService, testDB, mr
}

func TestRecipeService_ListRecipes_Paging(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()

	category := &model.Category{Name: "Baking"}
	require.NoError(t, testDB.Create(category).Error)
	for i, title := range []string{"Bagels", "Brioche", "Croissant"} {
		r := createRecipe(t, testDB, title, "3.00")
		if i < 2 {
			require.NoError(t, testDB.Model(r).Update("category_id", category.ID).Error)
		}
	}

	page, err := recipeService.ListRecipes(ctx, RecipeListQuery{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Count)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)

	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)

	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)

	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{Category: "baking"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)

	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{Category: "999"})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.NotNil(t, page.Results)
}

func TestRecipeService_GetRecipe(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()
	recipe := createRecipe(t, testDB, "Risotto", "15.50")
	alice := createUser(t, testDB, "alice")
	bob := createUser(t, testDB, "bob")
	require.NoError(t, testDB.Create(&model.Review{RecipeID: recipe.ID, UserID: alice.ID, Rating: 5}).Error)
	require.NoError(t, testDB.Create(&model.Review{RecipeID: recipe.ID, UserID: bob.ID, Rating: 2}).Error)

	detail, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Risotto", detail.Recipe.Title)
	assert.Equal(t, int64(2), detail.ReviewCount)
	assert.InDelta(t, 3.5, detail.AverageRating, 0.001)

	_, err = recipeService.GetRecipe(ctx, 9999)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRecipeService_ReadThroughCache(t *testing.T) {
	recipeService, testDB, mr := setupRecipeServiceTest(t, true)
	ctx := context.Background()
	recipe := createRecipe(t, testDB, "Gumbo", "10.00")

	first, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("recipes:recipe:1"))

	// the cached copy is served even after the row changes
	require.NoError(t, testDB.Model(recipe).Update("title", "Jambalaya").Error)
	cached, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Recipe.Title, cached.Recipe.Title)
	assert.True(t, cached.Recipe.Price.Equal(money("10.00")))

	mr.FlushAll()
	fresh, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jambalaya", fresh.Recipe.Title)
}

func TestRecipeService_CacheDownFallsBackToDatabase(t *testing.T) {
	recipeService, testDB, mr := setupRecipeServiceTest(t, true)
	ctx := context.Background()
	require.NoError(t, testDB.Create(&model.Category{Name: "Soups"}).Error)

	mr.SetError("server down")

	categories, err := recipeService.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Soups", categories[0].Name)
}

func ptr[T any](v T) *T {
	return &v
}

func TestRecipeService_CreateRecipe(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()
	category := &model.Category{Name: "Soups"}
	require.NoError(t, testDB.Create(category).Error)

	recipe, err := recipeService.CreateRecipe(ctx, RecipeInput{
		Title:      ptr("  Minestrone "),
		Price:      ptr(money("7.25")),
		CategoryID: ptr(category.ID),
		Tags:       []string{" Quick", "quick", "Vegan", ""},
	})
	require.NoError(t, err)
	assert.NotZero(t, recipe.ID)
	assert.Equal(t, "Minestrone", recipe.Title)
	assert.Equal(t, 1, recipe.Servings)
	assert.True(t, recipe.Price.Equal(money("7.25")))
	assert.Equal(t, model.StringArray{"quick", "vegan"}, recipe.Tags)
	require.NotNil(t, recipe.Category)
	assert.Equal(t, "Soups", recipe.Category.Name)
}

func TestRecipeService_CreateRecipe_Validation(t *testing.T) {
	recipeService, _, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RecipeInput
		want  error
	}{
		{"missing title", RecipeInput{Price: ptr(money("1.00"))}, ErrInvalidRecipe},
		{"missing price", RecipeInput{Title: ptr("Toast")}, ErrInvalidRecipe},
		{"blank title", RecipeInput{Title: ptr("   "), Price: ptr(money("1.00"))}, ErrInvalidRecipe},
		{"negative price", RecipeInput{Title: ptr("Toast"), Price: ptr(money("-0.01"))}, ErrInvalidRecipe},
		{"too many decimals", RecipeInput{Title: ptr("Toast"), Price: ptr(money("1.005"))}, ErrInvalidRecipe},
		{"price too large", RecipeInput{Title: ptr("Toast"), Price: ptr(money("1000000"))}, ErrInvalidRecipe},
		{"zero servings", RecipeInput{Title: ptr("Toast"), Price: ptr(money("1.00")), Servings: ptr(0)}, ErrInvalidRecipe},
		{"negative prep time", RecipeInput{Title: ptr("Toast"), Price: ptr(money("1.00")), PrepTime: ptr(-5)}, ErrInvalidRecipe},
		{"unknown category", RecipeInput{Title: ptr("Toast"), Price: ptr(money("1.00")), CategoryID: ptr(uint(42))}, ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recipeService.CreateRecipe(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestRecipeService_UpdateRecipe(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()
	category := &model.Category{Name: "Pasta"}
	require.NoError(t, testDB.Create(category).Error)
	recipe := createRecipe(t, testDB, "Carbonara", "11.00")

	updated, err := recipeService.UpdateRecipe(ctx, recipe.ID, RecipeInput{
		Price:      ptr(money("12.50")),
		CategoryID: ptr(category.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carbonara", updated.Title)
	assert.True(t, updated.Price.Equal(money("12.50")))
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Pasta", updated.Category.Name)

	cleared, err := recipeService.UpdateRecipe(ctx, recipe.ID, RecipeInput{CategoryID: ptr(uint(0))})
	require.NoError(t, err)
	assert.Nil(t, cleared.CategoryID)
	assert.Nil(t, cleared.Category)

	_, err = recipeService.UpdateRecipe(ctx, 9999, RecipeInput{Title: ptr("Ghost")})
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = recipeService.UpdateRecipe(ctx, recipe.ID, RecipeInput{Price: ptr(money("-1"))})
	assert.ErrorIs(t, err, ErrInvalidRecipe)
}

func TestRecipeService_PriceChangeKeepsCartSnapshot(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	cartService := NewCartService(
		testDB,
		repository.NewCartRepository(testDB),
		repository.NewRecipeRepository(testDB),
	)
	ctx := context.Background()
	user := createUser(t, testDB, "cook")
	recipe := createRecipe(t, testDB, "Lasagna", "14.00")

	_, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 2)
	require.NoError(t, err)

	_, err = recipeService.UpdateRecipe(ctx, recipe.ID, RecipeInput{Price: ptr(money("16.00"))})
	require.NoError(t, err)

	summary, err := cartService.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Cart.Items, 1)
	line := summary.Cart.Items[0]
	assert.True(t, line.Price.Equal(money("14.00")))
	assert.True(t, line.Recipe.Price.Equal(money("16.00")))
	assert.True(t, summary.TotalPrice.Equal(money("28.00")))

	// a fresh add after the change still merges at the stored price
	merged, created, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, merged.Price.Equal(money("14.00")))
}

func TestRecipeService_WritesInvalidateCache(t *testing.T) {
	recipeService, testDB, mr := setupRecipeServiceTest(t, true)
	ctx := context.Background()
	recipe := createRecipe(t, testDB, "Gumbo", "10.00")

	_, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	_, err = recipeService.ListRecipes(ctx, RecipeListQuery{})
	require.NoError(t, err)
	_, err = recipeService.ListRecipes(ctx, RecipeListQuery{Search: "gumbo"})
	require.NoError(t, err)
	_, err = recipeService.ListCategories(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("recipes:recipe:1"))
	require.True(t, mr.Exists("recipes:list:c=:s=:p=1:n=20"))

	_, err = recipeService.UpdateRecipe(ctx, recipe.ID, RecipeInput{Title: ptr("Jambalaya")})
	require.NoError(t, err)
	assert.False(t, mr.Exists("recipes:recipe:1"))
	assert.False(t, mr.Exists("recipes:list:c=:s=:p=1:n=20"))
	assert.False(t, mr.Exists("recipes:list:c=:s=gumbo:p=1:n=20"))
	assert.True(t, mr.Exists("recipes:categories"))

	detail, err := recipeService.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jambalaya", detail.Recipe.Title)

	page, err := recipeService.ListRecipes(ctx, RecipeListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Jambalaya", page.Results[0].Title)

	created, err := recipeService.CreateRecipe(ctx, RecipeInput{Title: ptr("Etouffee"), Price: ptr(money("13.00"))})
	require.NoError(t, err)
	assert.False(t, mr.Exists("recipes:list:c=:s=:p=1:n=20"))

	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)

	require.NoError(t, recipeService.DeleteRecipe(ctx, created.ID))
	page, err = recipeService.ListRecipes(ctx, RecipeListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
}

func TestRecipeService_DeleteRecipe(t *testing.T) {
	recipeService, testDB, _ := setupRecipeServiceTest(t, false)
	ctx := context.Background()
	recipe := createRecipe(t, testDB, "Chili", "9.00")

	require.NoError(t, recipeService.DeleteRecipe(ctx, recipe.ID))

	_, err := recipeService.GetRecipe(ctx, recipe.ID)
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	err = recipeService.DeleteRecipe(ctx, recipe.ID)
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

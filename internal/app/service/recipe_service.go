package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/internal/cache"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const listKeyPrefix = "list:"

var (
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrInvalidRecipe    = errors.New("invalid recipe")
	ErrCategoryNotFound = errors.New("category not found")
)

// maxRecipePrice is the largest value of a decimal(8,2) column.
var maxRecipePrice = decimal.RequireFromString("999999.99")

// RecipeListQuery is the catalog filter. Category may be an id or a name.
type RecipeListQuery struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

type RecipePage struct {
	Results    []model.Recipe `json:"results"`
	Count      int64          `json:"count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

type RecipeDetail struct {
	Recipe        *model.Recipe
	AverageRating float64
	ReviewCount   int64
}

// RecipeInput carries recipe fields to write. Nil fields are left unchanged
// on update; a CategoryID of 0 clears the category.
type RecipeInput struct {
	Title        *string
	Description  *string
	Instructions *string
	Ingredients  *string
	PrepTime     *int
	CookTime     *int
	Servings     *int
	Price        *decimal.Decimal
	CategoryID   *uint
	Tags         []string
	ImageURL     *string
}

type RecipeService interface {
	ListRecipes(ctx context.Context, query RecipeListQuery) (*RecipePage, error)
	GetRecipe(ctx context.Context, id uint) (*RecipeDetail, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateRecipe(ctx context.Context, input RecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id uint, input RecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id uint) error
}

type recipeService struct {
	recipeRepo   repository.RecipeRepository
	categoryRepo repository.CategoryRepository
	reviewRepo   repository.ReviewRepository
	cache        cache.Cache // nil disables caching
	sfg          singleflight.Group
}

func NewRecipeService(
	recipeRepo repository.RecipeRepository,
	categoryRepo repository.CategoryRepository,
	reviewRepo repository.ReviewRepository,
	recipeCache cache.Cache,
) RecipeService {
	return &recipeService{
		recipeRepo:   recipeRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
		cache:        recipeCache,
	}
}

func (q RecipeListQuery) normalize() RecipeListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q RecipeListQuery) cacheKey() string {
	return fmt.Sprintf(listKeyPrefix+"c=%s:s=%s:p=%d:n=%d",
		strings.ToLower(q.Category), strings.ToLower(q.Search), q.Page, q.PageSize)
}

func (s *recipeService) ListRecipes(ctx context.Context, query RecipeListQuery) (*RecipePage, error) {
	query = query.normalize()

	page, err := readThrough(ctx, s, query.cacheKey(), func() (*RecipePage, error) {
		filter := repository.RecipeFilter{
			Search: query.Search,
			Limit:  query.PageSize,
			Offset: (query.Page - 1) * query.PageSize,
		}
		if query.Category != "" {
			if id, err := strconv.ParseUint(query.Category, 10, 64); err == nil {
				categoryID := uint(id)
				filter.CategoryID = &categoryID
			} else {
				filter.CategoryName = query.Category
			}
		}

		recipes, total, err := s.recipeRepo.FindWithFilter(ctx, filter)
		if err != nil {
			return nil, err
		}
		if recipes == nil {
			recipes = []model.Recipe{}
		}

		return &RecipePage{
			Results:    recipes,
			Count:      total,
			Page:       query.Page,
			PageSize:   query.PageSize,
			TotalPages: int((total + int64(query.PageSize) - 1) / int64(query.PageSize)),
		}, nil
	})
	if err != nil {
		logger.Error("Failed to list recipes", err, map[string]interface{}{
			"category": query.Category,
			"search":   query.Search,
		})
		return nil, err
	}
	return page, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id uint) (*RecipeDetail, error) {
	recipe, err := readThrough(ctx, s, recipeKey(id), func() (*model.Recipe, error) {
		found, err := s.recipeRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRecipeNotFound
			}
			return nil, err
		}
		return found, nil
	})
	if err != nil {
		if !errors.Is(err, ErrRecipeNotFound) {
			logger.Error("Failed to fetch recipe", err, map[string]interface{}{
				"recipe_id": id,
			})
		}
		return nil, err
	}

	// ratings move with every review and are read live
	summary, err := s.reviewRepo.RatingSummary(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RecipeDetail{
		Recipe:        recipe,
		AverageRating: summary.AverageRating,
		ReviewCount:   summary.ReviewCount,
	}, nil
}

func (s *recipeService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := readThrough(ctx, s, "categories", func() ([]model.Category, error) {
		found, err := s.categoryRepo.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		if found == nil {
			found = []model.Category{}
		}
		return found, nil
	})
	if err != nil {
		logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

func recipeKey(id uint) string {
	return fmt.Sprintf("recipe:%d", id)
}

func (s *recipeService) CreateRecipe(ctx context.Context, input RecipeInput) (*model.Recipe, error) {
	if input.Title == nil || input.Price == nil {
		return nil, fmt.Errorf("%w: title and price are required", ErrInvalidRecipe)
	}

	recipe := &model.Recipe{Servings: 1}
	if err := s.applyInput(ctx, recipe, input); err != nil {
		return nil, err
	}

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		logger.Error("Failed to create recipe", err, map[string]interface{}{
			"title": recipe.Title,
		})
		return nil, err
	}

	s.invalidate(ctx, recipe.ID)
	logger.Info("Recipe created", map[string]interface{}{
		"recipe_id": recipe.ID,
		"title":     recipe.Title,
		"price":     recipe.Price.StringFixed(2),
	})
	return s.recipeRepo.FindByID(ctx, recipe.ID)
}

// UpdateRecipe changes the catalog entry only. Cart lines keep the unit price
// they were added at.
func (s *recipeService) UpdateRecipe(ctx context.Context, id uint, input RecipeInput) (*model.Recipe, error) {
	recipe, err := s.recipeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		logger.Error("Failed to fetch recipe for update", err, map[string]interface{}{
			"recipe_id": id,
		})
		return nil, err
	}

	if err := s.applyInput(ctx, recipe, input); err != nil {
		return nil, err
	}

	if err := s.recipeRepo.Update(ctx, recipe); err != nil {
		logger.Error("Failed to update recipe", err, map[string]interface{}{
			"recipe_id": id,
		})
		return nil, err
	}

	s.invalidate(ctx, id)
	logger.Info("Recipe updated", map[string]interface{}{
		"recipe_id": id,
		"price":     recipe.Price.StringFixed(2),
	})
	return s.recipeRepo.FindByID(ctx, id)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id uint) error {
	removed, err := s.recipeRepo.Delete(ctx, id)
	if err != nil {
		logger.Error("Failed to delete recipe", err, map[string]interface{}{
			"recipe_id": id,
		})
		return err
	}
	if removed == 0 {
		return ErrRecipeNotFound
	}

	s.invalidate(ctx, id)
	logger.Info("Recipe deleted", map[string]interface{}{
		"recipe_id": id,
	})
	return nil
}

// applyInput copies the set fields of input onto recipe and validates the result.
func (s *recipeService) applyInput(ctx context.Context, recipe *model.Recipe, input RecipeInput) error {
	if input.Title != nil {
		recipe.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}
	if input.Instructions != nil {
		recipe.Instructions = *input.Instructions
	}
	if input.Ingredients != nil {
		recipe.Ingredients = *input.Ingredients
	}
	if input.PrepTime != nil {
		recipe.PrepTime = *input.PrepTime
	}
	if input.CookTime != nil {
		recipe.CookTime = *input.CookTime
	}
	if input.Servings != nil {
		recipe.Servings = *input.Servings
	}
	if input.Price != nil {
		recipe.Price = *input.Price
	}
	if input.Tags != nil {
		recipe.Tags = normalizeTags(input.Tags)
	}
	if input.ImageURL != nil {
		recipe.ImageURL = strings.TrimSpace(*input.ImageURL)
	}

	switch {
	case recipe.Title == "" || len(recipe.Title) > 255:
		return fmt.Errorf("%w: title must be 1 to 255 characters", ErrInvalidRecipe)
	case recipe.Price.IsNegative() || recipe.Price.GreaterThan(maxRecipePrice) || !recipe.Price.Round(2).Equal(recipe.Price):
		return fmt.Errorf("%w: price must be between 0 and %s with at most 2 decimals", ErrInvalidRecipe, maxRecipePrice)
	case recipe.Servings < 1:
		return fmt.Errorf("%w: servings must be at least 1", ErrInvalidRecipe)
	case recipe.PrepTime < 0 || recipe.CookTime < 0:
		return fmt.Errorf("%w: times cannot be negative", ErrInvalidRecipe)
	}

	if input.CategoryID != nil {
		if *input.CategoryID == 0 {
			recipe.CategoryID = nil
		} else {
			if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCategoryNotFound
				}
				return err
			}
			categoryID := *input.CategoryID
			recipe.CategoryID = &categoryID
		}
		recipe.Category = nil
	}
	return nil
}

func normalizeTags(tags []string) model.StringArray {
	normalized := make(model.StringArray, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	return normalized
}

// invalidate drops the cached detail of id and every cached list page.
func (s *recipeService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, recipeKey(id)); err != nil {
		logger.Warn("Recipe cache invalidation failed", map[string]interface{}{
			"recipe_id": id,
			"error":     err.Error(),
		})
	}
	if err := s.cache.DeletePrefix(ctx, listKeyPrefix); err != nil {
		logger.Warn("Recipe list cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// readThrough serves key from the cache or, on a miss, from load. Concurrent
// misses for one key share a single load. Cache failures only cost a reload.
func readThrough[T any](ctx context.Context, s *recipeService, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		var cached T
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("Recipe cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}

		loaded, err := load()
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, loaded); err != nil {
			logger.Warn("Recipe cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

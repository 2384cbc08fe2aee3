package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"gorm.io/gorm"
)

type RecipeSort string

const (
	RecipeSortCreatedAt RecipeSort = "created_at"
	RecipeSortPrice     RecipeSort = "price"
	RecipeSortTitle     RecipeSort = "title"
)

type RecipeFilter struct {
	CategoryID    *uint
	CategoryName  string
	Search        string
	SortBy        RecipeSort
	SortAscending bool
	Limit         int
	Offset        int
}

type RecipeRepository interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	FindByID(ctx context.Context, id uint) (*model.Recipe, error)
	FindWithFilter(ctx context.Context, filter RecipeFilter) ([]model.Recipe, int64, error)
	Update(ctx context.Context, recipe *model.Recipe) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	logger.Debug("Creating recipe in database", map[string]interface{}{
		"title": recipe.Title,
	})

	if err := r.db.WithContext(ctx).Create(recipe).Error; err != nil {
		logger.Error("Failed to create recipe in database", err, map[string]interface{}{
			"title": recipe.Title,
		})
		return err
	}
	return nil
}

func (r *recipeRepository) FindByID(ctx context.Context, id uint) (*model.Recipe, error) {
	logger.Debug("Finding recipe by ID in database", map[string]interface{}{
		"recipe_id": id,
	})

	var recipe model.Recipe
	if err := r.db.WithContext(ctx).Preload("Category").First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) FindWithFilter(ctx context.Context, filter RecipeFilter) ([]model.Recipe, int64, error) {
	logger.Debug("Finding recipes with filter", map[string]interface{}{
		"category_id":   filter.CategoryID,
		"category_name": filter.CategoryName,
		"search":        filter.Search,
		"sort_by":       filter.SortBy,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})

	query := r.db.WithContext(ctx).Model(&model.Recipe{})

	if filter.CategoryID != nil {
		query = query.Where("recipes.category_id = ?", *filter.CategoryID)
	} else if filter.CategoryName != "" {
		query = query.Joins("JOIN categories ON categories.id = recipes.category_id").
			Where("LOWER(categories.name) = ?", strings.ToLower(filter.CategoryName))
	}

	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		query = query.Where(
			"LOWER(recipes.title) LIKE ? OR LOWER(recipes.description) LIKE ? OR LOWER(recipes.ingredients) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count recipes", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	switch filter.SortBy {
	case RecipeSortPrice:
		query = query.Order("recipes.price " + direction)
	case RecipeSortTitle:
		query = query.Order("recipes.title " + direction)
	default:
		query = query.Order("recipes.created_at " + direction)
	}
	query = query.Order("recipes.id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var recipes []model.Recipe
	if err := query.Preload("Category").Find(&recipes).Error; err != nil {
		logger.Error("Failed to find recipes with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	logger.Debug("Recipes found with filter", map[string]interface{}{
		"count": len(recipes),
		"total": total,
	})
	return recipes, total, nil
}

// Update writes every column of recipe. The Category association is not saved.
func (r *recipeRepository) Update(ctx context.Context, recipe *model.Recipe) error {
	logger.Debug("Updating recipe in database", map[string]interface{}{
		"recipe_id": recipe.ID,
	})

	if err := r.db.WithContext(ctx).Omit("Category").Save(recipe).Error; err != nil {
		logger.Error("Failed to update recipe in database", err, map[string]interface{}{
			"recipe_id": recipe.ID,
		})
		return err
	}
	return nil
}

// Delete removes the recipe with its cart lines and reviews. Order items keep
// their own title and price copy and are left alone.
func (r *recipeRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Recipe{}, id)
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete recipe from database", err, map[string]interface{}{
			"recipe_id": id,
		})
		return 0, err
	}
	return removed, nil
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"name": category.Name,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

package repository

import (
	"context"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id uint) (*model.Review, error)
	FindByRecipeID(ctx context.Context, recipeID uint, offset, limit int) ([]model.Review, int64, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id uint) error
	RatingSummary(ctx context.Context, recipeID uint) (*model.RatingSummary, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	logger.Debug("Creating review in database", map[string]interface{}{
		"recipe_id": review.RecipeID,
		"user_id":   review.UserID,
	})

	if err := r.db.WithContext(ctx).Omit("Recipe", "User").Create(review).Error; err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicateKey
		}
		logger.Error("Failed to create review in database", err, map[string]interface{}{
			"recipe_id": review.RecipeID,
			"user_id":   review.UserID,
		})
		return err
	}
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).Preload("User").First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByRecipeID returns the newest reviews first.
func (r *reviewRepository) FindByRecipeID(ctx context.Context, recipeID uint, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Review{}).Where("recipe_id = ?", recipeID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		logger.Error("Failed to find reviews by recipe", err, map[string]interface{}{
			"recipe_id": recipeID,
		})
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *model.Review) error {
	err := r.db.WithContext(ctx).
		Model(review).
		Select("rating", "comment", "image_urls", "updated_at").
		Updates(review).Error
	if err != nil {
		logger.Error("Failed to update review in database", err, map[string]interface{}{
			"review_id": review.ID,
		})
		return err
	}
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Review{}, id).Error; err != nil {
		logger.Error("Failed to delete review from database", err, map[string]interface{}{
			"review_id": id,
		})
		return err
	}
	return nil
}

func (r *reviewRepository) RatingSummary(ctx context.Context, recipeID uint) (*model.RatingSummary, error) {
	var row struct {
		AverageRating float64
		ReviewCount   int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS review_count").
		Where("recipe_id = ?", recipeID).
		Scan(&row).Error
	if err != nil {
		logger.Error("Failed to aggregate review ratings", err, map[string]interface{}{
			"recipe_id": recipeID,
		})
		return nil, err
	}

	return &model.RatingSummary{
		RecipeID:      recipeID,
		AverageRating: row.AverageRating,
		ReviewCount:   row.ReviewCount,
	}, nil
}

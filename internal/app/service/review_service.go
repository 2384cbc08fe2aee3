package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound      = errors.New("review not found")
	ErrReviewForbidden     = errors.New("only the author can change this review")
	ErrReviewAlreadyExists = errors.New("review already exists for this recipe")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

type CreateReviewInput struct {
	Rating    int
	Comment   string
	ImageURLs []string
}

// UpdateReviewInput applies only the fields that are set.
type UpdateReviewInput struct {
	Rating    *int
	Comment   *string
	ImageURLs []string
}

type ReviewPage struct {
	Results  []model.Review
	Count    int64
	Page     int
	PageSize int
}

type ReviewService interface {
	ListRecipeReviews(ctx context.Context, recipeID uint, page, pageSize int) (*ReviewPage, error)
	CreateReview(ctx context.Context, userID, recipeID uint, input CreateReviewInput) (*model.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID uint, input UpdateReviewInput) (*model.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID uint) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	recipeRepo repository.RecipeRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, recipeRepo repository.RecipeRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		recipeRepo: recipeRepo,
	}
}

func validRating(rating int) bool {
	return rating >= model.MinRating && rating <= model.MaxRating
}

func (s *reviewService) ensureRecipe(ctx context.Context, recipeID uint) error {
	if _, err := s.recipeRepo.FindByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}
	return nil
}

func (s *reviewService) ListRecipeReviews(ctx context.Context, recipeID uint, page, pageSize int) (*ReviewPage, error) {
	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	reviews, total, err := s.reviewRepo.FindByRecipeID(ctx, recipeID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	return &ReviewPage{
		Results:  reviews,
		Count:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *reviewService) CreateReview(ctx context.Context, userID, recipeID uint, input CreateReviewInput) (*model.Review, error) {
	if !validRating(input.Rating) {
		return nil, ErrInvalidRating
	}
	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	review := &model.Review{
		RecipeID:  recipeID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		ImageURLs: model.StringArray(input.ImageURLs),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			logger.Warn("Duplicate review rejected", map[string]interface{}{
				"user_id":   userID,
				"recipe_id": recipeID,
			})
			return nil, ErrReviewAlreadyExists
		}
		return nil, err
	}

	logger.Info("Review created", map[string]interface{}{
		"review_id": review.ID,
		"recipe_id": recipeID,
		"user_id":   userID,
		"rating":    review.Rating,
	})
	return s.reviewRepo.FindByID(ctx, review.ID)
}

func (s *reviewService) ownedReview(ctx context.Context, userID, reviewID uint) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	if review.UserID != userID {
		logger.Warn("Review change by non-author rejected", map[string]interface{}{
			"review_id": reviewID,
			"user_id":   userID,
			"author_id": review.UserID,
		})
		return nil, ErrReviewForbidden
	}
	return review, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, userID, reviewID uint, input UpdateReviewInput) (*model.Review, error) {
	if input.Rating != nil && !validRating(*input.Rating) {
		return nil, ErrInvalidRating
	}

	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	if input.Rating != nil {
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = strings.TrimSpace(*input.Comment)
	}
	if input.ImageURLs != nil {
		review.ImageURLs = model.StringArray(input.ImageURLs)
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}

	logger.Info("Review updated", map[string]interface{}{
		"review_id": reviewID,
		"user_id":   userID,
	})
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, userID, reviewID uint) error {
	if _, err := s.ownedReview(ctx, userID, reviewID); err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return err
	}

	logger.Info("Review deleted", map[string]interface{}{
		"review_id": reviewID,
		"user_id":   userID,
	})
	return nil
}

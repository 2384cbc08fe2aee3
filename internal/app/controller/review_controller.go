package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/service"
	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type ReviewController struct {
	reviewService service.ReviewService
}

func NewReviewController(reviewService service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

// RegisterValidators adds the "rating" tag to gin's validator and reports
// fields by their json names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		rating := fl.Field().Int()
		return rating >= model.MinRating && rating <= model.MaxRating
	})
}

type CreateReviewRequest struct {
	Rating    int      `json:"rating" binding:"required,rating"`
	Comment   string   `json:"comment" binding:"max=2000"`
	ImageURLs []string `json:"image_urls" binding:"max=5,dive,url"`
}

type UpdateReviewRequest struct {
	Rating    *int     `json:"rating" binding:"omitempty,rating"`
	Comment   *string  `json:"comment" binding:"omitempty,max=2000"`
	ImageURLs []string `json:"image_urls" binding:"omitempty,max=5,dive,url"`
}

// ListRecipeReviews
// GET /api/v1/recipes/:id/reviews/
func (ctrl *ReviewController) ListRecipeReviews(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	recipeID, ok := pathID(c, "id", "recipe")
	if !ok {
		return
	}

	page, err := ctrl.reviewService.ListRecipeReviews(
		c.Request.Context(),
		recipeID,
		queryInt(c, "page", 1),
		queryInt(c, "page_size", service.DefaultPageSize),
	)
	if err != nil {
		respondServiceError(c, log, err, "list reviews", map[string]interface{}{
			"recipe_id": recipeID,
		})
		return
	}

	results := make([]ReviewResponse, 0, len(page.Results))
	for i := range page.Results {
		results = append(results, newReviewResponse(&page.Results[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"count":     page.Count,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// CreateReview
// POST /api/v1/recipes/:id/reviews/
func (ctrl *ReviewController) CreateReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	recipeID, ok := pathID(c, "id", "recipe")
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid review request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithValidationError(c, validationFields(err))
		return
	}

	review, err := ctrl.reviewService.CreateReview(c.Request.Context(), userID, recipeID, service.CreateReviewInput{
		Rating:    req.Rating,
		Comment:   req.Comment,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		respondServiceError(c, log, err, "create review", map[string]interface{}{
			"user_id":   userID,
			"recipe_id": recipeID,
		})
		return
	}

	c.JSON(http.StatusCreated, newReviewResponse(review))
}

// UpdateReview changes the caller's own review
// PATCH /api/v1/reviews/:id/
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathID(c, "id", "review")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid review update request", map[string]interface{}{
			"user_id":   userID,
			"review_id": reviewID,
			"error":     err.Error(),
		})
		apperrors.RespondWithValidationError(c, validationFields(err))
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), userID, reviewID, service.UpdateReviewInput{
		Rating:    req.Rating,
		Comment:   req.Comment,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		respondServiceError(c, log, err, "update review", map[string]interface{}{
			"user_id":   userID,
			"review_id": reviewID,
		})
		return
	}

	c.JSON(http.StatusOK, newReviewResponse(review))
}

// DeleteReview
// DELETE /api/v1/reviews/:id/
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathID(c, "id", "review")
	if !ok {
		return
	}

	if err := ctrl.reviewService.DeleteReview(c.Request.Context(), userID, reviewID); err != nil {
		respondServiceError(c, log, err, "delete review", map[string]interface{}{
			"user_id":   userID,
			"review_id": reviewID,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// validationFields flattens validator errors into json field -> failed tag.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

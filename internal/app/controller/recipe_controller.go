package controller

import (
	"net/http"

	"github.com/eternaldev/recipe-backend/internal/app/service"
	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RecipeController struct {
	recipeService service.RecipeService
}

func NewRecipeController(recipeService service.RecipeService) *RecipeController {
	return &RecipeController{
		recipeService: recipeService,
	}
}

type CreateRecipeRequest struct {
	Title        string           `json:"title" binding:"required,max=255"`
	Description  string           `json:"description"`
	Instructions string           `json:"instructions"`
	Ingredients  string           `json:"ingredients"`
	PrepTime     int              `json:"prep_time" binding:"gte=0"`
	CookTime     int              `json:"cook_time" binding:"gte=0"`
	Servings     int              `json:"servings" binding:"omitempty,gte=1"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	CategoryID   *uint            `json:"category_id"`
	Tags         []string         `json:"tags" binding:"max=20,dive,max=50"`
	ImageURL     string           `json:"image_url" binding:"omitempty,url"`
}

// input sets every field, so a PUT replaces the whole recipe.
func (req CreateRecipeRequest) input() service.RecipeInput {
	servings := req.Servings
	if servings == 0 {
		servings = 1
	}
	categoryID := uint(0)
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return service.RecipeInput{
		Title:        &req.Title,
		Description:  &req.Description,
		Instructions: &req.Instructions,
		Ingredients:  &req.Ingredients,
		PrepTime:     &req.PrepTime,
		CookTime:     &req.CookTime,
		Servings:     &servings,
		Price:        req.Price,
		CategoryID:   &categoryID,
		Tags:         tags,
		ImageURL:     &req.ImageURL,
	}
}

type UpdateRecipeRequest struct {
	Title        *string          `json:"title" binding:"omitempty,min=1,max=255"`
	Description  *string          `json:"description"`
	Instructions *string          `json:"instructions"`
	Ingredients  *string          `json:"ingredients"`
	PrepTime     *int             `json:"prep_time" binding:"omitempty,gte=0"`
	CookTime     *int             `json:"cook_time" binding:"omitempty,gte=0"`
	Servings     *int             `json:"servings" binding:"omitempty,gte=1"`
	Price        *decimal.Decimal `json:"price"`
	CategoryID   *uint            `json:"category_id"`
	Tags         []string         `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	ImageURL     *string          `json:"image_url" binding:"omitempty,url"`
}

func (req UpdateRecipeRequest) input() service.RecipeInput {
	return service.RecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		Ingredients:  req.Ingredients,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		Price:        req.Price,
		CategoryID:   req.CategoryID,
		Tags:         req.Tags,
		ImageURL:     req.ImageURL,
	}
}

// ListRecipes returns one page of the catalog
// GET /api/v1/recipes/?category=&search=&page=&page_size=
func (ctrl *RecipeController) ListRecipes(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	query := service.RecipeListQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", service.DefaultPageSize),
	}

	page, err := ctrl.recipeService.ListRecipes(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, log, err, "list recipes", map[string]interface{}{
			"category": query.Category,
			"search":   query.Search,
		})
		return
	}

	results := make([]RecipeResponse, 0, len(page.Results))
	for i := range page.Results {
		results = append(results, newRecipeResponse(&page.Results[i], false))
	}

	log.Info("Recipes fetched successfully", map[string]interface{}{
		"count": page.Count,
		"page":  page.Page,
	})

	c.JSON(http.StatusOK, RecipeListResponse{
		Results:    results,
		Count:      page.Count,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// GetRecipe returns a recipe with its rating summary
// GET /api/v1/recipes/:id/
func (ctrl *RecipeController) GetRecipe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id", "recipe")
	if !ok {
		return
	}

	detail, err := ctrl.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, log, err, "fetch recipe", map[string]interface{}{
			"recipe_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, RecipeDetailResponse{
		RecipeResponse: newRecipeResponse(detail.Recipe, true),
		AverageRating:  detail.AverageRating,
		ReviewCount:    detail.ReviewCount,
	})
}

// ListCategories
// GET /api/v1/categories/
func (ctrl *RecipeController) ListCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categories, err := ctrl.recipeService.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, log, err, "list categories", nil)
		return
	}

	results := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		results = append(results, CategoryResponse{ID: category.ID, Name: category.Name})
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// CreateRecipe adds a catalog entry (admin only)
// POST /api/v1/recipes/
func (ctrl *RecipeController) CreateRecipe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid recipe request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, validationFields(err))
		return
	}

	recipe, err := ctrl.recipeService.CreateRecipe(c.Request.Context(), req.input())
	if err != nil {
		respondServiceError(c, log, err, "create recipe", map[string]interface{}{
			"title": req.Title,
		})
		return
	}

	c.JSON(http.StatusCreated, newRecipeResponse(recipe, true))
}

// UpdateRecipe replaces (PUT) or patches (PATCH) a catalog entry (admin only).
// Prices already in carts are not touched.
// PUT/PATCH /api/v1/recipes/:id/
func (ctrl *RecipeController) UpdateRecipe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id", "recipe")
	if !ok {
		return
	}

	var input service.RecipeInput
	if c.Request.Method == http.MethodPut {
		var req CreateRecipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid recipe request", map[string]interface{}{
				"recipe_id": id,
				"error":     err.Error(),
			})
			apperrors.RespondWithValidationError(c, validationFields(err))
			return
		}
		input = req.input()
	} else {
		var req UpdateRecipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid recipe request", map[string]interface{}{
				"recipe_id": id,
				"error":     err.Error(),
			})
			apperrors.RespondWithValidationError(c, validationFields(err))
			return
		}
		input = req.input()
	}

	recipe, err := ctrl.recipeService.UpdateRecipe(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, log, err, "update recipe", map[string]interface{}{
			"recipe_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, newRecipeResponse(recipe, true))
}

// DeleteRecipe removes a catalog entry and the cart lines that point at it (admin only)
// DELETE /api/v1/recipes/:id/
func (ctrl *RecipeController) DeleteRecipe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := pathID(c, "id", "recipe")
	if !ok {
		return
	}

	if err := ctrl.recipeService.DeleteRecipe(c.Request.Context(), id); err != nil {
		respondServiceError(c, log, err, "delete recipe", map[string]interface{}{
			"recipe_id": id,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

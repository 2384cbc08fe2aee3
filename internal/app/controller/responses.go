package controller

import (
	"time"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/service"
	"github.com/shopspring/decimal"
)

// formatMoney renders an amount with exactly two decimals ("19.98").
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newCategoryResponse(category *model.Category) *CategoryResponse {
	if category == nil {
		return nil
	}
	return &CategoryResponse{ID: category.ID, Name: category.Name}
}

// RecipeSummary is the recipe as embedded in cart lines.
type RecipeSummary struct {
	ID       uint              `json:"id"`
	Title    string            `json:"title"`
	Price    string            `json:"price"`
	Category *CategoryResponse `json:"category"`
	ImageURL string            `json:"image_url"`
}

func newRecipeSummary(recipe *model.Recipe) RecipeSummary {
	return RecipeSummary{
		ID:       recipe.ID,
		Title:    recipe.Title,
		Price:    formatMoney(recipe.Price),
		Category: newCategoryResponse(recipe.Category),
		ImageURL: recipe.ImageURL,
	}
}

type CartItemResponse struct {
	ID         uint          `json:"id"`
	RecipeID   uint          `json:"recipe_id"`
	Recipe     RecipeSummary `json:"recipe"`
	Quantity   int           `json:"quantity"`
	Price      string        `json:"price"`
	TotalPrice string        `json:"total_price"`
	AddedAt    time.Time     `json:"added_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func newCartItemResponse(item *model.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:         item.ID,
		RecipeID:   item.RecipeID,
		Recipe:     newRecipeSummary(&item.Recipe),
		Quantity:   item.Quantity,
		Price:      formatMoney(item.Price),
		TotalPrice: formatMoney(item.TotalPrice()),
		AddedAt:    item.AddedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

type CartResponse struct {
	ID         uint               `json:"id"`
	UserID     uint               `json:"user_id"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice string             `json:"total_price"`
	ItemCount  int                `json:"item_count"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func newCartResponse(summary *service.CartSummary) CartResponse {
	items := make([]CartItemResponse, 0, len(summary.Cart.Items))
	for i := range summary.Cart.Items {
		items = append(items, newCartItemResponse(&summary.Cart.Items[i]))
	}
	return CartResponse{
		ID:         summary.Cart.ID,
		UserID:     summary.Cart.UserID,
		Items:      items,
		TotalPrice: formatMoney(summary.TotalPrice),
		ItemCount:  summary.ItemCount,
		CreatedAt:  summary.Cart.CreatedAt,
		UpdatedAt:  summary.Cart.UpdatedAt,
	}
}

type RecipeResponse struct {
	ID           uint              `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Instructions string            `json:"instructions,omitempty"`
	Ingredients  string            `json:"ingredients,omitempty"`
	PrepTime     int               `json:"prep_time"`
	CookTime     int               `json:"cook_time"`
	Servings     int               `json:"servings"`
	Price        string            `json:"price"`
	Category     *CategoryResponse `json:"category"`
	Tags         []string          `json:"tags"`
	ImageURL     string            `json:"image_url"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func newRecipeResponse(recipe *model.Recipe, withBody bool) RecipeResponse {
	resp := RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		Description: recipe.Description,
		PrepTime:    recipe.PrepTime,
		CookTime:    recipe.CookTime,
		Servings:    recipe.Servings,
		Price:       formatMoney(recipe.Price),
		Category:    newCategoryResponse(recipe.Category),
		Tags:        []string(recipe.Tags),
		ImageURL:    recipe.ImageURL,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if withBody {
		resp.Instructions = recipe.Instructions
		resp.Ingredients = recipe.Ingredients
	}
	return resp
}

type RecipeDetailResponse struct {
	RecipeResponse
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

type RecipeListResponse struct {
	Results    []RecipeResponse `json:"results"`
	Count      int64            `json:"count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

type ReviewAuthor struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type ReviewResponse struct {
	ID        uint         `json:"id"`
	RecipeID  uint         `json:"recipe_id"`
	User      ReviewAuthor `json:"user"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment"`
	ImageURLs []string     `json:"image_urls"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newReviewResponse(review *model.Review) ReviewResponse {
	images := []string(review.ImageURLs)
	if images == nil {
		images = []string{}
	}
	return ReviewResponse{
		ID:        review.ID,
		RecipeID:  review.RecipeID,
		User:      ReviewAuthor{ID: review.User.ID, Username: review.User.Username},
		Rating:    review.Rating,
		Comment:   review.Comment,
		ImageURLs: images,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}

type OrderItemResponse struct {
	ID         uint   `json:"id"`
	RecipeID   uint   `json:"recipe_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type PaymentResponse struct {
	ID          uint                `json:"id"`
	Provider    string              `json:"provider"`
	Status      model.PaymentStatus `json:"status"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type OrderResponse struct {
	ID          uint                `json:"id"`
	Status      model.OrderStatus   `json:"status"`
	TotalAmount string              `json:"total_amount"`
	Items       []OrderItemResponse `json:"items"`
	Payment     *PaymentResponse    `json:"payment,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func newOrderResponse(order *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items = append(items, OrderItemResponse{
			ID:         item.ID,
			RecipeID:   item.RecipeID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  formatMoney(item.UnitPrice),
			TotalPrice: formatMoney(item.TotalPrice()),
		})
	}

	resp := OrderResponse{
		ID:          order.ID,
		Status:      order.Status,
		TotalAmount: formatMoney(order.TotalAmount),
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	if p := order.Payment; p != nil {
		resp.Payment = &PaymentResponse{
			ID:          p.ID,
			Provider:    p.Provider,
			Status:      p.Status,
			Amount:      formatMoney(p.Amount),
			Currency:    p.Currency,
			CompletedAt: p.CompletedAt,
		}
	}
	return resp
}

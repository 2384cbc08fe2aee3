package router

import (
	"net/http"

	"github.com/eternaldev/recipe-backend/config"
	"github.com/eternaldev/recipe-backend/internal/app/controller"
	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	cartController    *controller.CartController
	recipeController  *controller.RecipeController
	reviewController  *controller.ReviewController
	paymentController *controller.PaymentController
	uploadController  *controller.UploadController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	recipeController *controller.RecipeController,
	reviewController *controller.ReviewController,
	paymentController *controller.PaymentController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:    cartController,
		recipeController:  recipeController,
		reviewController:  reviewController,
		paymentController: paymentController,
		uploadController:  uploadController,
		authMiddleware:    authMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Recipe API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		recipes := v1.Group("/recipes")
		{
			recipes.GET("/", r.recipeController.ListRecipes)
			recipes.GET("/:id/", r.recipeController.GetRecipe)
			recipes.GET("/:id/reviews/", r.reviewController.ListRecipeReviews)
			recipes.POST("/:id/reviews/", r.authMiddleware.Authenticate(), r.reviewController.CreateReview)
		}

		adminRecipes := v1.Group("/recipes")
		adminRecipes.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			adminRecipes.POST("/", r.recipeController.CreateRecipe)
			adminRecipes.PUT("/:id/", r.recipeController.UpdateRecipe)
			adminRecipes.PATCH("/:id/", r.recipeController.UpdateRecipe)
			adminRecipes.DELETE("/:id/", r.recipeController.DeleteRecipe)
		}

		v1.GET("/categories/", r.recipeController.ListCategories)

		reviews := v1.Group("/reviews")
		reviews.Use(r.authMiddleware.Authenticate())
		{
			reviews.PATCH("/:id/", r.reviewController.UpdateReview)
			reviews.DELETE("/:id/", r.reviewController.DeleteReview)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("/", r.cartController.GetCart)
			cart.GET("/count/", r.cartController.GetCartCount)
			cart.DELETE("/clear/", r.cartController.ClearCart)
			cart.POST("/items/", r.cartController.AddToCart)
			cart.PATCH("/items/:id/", r.cartController.UpdateCartItem)
			cart.PUT("/items/:id/", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:id/", r.cartController.RemoveFromCart)
		}

		payments := v1.Group("/payments")
		payments.Use(r.authMiddleware.Authenticate())
		{
			payments.POST("/intent/", r.paymentController.CreatePaymentIntent)
			payments.POST("/:order_id/confirm/", r.paymentController.ConfirmPayment)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("/", r.paymentController.ListOrders)
			orders.GET("/:id/", r.paymentController.GetOrder)
		}

		if r.uploadController != nil {
			v1.POST("/uploads/presigned-url/", r.authMiddleware.Authenticate(), r.uploadController.GeneratePresignedURL)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.DELETE("/users/:user_id/cart/", r.cartController.DeleteUserCart)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

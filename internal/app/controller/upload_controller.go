package controller

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/eternaldev/recipe-backend/internal/errors"
	"github.com/eternaldev/recipe-backend/internal/middleware"
	"github.com/eternaldev/recipe-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// Presigner issues upload URLs; *storage.S3Storage implements it.
type Presigner interface {
	GeneratePresignedURL(ctx context.Context, filename, contentType, folder string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	storage Presigner
}

func NewUploadController(storage Presigner) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL returns a PUT URL for a review image
// POST /api/v1/uploads/presigned-url/
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid presigned URL request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	response, err := ctrl.storage.GeneratePresignedURL(c.Request.Context(), req.Filename, req.ContentType, storage.ReviewImagesFolder)
	if err != nil {
		if errors.Is(err, storage.ErrContentTypeNotAllowed) {
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate upload URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"user_id": userID,
		"key":     response.Key,
	})

	c.JSON(http.StatusOK, response)
}

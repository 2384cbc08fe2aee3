package model

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of a recipe; a user reviews a recipe at most once.
type Review struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	RecipeID  uint        `gorm:"not null;uniqueIndex:idx_review_recipe_user" json:"recipe_id"`
	UserID    uint        `gorm:"not null;uniqueIndex:idx_review_recipe_user;index" json:"user_id"`
	Rating    int         `gorm:"not null;check:chk_reviews_rating,rating BETWEEN 1 AND 5" json:"rating"`
	Comment   string      `gorm:"type:text" json:"comment"`
	ImageURLs StringArray `json:"image_urls"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Recipe Recipe `gorm:"foreignKey:RecipeID" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`
}

func (Review) TableName() string {
	return "reviews"
}

// RatingSummary is the aggregate shown on a recipe detail page.
type RatingSummary struct {
	RecipeID      uint    `json:"recipe_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

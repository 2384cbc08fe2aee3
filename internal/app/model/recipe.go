package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Recipe struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	Title        string          `gorm:"not null;size:255;index" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Instructions string          `gorm:"type:text" json:"instructions"`
	Ingredients  string          `gorm:"type:text" json:"ingredients"`
	PrepTime     int             `gorm:"not null;default:0" json:"prep_time"` // minutes
	CookTime     int             `gorm:"not null;default:0" json:"cook_time"` // minutes
	Servings     int             `gorm:"not null;default:1" json:"servings"`
	Price        decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
	CategoryID   *uint           `gorm:"index" json:"category_id,omitempty"`
	Tags         StringArray     `json:"tags"`
	ImageURL     string          `json:"image_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

func (Recipe) TableName() string {
	return "recipes"
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one user and is created on first access.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  User       `gorm:"foreignKey:UserID" json:"-"`
	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

func (Cart) TableName() string {
	return "carts"
}

// TotalPrice is the exact sum of every line total.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].TotalPrice())
	}
	return total
}

// ItemCount sums quantities, so two units of one recipe count as two.
func (c *Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// CartItem has no soft delete: a deleted row must release its (cart, recipe) key.
type CartItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CartID    uint            `gorm:"not null;uniqueIndex:idx_cart_recipe" json:"cart_id"`
	RecipeID  uint            `gorm:"not null;uniqueIndex:idx_cart_recipe;index" json:"recipe_id"`
	Quantity  int             `gorm:"not null;default:1;check:chk_cart_items_quantity,quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"` // unit price when first added
	AddedAt   time.Time       `gorm:"autoCreateTime" json:"added_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Recipe Recipe `gorm:"foreignKey:RecipeID" json:"recipe"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i *CartItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

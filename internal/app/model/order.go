package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // awaiting payment
	OrderStatusPaid      OrderStatus = "paid"      // payment succeeded
	OrderStatusCancelled OrderStatus = "cancelled" // payment failed, expired or provider error

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
)

// IsFinal reports whether the payment can no longer change state.
func (s PaymentStatus) IsFinal() bool {
	return s != PaymentStatusPending
}

// Order is an immutable copy of a cart taken at checkout.
type Order struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	RecipeID  uint            `gorm:"not null;index" json:"recipe_id"`
	Title     string          `gorm:"not null" json:"title"` // recipe title at checkout
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment tracks the provider-side payment intent for an order.
type Payment struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	OrderID           uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Provider          string          `gorm:"type:varchar(30);not null" json:"provider"`
	ProviderPaymentID string          `gorm:"type:varchar(255);index" json:"provider_payment_id"`
	ClientSecret      string          `gorm:"type:varchar(255)" json:"-"`
	IdempotencyKey    string          `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status            PaymentStatus   `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

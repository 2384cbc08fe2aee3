package repository

import (
	"context"
	"time"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(ctx context.Context, payment *model.Payment) error
	FindByOrderIDForUpdate(ctx context.Context, orderID uint) (*model.Payment, error)
	SetIntent(ctx context.Context, paymentID uint, providerPaymentID, clientSecret string) error
	UpdateStatus(ctx context.Context, paymentID uint, status model.PaymentStatus, completedAt *time.Time) error
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		logger.Error("Failed to create payment in database", err, map[string]interface{}{
			"order_id": payment.OrderID,
		})
		return err
	}
	return nil
}

// FindByOrderIDForUpdate locks the payment row until the surrounding
// transaction ends.
func (r *paymentRepository) FindByOrderIDForUpdate(ctx context.Context, orderID uint) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) SetIntent(ctx context.Context, paymentID uint, providerPaymentID, clientSecret string) error {
	return r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"provider_payment_id": providerPaymentID,
			"client_secret":       clientSecret,
		}).Error
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID uint, status model.PaymentStatus, completedAt *time.Time) error {
	logger.Debug("Updating payment status in database", map[string]interface{}{
		"payment_id": paymentID,
		"status":     status,
	})

	if err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
		}).Error; err != nil {
		logger.Error("Failed to update payment status", err, map[string]interface{}{
			"payment_id": paymentID,
		})
		return err
	}
	return nil
}

func (r *paymentRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Payment, error) {
	var payments []model.Payment
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.PaymentStatusPending, before).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&payments).Error; err != nil {
		logger.Error("Failed to find stale pending payments", err)
		return nil, err
	}
	return payments, nil
}

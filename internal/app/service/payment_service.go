package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/pkg/logger"
	"github.com/eternaldev/recipe-backend/pkg/payment/stripe"
	"github.com/eternaldev/recipe-backend/pkg/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const paymentProvider = "stripe"

var (
	ErrOrderNotFound              = errors.New("order not found")
	ErrEmptyCart                  = errors.New("cart is empty")
	ErrPaymentAlreadyProcessed    = errors.New("payment already processed")
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
)

// PaymentGateway is the provider surface checkout depends on.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req stripe.CreateIntentRequest) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

var errGatewayNotConfigured = errors.New("payment provider is not configured")

// unconfiguredGateway fails every call; it stands in when no provider key is set.
type unconfiguredGateway struct{}

func (unconfiguredGateway) CreatePaymentIntent(context.Context, stripe.CreateIntentRequest) (*stripe.PaymentIntent, error) {
	return nil, errGatewayNotConfigured
}

func (unconfiguredGateway) GetPaymentIntent(context.Context, string) (*stripe.PaymentIntent, error) {
	return nil, errGatewayNotConfigured
}

func (unconfiguredGateway) CancelPaymentIntent(context.Context, string) (*stripe.PaymentIntent, error) {
	return nil, errGatewayNotConfigured
}

type PaymentOptions struct {
	Currency   string
	PendingTTL time.Duration
}

// CheckoutResult is what a client needs to complete payment on its side.
type CheckoutResult struct {
	Order        *model.Order
	Payment      *model.Payment
	ClientSecret string
}

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, userID uint, currency string) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, userID, orderID uint) (*model.Order, error)
	ListOrders(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID uint) (*model.Order, error)
	ExpireStalePayments(ctx context.Context, now time.Time) (int, error)
}

type paymentService struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	gateway     PaymentGateway
	opts        PaymentOptions
}

func NewPaymentService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	gateway PaymentGateway,
	opts PaymentOptions,
) PaymentService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 30 * time.Minute
	}
	if gateway == nil {
		gateway = unconfiguredGateway{}
	}
	return &paymentService{
		db:          db,
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		opts:        opts,
	}
}

// CreatePaymentIntent snapshots the cart into a pending order and opens a
// payment intent for its total. The cart itself is left untouched until the
// payment succeeds.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, userID uint, currency string) (*CheckoutResult, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.opts.Currency
	}

	var order *model.Order
	var payment *model.Payment
	var minor int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.cartRepo.WithTx(tx).FindWithItemsByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		total := cart.TotalPrice()
		if minor, err = util.ToMinorUnits(total, currency); err != nil {
			return fmt.Errorf("convert order total %s %s: %w", total, currency, err)
		}

		order = &model.Order{
			UserID:      userID,
			TotalAmount: total,
			Status:      model.OrderStatusPending,
			Items:       make([]model.OrderItem, 0, len(cart.Items)),
		}
		for _, item := range cart.Items {
			order.Items = append(order.Items, model.OrderItem{
				RecipeID:  item.RecipeID,
				Title:     item.Recipe.Title,
				Quantity:  item.Quantity,
				UnitPrice: item.Price,
			})
		}
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		payment = &model.Payment{
			OrderID:        order.ID,
			Provider:       paymentProvider,
			IdempotencyKey: uuid.NewString(),
			Amount:         total,
			Currency:       currency,
			Status:         model.PaymentStatusPending,
		}
		return s.paymentRepo.WithTx(tx).Create(ctx, payment)
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyCart) {
			logger.Error("Failed to create order from cart", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripe.CreateIntentRequest{
		Amount:      minor,
		Currency:    currency,
		Description: fmt.Sprintf("Recipe order #%d", order.ID),
		Metadata: map[string]string{
			"order_id":   strconv.FormatUint(uint64(order.ID), 10),
			"payment_id": strconv.FormatUint(uint64(payment.ID), 10),
			"user_id":    strconv.FormatUint(uint64(userID), 10),
		},
		IdempotencyKey: payment.IdempotencyKey,
	})
	if err != nil {
		logger.Error("Payment provider rejected intent creation", err, map[string]interface{}{
			"order_id": order.ID,
			"amount":   minor,
			"currency": currency,
		})
		if abortErr := s.abort(ctx, order.ID, payment.ID, model.PaymentStatusFailed); abortErr != nil {
			logger.Error("Failed to cancel order after provider error", abortErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderUnavailable, err)
	}

	if err := s.paymentRepo.SetIntent(ctx, payment.ID, intent.ID, intent.ClientSecret); err != nil {
		return nil, err
	}
	payment.ProviderPaymentID = intent.ID
	payment.ClientSecret = intent.ClientSecret

	logger.Info("Payment intent created", map[string]interface{}{
		"user_id":    userID,
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"intent_id":  intent.ID,
		"amount":     minor,
		"currency":   currency,
	})
	return &CheckoutResult{
		Order:        order,
		Payment:      payment,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment polls the provider and settles the order when the intent
// reached a final state.
func (s *paymentService) ConfirmPayment(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, ErrOrderNotFound
	}
	if order.Payment.Status.IsFinal() {
		return nil, ErrPaymentAlreadyProcessed
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, order.Payment.ProviderPaymentID)
	if err != nil {
		logger.Error("Failed to fetch payment intent", err, map[string]interface{}{
			"order_id":  orderID,
			"intent_id": order.Payment.ProviderPaymentID,
		})
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderUnavailable, err)
	}

	next := s.nextStatus(order.Payment, intent)
	if next == model.PaymentStatusPending {
		logger.Debug("Payment still pending at provider", map[string]interface{}{
			"order_id":      orderID,
			"intent_status": intent.Status,
		})
		return order, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.WithTx(tx).FindByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if payment.Status.IsFinal() {
			return ErrPaymentAlreadyProcessed
		}

		now := time.Now()
		if err := s.paymentRepo.WithTx(tx).UpdateStatus(ctx, payment.ID, next, &now); err != nil {
			return err
		}

		if next != model.PaymentStatusSucceeded {
			return s.orderRepo.WithTx(tx).UpdateStatus(ctx, orderID, model.OrderStatusCancelled)
		}
		if err := s.orderRepo.WithTx(tx).UpdateStatus(ctx, orderID, model.OrderStatusPaid); err != nil {
			return err
		}

		carts := s.cartRepo.WithTx(tx)
		cart, err := carts.FindByUserID(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// only what was paid for leaves the cart; later additions stay
		for _, item := range order.Items {
			if err := carts.DeductItem(ctx, cart.ID, item.RecipeID, item.Quantity); err != nil {
				return err
			}
		}
		return carts.Touch(ctx, cart.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentAlreadyProcessed) {
			logger.Error("Failed to settle payment", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, err
	}

	logger.Info("Payment settled", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
		"status":   next,
	})
	return s.GetOrder(ctx, userID, orderID)
}

func (s *paymentService) nextStatus(payment *model.Payment, intent *stripe.PaymentIntent) model.PaymentStatus {
	switch intent.Status {
	case stripe.StatusSucceeded:
		expected, err := util.ToMinorUnits(payment.Amount, payment.Currency)
		if err != nil || intent.Amount != expected || !strings.EqualFold(intent.Currency, payment.Currency) {
			logger.Error("Payment intent does not match order amount", err, map[string]interface{}{
				"payment_id":      payment.ID,
				"expected_amount": expected,
				"intent_amount":   intent.Amount,
				"intent_currency": intent.Currency,
			})
			return model.PaymentStatusFailed
		}
		return model.PaymentStatusSucceeded
	case stripe.StatusCanceled:
		return model.PaymentStatusFailed
	case stripe.StatusRequiresPaymentMethod:
		// a fresh intent also starts here; only a recorded attempt failed
		if intent.LastPaymentError != nil {
			return model.PaymentStatusFailed
		}
	}
	return model.PaymentStatusPending
}

func (s *paymentService) ListOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (s *paymentService) GetOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ExpireStalePayments marks pending payments older than the pending TTL as
// expired and cancels their orders. It returns how many were expired.
func (s *paymentService) ExpireStalePayments(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.paymentRepo.FindPendingBefore(ctx, now.Add(-s.opts.PendingTTL), 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, payment := range stale {
		if err := s.abort(ctx, payment.OrderID, payment.ID, model.PaymentStatusExpired); err != nil {
			if errors.Is(err, ErrPaymentAlreadyProcessed) {
				continue
			}
			logger.Error("Failed to expire payment", err, map[string]interface{}{
				"payment_id": payment.ID,
				"order_id":   payment.OrderID,
			})
			continue
		}
		expired++

		if payment.ProviderPaymentID == "" {
			continue
		}
		if _, err := s.gateway.CancelPaymentIntent(ctx, payment.ProviderPaymentID); err != nil {
			logger.Warn("Failed to cancel expired payment intent", map[string]interface{}{
				"payment_id": payment.ID,
				"intent_id":  payment.ProviderPaymentID,
				"error":      err.Error(),
			})
		}
	}

	if expired > 0 {
		logger.Info("Expired stale payments", map[string]interface{}{
			"count": expired,
		})
	}
	return expired, nil
}

// abort moves a still-pending payment to status and cancels its order.
func (s *paymentService) abort(ctx context.Context, orderID, paymentID uint, status model.PaymentStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.WithTx(tx).FindByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if payment.ID != paymentID || payment.Status.IsFinal() {
			return ErrPaymentAlreadyProcessed
		}

		now := time.Now()
		if err := s.paymentRepo.WithTx(tx).UpdateStatus(ctx, paymentID, status, &now); err != nil {
			return err
		}
		return s.orderRepo.WithTx(tx).UpdateStatus(ctx, orderID, model.OrderStatusCancelled)
	})
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eternaldev/recipe-backend/internal/app/model"
	"github.com/eternaldev/recipe-backend/internal/app/repository"
	"github.com/eternaldev/recipe-backend/pkg/payment/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	intents   map[string]*stripe.PaymentIntent
	requests  []stripe.CreateIntentRequest
	cancelled []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*stripe.PaymentIntent{}}
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req stripe.CreateIntentRequest) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.requests = append(g.requests, req)
	id := "pi_" + req.Metadata["order_id"]
	intent := &stripe.PaymentIntent{
		ID:           id,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       stripe.StatusRequiresPaymentMethod,
		ClientSecret: id + "_secret",
	}
	g.intents[id] = intent
	return intent, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, stripe.ErrNotFound
	}
	copied := *intent
	return &copied, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, id)
	if intent, ok := g.intents[id]; ok {
		intent.Status = stripe.StatusCanceled
		return intent, nil
	}
	return nil, stripe.ErrNotFound
}

func (g *fakeGateway) setStatus(id string, status stripe.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
}

type paymentFixture struct {
	db       *gorm.DB
	carts    CartService
	payments PaymentService
	gateway  *fakeGateway
	user     *model.User
}

func setupPaymentServiceTest(t *testing.T) *paymentFixture {
	cartService, testDB := setupCartServiceTest(t)
	gateway := newFakeGateway()

	payments := NewPaymentService(
		testDB,
		repository.NewCartRepository(testDB),
		repository.NewOrderRepository(testDB),
		repository.NewPaymentRepository(testDB),
		gateway,
		PaymentOptions{Currency: "usd", PendingTTL: 30 * time.Minute},
	)

	return &paymentFixture{
		db:       testDB,
		carts:    cartService,
		payments: payments,
		gateway:  gateway,
		user:     createUser(t, testDB, "buyer"),
	}
}

func (f *paymentFixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pasta := createRecipe(t, f.db, "Pasta", "9.99")
	salad := createRecipe(t, f.db, "Salad", "5.00")
	_, _, err := f.carts.AddItem(ctx, f.user.ID, pasta.ID, 5)
	require.NoError(t, err)
	_, _, err = f.carts.AddItem(ctx, f.user.ID, salad.ID, 1)
	require.NoError(t, err)
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.True(t, result.Order.TotalAmount.Equal(money("54.95")))
	assert.Equal(t, model.OrderStatusPending, result.Order.Status)
	require.Len(t, result.Order.Items, 2)
	assert.Equal(t, "Pasta", result.Order.Items[0].Title)
	assert.True(t, result.Order.Items[0].UnitPrice.Equal(money("9.99")))
	assert.NotEmpty(t, result.ClientSecret)
	assert.Equal(t, "usd", result.Payment.Currency)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, int64(5495), req.Amount)
	assert.Equal(t, result.Payment.IdempotencyKey, req.IdempotencyKey)
	assert.NotEmpty(t, req.IdempotencyKey)

	count, err := f.carts.ItemCount(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, count, "cart is kept until payment succeeds")
}

func TestPaymentService_CreatePaymentIntent_EmptyCart(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()

	_, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.carts.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	_, err = f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	assert.ErrorIs(t, err, ErrEmptyCart)

	var orders int64
	f.db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestPaymentService_CreatePaymentIntent_ProviderFailure(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)
	f.gateway.createErr = errors.New("boom")

	_, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	assert.ErrorIs(t, err, ErrPaymentProviderUnavailable)
	assert.Equal(t, KindUnavailable, KindOf(err))

	orders, err := f.payments.ListOrders(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusCancelled, orders[0].Status)
	require.NotNil(t, orders[0].Payment)
	assert.Equal(t, model.PaymentStatusFailed, orders[0].Payment.Status)
}

func TestPaymentService_ConfirmPayment_Succeeded(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	require.NoError(t, err)

	pending, err := f.payments.ConfirmPayment(ctx, f.user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, pending.Status)

	f.gateway.setStatus(result.Payment.ProviderPaymentID, stripe.StatusSucceeded)

	paid, err := f.payments.ConfirmPayment(ctx, f.user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.Payment)
	assert.Equal(t, model.PaymentStatusSucceeded, paid.Payment.Status)
	assert.NotNil(t, paid.Payment.CompletedAt)

	count, err := f.carts.ItemCount(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.payments.ConfirmPayment(ctx, f.user.ID, result.Order.ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyProcessed)
}

func TestPaymentService_ConfirmPayment_KeepsItemsAddedAfterCheckout(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	require.NoError(t, err)

	soup := createRecipe(t, f.db, "Soup", "7.25")
	_, _, err = f.carts.AddItem(ctx, f.user.ID, soup.ID, 2)
	require.NoError(t, err)
	pastaID := result.Order.Items[0].RecipeID
	_, _, err = f.carts.AddItem(ctx, f.user.ID, pastaID, 1)
	require.NoError(t, err)

	f.gateway.setStatus(result.Payment.ProviderPaymentID, stripe.StatusSucceeded)
	paid, err := f.payments.ConfirmPayment(ctx, f.user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, paid.Status)

	summary, err := f.carts.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Cart.Items, 2)

	quantities := make(map[uint]int)
	for _, item := range summary.Cart.Items {
		quantities[item.RecipeID] = item.Quantity
	}
	assert.Equal(t, map[uint]int{pastaID: 1, soup.ID: 2}, quantities)
	assert.Equal(t, 3, summary.ItemCount)
	assert.True(t, summary.TotalPrice.Equal(money("24.49")), summary.TotalPrice.String())
}

func TestPaymentService_ConfirmPayment_Canceled(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	require.NoError(t, err)
	f.gateway.setStatus(result.Payment.ProviderPaymentID, stripe.StatusCanceled)

	order, err := f.payments.ConfirmPayment(ctx, f.user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, model.PaymentStatusFailed, order.Payment.Status)

	count, err := f.carts.ItemCount(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestPaymentService_GetOrder_OtherUser(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)
	stranger := createUser(t, f.db, "stranger")

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	require.NoError(t, err)

	_, err = f.payments.GetOrder(ctx, stranger.ID, result.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.payments.ConfirmPayment(ctx, stranger.ID, result.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentService_ExpireStalePayments(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	f.fillCart(t)

	result, err := f.payments.CreatePaymentIntent(ctx, f.user.ID, "usd")
	require.NoError(t, err)

	expired, err := f.payments.ExpireStalePayments(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = f.payments.ExpireStalePayments(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, []string{result.Payment.ProviderPaymentID}, f.gateway.cancelled)

	order, err := f.payments.GetOrder(ctx, f.user.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, model.PaymentStatusExpired, order.Payment.Status)

	expired, err = f.payments.ExpireStalePayments(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestPaymentService_UnconfiguredGateway(t *testing.T) {
	cartService, testDB := setupCartServiceTest(t)
	ctx := context.Background()
	user := createUser(t, testDB, "buyer")
	recipe := createRecipe(t, testDB, "Pasta", "9.99")
	_, _, err := cartService.AddItem(ctx, user.ID, recipe.ID, 1)
	require.NoError(t, err)

	payments := NewPaymentService(
		testDB,
		repository.NewCartRepository(testDB),
		repository.NewOrderRepository(testDB),
		repository.NewPaymentRepository(testDB),
		nil,
		PaymentOptions{},
	)

	_, err = payments.CreatePaymentIntent(ctx, user.ID, "")
	assert.ErrorIs(t, err, ErrPaymentProviderUnavailable)
}

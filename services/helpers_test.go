package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/realtime"
	"go-storefront/repository"
	"go-storefront/repository/memory"
	"go-storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg utils.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []utils.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]utils.Message{}, m.sent...)
}

func (m *recordingMailer) to(addr string) []utils.Message {
	var out []utils.Message
	for _, msg := range m.messages() {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store     *repository.Store
	mailer    *recordingMailer
	publisher *recordingPublisher
	runner    *TaskRunner
	notifier  *Notifier
	coupons   *CouponService
	tokens    *ReviewTokenService
	reviews   *ReviewService
	orders    *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	f := &fixture{
		store:     memory.NewStore(),
		mailer:    &recordingMailer{},
		publisher: &recordingPublisher{},
		runner:    NewTaskRunner(log, time.Second),
	}
	f.notifier = NewNotifier(f.mailer, f.store.Admins, "BLYNK-", log)
	f.coupons = NewCouponService(f.store.Coupons, log)
	f.tokens = NewReviewTokenService(f.store, "https://shop.example", log)
	f.reviews = NewReviewService(f.store, log)
	f.orders = f.orderService(f.store)
	t.Cleanup(f.runner.Wait)
	return f
}

// orderService builds an OrderService over store, which may wrap the fixture's repositories
func (f *fixture) orderService(store *repository.Store) *OrderService {
	return NewOrderService(store, f.coupons, f.tokens, f.notifier, f.publisher, f.runner, logger.Discard())
}

func (f *fixture) product(t *testing.T, name string, price float64, qty int, opts ...func(*models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Quantity: qty}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, f.store.Products.Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.store.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

// deliveredOrder stores a delivered order for user containing products and issues its tokens
func (f *fixture) deliveredOrder(t *testing.T, user string, products ...*models.Product) (*models.Order, []models.ReviewToken) {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{
		UserID:      user,
		Status:      models.StatusDelivered,
		UserDetails: models.UserDetails{Name: "Asha", Email: "asha@example.com"},
	}
	for _, p := range products {
		order.Cart = append(order.Cart, models.OrderLine{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
	}
	require.NoError(t, f.store.Orders.Create(ctx, order))
	_, err := f.tokens.IssueForOrder(ctx, order)
	require.NoError(t, err)

	stored, err := f.store.Orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	tokens, err := f.store.ReviewTokens.ListByIDs(ctx, stored.ReviewTokens)
	require.NoError(t, err)
	return stored, tokens
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

var errBoom = errors.New("boom")

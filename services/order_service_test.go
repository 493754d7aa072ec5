package services

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go-storefront/apperrors"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func checkout(user string, items ...models.CartItem) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:      user,
		UserDetails: models.UserDetails{Name: "Asha", Email: "asha@example.com", City: "Kathmandu"},
		Cart:        items,
	}
}

func line(p *models.Product, qty int) models.CartItem {
	return models.CartItem{ProductID: p.ID, Quantity: qty}
}

func TestPlaceOrderDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)

	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)

	assert.Equal(t, 3, f.stock(t, mug.ID))
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 500.0, order.Subtotal)
	assert.Equal(t, 500.0, order.Total)
	assert.Empty(t, order.ReviewTokens)
	require.Len(t, order.Cart, 1)
	assert.Equal(t, "Mug", order.Cart[0].Name)
}

func TestPlaceOrderInsufficientStockLeavesStockUntouched(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 250, 5)

	_, err := f.orders.PlaceOrder(context.Background(), checkout("u1", line(mug, 10)))
	assertCode(t, err, apperrors.CodeInsufficientStock)
	assert.Contains(t, err.Error(), "Mug")
	assert.Equal(t, 5, f.stock(t, mug.ID))
}

func TestPlaceOrderRestoresEarlierLinesOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	lamp := f.product(t, "Lamp", 1200, 1)

	_, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2), line(lamp, 3)))
	assertCode(t, err, apperrors.CodeInsufficientStock)

	assert.Equal(t, 5, f.stock(t, mug.ID))
	assert.Equal(t, 1, f.stock(t, lamp.ID))
	orders, err := f.store.Orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderUnknownProductRollsBack(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 250, 5)

	_, err := f.orders.PlaceOrder(context.Background(),
		checkout("u1", line(mug, 1), models.CartItem{ProductID: primitive.NewObjectID(), Quantity: 1}))
	assertCode(t, err, apperrors.CodeProductNotFound)
	assert.Equal(t, 5, f.stock(t, mug.ID))
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 250, 5)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, checkout("u1"))
	assertCode(t, err, apperrors.CodeMissingCart)

	_, err = f.orders.PlaceOrder(ctx, checkout("", line(mug, 1)))
	assertCode(t, err, apperrors.CodeMissingCart)

	_, err = f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 0)))
	assertCode(t, err, apperrors.CodeValidation)
	assert.Equal(t, 5, f.stock(t, mug.ID))
}

func TestPlaceOrderMergesRepeatedLines(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 100, 5)

	order, err := f.orders.PlaceOrder(context.Background(), checkout("u1", line(mug, 1), line(mug, 2)))
	require.NoError(t, err)
	require.Len(t, order.Cart, 1)
	assert.Equal(t, 3, order.Cart[0].Quantity)
	assert.Equal(t, 2, f.stock(t, mug.ID))
}

func TestPlaceOrderRejectsOversizedQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)

	tests := []struct {
		name string
		cart []models.CartItem
	}{
		{"overflowing merge", []models.CartItem{line(mug, math.MaxInt), line(mug, 2)}},
		{"single line over cap", []models.CartItem{line(mug, models.MaxLineQuantity+1)}},
		{"merged lines over cap", []models.CartItem{line(mug, models.MaxLineQuantity), line(mug, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.PlaceOrder(ctx, checkout("u1", tt.cart...))
			assertCode(t, err, apperrors.CodeValidation)
			assert.Equal(t, 5, f.stock(t, mug.ID))
		})
	}

	orders, err := f.store.Orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Settings.SetDeliveryCharge(ctx, 150)
	require.NoError(t, err)

	sale := f.product(t, "Sale", 1000, 5, func(p *models.Product) { p.SalePrice = 800; p.DiscountPercent = 50 })
	pct := f.product(t, "Percent", 1000, 5, func(p *models.Product) { p.DiscountPercent = 25 })
	free := f.product(t, "Free", 100, 5, func(p *models.Product) { p.FreeDelivery = true })

	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(sale, 1), line(pct, 2)))
	require.NoError(t, err)
	assert.Equal(t, 800.0, order.Cart[0].Price)
	assert.Equal(t, 750.0, order.Cart[1].Price)
	assert.Equal(t, 2300.0, order.Subtotal)
	assert.Equal(t, 150.0, order.DeliveryCharge)
	assert.Equal(t, 2450.0, order.Total)

	order, err = f.orders.PlaceOrder(ctx, checkout("u1", line(free, 1)))
	require.NoError(t, err)
	assert.Zero(t, order.DeliveryCharge)
	assert.Equal(t, 100.0, order.Total)
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	_, err := f.coupons.Create(ctx, CreateCouponInput{
		Code: "save10", DiscountPercent: 10, MinPrice: 1000,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
	})
	require.NoError(t, err)
	lamp := f.product(t, "Lamp", 1200, 5)

	in := checkout("u1", line(lamp, 1))
	in.CouponCode = " Save10 "
	order, err := f.orders.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.Equal(t, 120.0, order.Discount)
	assert.Equal(t, 1080.0, order.Total)

	small := f.product(t, "Small", 100, 5)
	in = checkout("u1", line(small, 2))
	in.CouponCode = "SAVE10"
	_, err = f.orders.PlaceOrder(ctx, in)
	assertCode(t, err, apperrors.CodeCouponBelowMinimum)
	assert.Equal(t, 5, f.stock(t, small.ID), "coupon failure must give stock back")
}

type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(context.Context, *models.Order) error { return errBoom }

func TestPlaceOrderPersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 250, 5)
	lamp := f.product(t, "Lamp", 1200, 2)

	store := *f.store
	store.Orders = failingOrders{f.store.Orders}
	svc := f.orderService(&store)

	_, err := svc.PlaceOrder(context.Background(), checkout("u1", line(mug, 2), line(lamp, 2)))
	assertCode(t, err, apperrors.CodeInternal)
	assert.Equal(t, 5, f.stock(t, mug.ID))
	assert.Equal(t, 2, f.stock(t, lamp.ID))
}

func TestPlaceOrderSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Admins.Create(ctx, &models.Admin{Email: "ops@example.com", Password: "x"}))
	require.NoError(t, f.store.Admins.Create(ctx, &models.Admin{Email: "boss@example.com", Password: "x"}))
	mug := f.product(t, "Mug", 250, 5)

	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 1)))
	require.NoError(t, err)
	f.runner.Wait()

	for _, admin := range []string{"ops@example.com", "boss@example.com"} {
		msgs := f.mailer.to(admin)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Subject, "BLYNK-"+order.ID.Hex())
	}
	users, err := f.store.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "asha@example.com", users[0].Email)
	assert.Equal(t, []string{"order_created"}, f.publisher.types())
}

func TestPlaceOrderSucceedsWhenSideEffectsFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Admins.Create(ctx, &models.Admin{Email: "ops@example.com", Password: "x"}))
	f.mailer.err = errBoom
	mug := f.product(t, "Mug", 250, 5)

	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 1)))
	require.NoError(t, err)
	f.runner.Wait()

	stored, err := f.store.Orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	users, err := f.store.Users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "guest user save is independent of email failure")
}

func TestPlaceOrderConcurrentStockConservation(t *testing.T) {
	f := newFixture(t)
	mug := f.product(t, "Mug", 250, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(context.Background(), checkout("u1", line(mug, 1)))
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
				return
			}
			assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, 0, f.stock(t, mug.ID))
}

func TestUpdateStatusLifecycleIssuesReviewTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	lamp := f.product(t, "Lamp", 1200, 5)

	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 1), line(lamp, 1), line(mug, 1)))
	require.NoError(t, err)

	for _, status := range []models.OrderStatus{models.StatusApproved, models.StatusDispatched, models.StatusDelivered} {
		order, err = f.orders.UpdateStatus(ctx, order.ID, string(status), "")
		require.NoError(t, err)
		assert.Equal(t, status, order.Status)
	}
	f.runner.Wait()

	require.Len(t, order.ReviewTokens, 2)
	tokens, err := f.store.ReviewTokens.ListByIDs(ctx, order.ReviewTokens)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	emails := f.mailer.to("asha@example.com")
	require.Len(t, emails, 3)
	var delivered utils.Message
	for _, msg := range emails {
		if msg.Subject == statusEmails[models.StatusDelivered].subject {
			delivered = msg
		}
	}
	for _, tok := range tokens {
		assert.Contains(t, delivered.HTML, "https://shop.example/review?token="+tok.Token)

		info, err := f.tokens.Verify(ctx, tok.Token, "u1")
		require.NoError(t, err)
		assert.Equal(t, order.ID, info.OrderID)
	}
	assert.ElementsMatch(t, []string{"order_created", "order_status_changed", "order_status_changed", "order_status_changed"},
		f.publisher.types())
}

func TestUpdateStatusRejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 1)))
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, order.ID, "delivered", "")
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.orders.UpdateStatus(ctx, order.ID, "shipped", "")
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.orders.UpdateStatus(ctx, primitive.NewObjectID(), "approved", "")
	assertCode(t, err, apperrors.CodeOrderNotFound)

	_, err = f.orders.UpdateStatus(ctx, order.ID, "rejected", "  ")
	assertCode(t, err, apperrors.CodeCommentRequired)

	stored, err := f.store.Orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUpdateStatusRejectionRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, mug.ID))

	order, err = f.orders.UpdateStatus(ctx, order.ID, "rejected", "Out of delivery area")
	require.NoError(t, err)
	assert.Equal(t, "Out of delivery area", order.AdminComment)
	assert.Equal(t, 5, f.stock(t, mug.ID))

	_, err = f.orders.UpdateStatus(ctx, order.ID, "approved", "")
	assertCode(t, err, apperrors.CodeInvalidTransition)
	assert.Contains(t, err.Error(), "already rejected")

	f.runner.Wait()
	emails := f.mailer.to("asha@example.com")
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].HTML, "Out of delivery area")
}

func TestUpdateStatusReturnRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)

	for _, s := range []string{"approved", "dispatched", "returned"} {
		_, err = f.orders.UpdateStatus(ctx, order.ID, s, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, f.stock(t, mug.ID))
}

type conflictingOrders struct {
	repository.OrderRepository
}

func (conflictingOrders) UpdateStatus(context.Context, primitive.ObjectID, models.OrderStatus, models.OrderStatus, string) (*models.Order, error) {
	return nil, repository.ErrStatusChanged
}

func TestUpdateStatusLostRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)

	store := *f.store
	store.Orders = conflictingOrders{f.store.Orders}
	_, err = f.orderService(&store).UpdateStatus(ctx, order.ID, "rejected", "no stock")
	assertCode(t, err, apperrors.CodeStatusConflict)
	assert.Equal(t, 3, f.stock(t, mug.ID), "loser must not restock")
}

func TestUpdateStatusConcurrentTransitionsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.UpdateStatus(ctx, order.ID, "rejected", "duplicate order")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			appErr, ok := apperrors.As(err)
			if assert.True(t, ok) {
				assert.Contains(t, []string{apperrors.CodeStatusConflict, apperrors.CodeInvalidTransition}, appErr.Code)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 5, f.stock(t, mug.ID), "restock happens once")
}

func TestListOrdersByUserIncludesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	f.deliveredOrder(t, "u1", mug)
	f.deliveredOrder(t, "u2", mug)

	orders, err := f.orders.ListOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].ReviewTokens, 1)
	assert.Equal(t, mug.ID, orders[0].ReviewTokens[0].ProductID)

	_, err = f.orders.ListOrdersByUser(ctx, "")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestExportOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 250, 5)
	order, err := f.orders.PlaceOrder(ctx, checkout("u1", line(mug, 2)))
	require.NoError(t, err)

	file, err := f.orders.ExportOrders(ctx)
	require.NoError(t, err)
	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Order ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "BLYNK-"+order.ID.Hex(), sheet.Rows[1].Cells[0].String())
	assert.True(t, strings.Contains(sheet.Rows[1].Cells[9].String(), "Mug x2"))
}

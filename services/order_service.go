package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/realtime"
	"go-storefront/repository"
	"go-storefront/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlaceOrderInput is a checkout request
type PlaceOrderInput struct {
	UserID      string
	UserDetails models.UserDetails
	Cart        []models.CartItem
	CouponCode  string
}

type OrderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	settings  repository.SettingsRepository
	coupons   *CouponService
	tokens    *ReviewTokenService
	notifier  *Notifier
	publisher OrderPublisher
	runner    *TaskRunner
	log       *logger.Logger
}

func NewOrderService(
	store *repository.Store,
	coupons *CouponService,
	tokens *ReviewTokenService,
	notifier *Notifier,
	publisher OrderPublisher,
	runner *TaskRunner,
	log *logger.Logger,
) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &OrderService{
		products:  store.Products,
		orders:    store.Orders,
		users:     store.Users,
		settings:  store.Settings,
		coupons:   coupons,
		tokens:    tokens,
		notifier:  notifier,
		publisher: publisher,
		runner:    runner,
		log:       log.WithComponent("order_service"),
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// PlaceOrder reserves stock for every line, prices the cart and persists a pending order.
// Stock taken before a failure is given back before the error is returned.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if strings.TrimSpace(in.UserID) == "" || len(in.Cart) == 0 {
		return nil, apperrors.Validation(apperrors.CodeMissingCart, "Missing cart or userId")
	}
	for _, item := range in.Cart {
		if item.ProductID.IsZero() {
			return nil, apperrors.BadRequest("Every cart line needs a productId")
		}
		if item.Quantity <= 0 {
			return nil, apperrors.BadRequest("Quantity must be at least 1")
		}
		if item.Quantity > models.MaxLineQuantity {
			return nil, apperrors.BadRequest(fmt.Sprintf("Quantity cannot exceed %d", models.MaxLineQuantity))
		}
	}

	log := logger.FromContext(ctx, s.log).With("user_id", in.UserID)
	cart := models.NormalizeCart(in.Cart)
	for _, item := range cart {
		if item.Quantity > models.MaxLineQuantity {
			return nil, apperrors.BadRequest(fmt.Sprintf("Quantity cannot exceed %d", models.MaxLineQuantity))
		}
	}

	var taken []models.CartItem
	committed := false
	defer func() {
		if !committed {
			s.rollback(context.WithoutCancel(ctx), log, taken)
		}
	}()

	lines := make([]models.OrderLine, 0, len(cart))
	allFreeDelivery := true
	for _, item := range cart {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeProductNotFound,
				fmt.Sprintf("Product not found: %s", item.ProductID.Hex()), err)
		}
		if err != nil {
			return nil, apperrors.Internal("Failed to load product", err)
		}

		switch err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); {
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, apperrors.InsufficientStock(product.Name)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound(apperrors.CodeProductNotFound,
				fmt.Sprintf("Product not found: %s", item.ProductID.Hex()), err)
		case errors.Is(err, repository.ErrInvalidQuantity):
			return nil, apperrors.BadRequest("Quantity must be at least 1")
		case err != nil:
			return nil, apperrors.Internal("Failed to reserve stock", err)
		}
		taken = append(taken, item)

		lines = append(lines, models.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.EffectivePrice(),
			Quantity:  item.Quantity,
		})
		allFreeDelivery = allFreeDelivery && product.FreeDelivery
	}

	var subtotal float64
	for _, l := range lines {
		subtotal += l.LineTotal()
	}
	subtotal = roundMoney(subtotal)

	deliveryCharge := 0.0
	if !allFreeDelivery {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to load delivery charge", err)
		}
		deliveryCharge = settings.DeliveryCharge
	}

	var discount float64
	var couponCode string
	if strings.TrimSpace(in.CouponCode) != "" {
		result, err := s.coupons.Apply(ctx, in.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount, couponCode = result.Discount, result.Code
	}

	order := &models.Order{
		UserID:         in.UserID,
		Cart:           lines,
		Subtotal:       subtotal,
		Discount:       discount,
		CouponCode:     couponCode,
		DeliveryCharge: deliveryCharge,
		Total:          roundMoney(subtotal - discount + deliveryCharge),
		Status:         models.StatusPending,
		UserDetails:    in.UserDetails,
		ReviewTokens:   []primitive.ObjectID{},
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.Internal("Failed to save order", err)
	}
	committed = true

	log.Info("Order placed", "order_id", order.ID.Hex(), "lines", len(lines), "total", order.Total)
	s.runner.Go(ctx, s.placedTasks(order)...)
	return order, nil
}

// rollback gives back stock in the order it was taken
func (s *OrderService) rollback(ctx context.Context, log *logger.Logger, taken []models.CartItem) {
	for _, item := range taken {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Error("stock rollback failed",
				"product_id", item.ProductID.Hex(),
				"quantity", item.Quantity,
				"reconcile", true,
				"error", err,
			)
		}
	}
}

func (s *OrderService) placedTasks(order *models.Order) []Task {
	tasks := []Task{
		{Name: "notify_admins", Run: func(ctx context.Context) error {
			return s.notifier.NotifyAdminsNewOrder(ctx, order)
		}},
		{Name: "feed_publish", Run: func(ctx context.Context) error {
			return s.publisher.Publish(ctx, orderEvent("order_created", order))
		}},
	}
	if email := strings.TrimSpace(order.UserDetails.Email); email != "" {
		tasks = append(tasks, Task{Name: "save_guest_user", Run: func(ctx context.Context) error {
			_, err := s.users.EnsureByEmail(ctx, order.UserDetails.Name, email)
			return err
		}})
	}
	return tasks
}

func orderEvent(kind string, o *models.Order) realtime.Event {
	return realtime.Event{Type: kind, OrderID: o.ID.Hex(), Status: string(o.Status), Total: o.Total}
}

// UpdateStatus moves an order along the lifecycle
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, comment string) (*models.Order, error) {
	next := models.OrderStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("Unknown order status %q", status))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeOrderNotFound, "Order not found")
	}
	if !order.Status.CanTransitionTo(next) {
		msg := fmt.Sprintf("Cannot change order status from %s to %s", order.Status, next)
		if order.Status.Terminal() {
			msg = fmt.Sprintf("Order is already %s and can no longer change", order.Status)
		}
		return nil, apperrors.State(apperrors.CodeInvalidTransition, msg)
	}

	comment = strings.TrimSpace(comment)
	if next != models.StatusRejected {
		comment = ""
	} else if comment == "" {
		return nil, apperrors.Validation(apperrors.CodeCommentRequired, "A comment is required to reject an order")
	}

	updated, err := s.orders.UpdateStatus(ctx, id, order.Status, next, comment)
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		return nil, apperrors.Conflict(apperrors.CodeStatusConflict, "Order status was changed by someone else, reload and retry")
	case err != nil:
		return nil, notFoundOr(err, apperrors.CodeOrderNotFound, "Order not found")
	}

	log := logger.FromContext(ctx, s.log).With("order_id", id.Hex())
	log.Info("Order status changed", "from", order.Status, "to", next)

	if next.Restocks() {
		s.restock(ctx, log, updated)
	}

	var links []utils.ReviewLink
	if next == models.StatusDelivered {
		links, err = s.tokens.IssueForOrder(ctx, updated)
		if err != nil {
			log.Error("Issuing review tokens failed", "error", err)
		}
		if fresh, err := s.orders.GetByID(ctx, id); err == nil {
			updated = fresh
		}
	}

	s.runner.Go(ctx,
		Task{Name: "status_email", Run: func(ctx context.Context) error {
			return s.notifier.NotifyStatus(ctx, updated, links)
		}},
		Task{Name: "feed_publish", Run: func(ctx context.Context) error {
			return s.publisher.Publish(ctx, orderEvent("order_status_changed", updated))
		}},
	)
	return updated, nil
}

func (s *OrderService) restock(ctx context.Context, log *logger.Logger, o *models.Order) {
	for _, line := range o.Cart {
		if err := s.products.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			log.Error("Restock failed", "product_id", line.ProductID.Hex(), "quantity", line.Quantity,
				"reconcile", true, "error", err)
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeOrderNotFound, "Order not found")
	}
	return order, nil
}

// ListOrders lists every order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list orders", err)
	}
	return orders, nil
}

// ListOrdersByUser lists a customer's orders with their review tokens
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID string) ([]models.OrderWithTokens, error) {
	if userID == "" {
		return nil, apperrors.BadRequest("Missing userId")
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list orders", err)
	}
	return s.tokens.TokensForOrders(ctx, orders)
}

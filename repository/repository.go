// Package repository defines persistence contracts for the storefront and their MongoDB implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	// ErrStatusChanged means a compare-and-set on an order status found a different current status.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type ProductFilter struct {
	Category *primitive.ObjectID
	Featured *bool
	Search   string
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// Update sets only the fields present in u, leaving concurrent stock changes intact.
	Update(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByCategories(ctx context.Context, categoryIDs []primitive.ObjectID) (int64, error)
	// DecrementStock takes qty units only if at least qty are in stock; otherwise ErrInsufficientStock.
	// A qty below 1 is ErrInvalidQuantity.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error
	SetAvgRating(ctx context.Context, id primitive.ObjectID, avg float64) error
	IncrementUniqueViews(ctx context.Context, id primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	// UpdateStatus sets status (and adminComment when non-empty) only if the current status is from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, adminComment string) (*models.Order, error)
	AddReviewTokens(ctx context.Context, id primitive.ObjectID, tokenIDs ...primitive.ObjectID) error
}

type ReviewTokenRepository interface {
	// Create fails with ErrDuplicate when the token string or the (user, product, order) key exists.
	Create(ctx context.Context, t *models.ReviewToken) error
	GetByToken(ctx context.Context, token string) (*models.ReviewToken, error)
	GetByKey(ctx context.Context, key models.ReviewKey) (*models.ReviewToken, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ReviewToken, error)
	ListUsedByUser(ctx context.Context, userID string) ([]models.ReviewToken, error)
	// MarkUsed flips used false->true for the token id; false means it was already used.
	MarkUsed(ctx context.Context, id primitive.ObjectID) (bool, error)
	MarkUsedByKey(ctx context.Context, key models.ReviewKey) (bool, error)
}

type ReviewRepository interface {
	// Create fails with ErrDuplicate when a review for the same key exists.
	Create(ctx context.Context, r *models.Review) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	GetByKey(ctx context.Context, key models.ReviewKey) (*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context) ([]models.Review, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID, status models.ReviewStatus) ([]models.Review, error)
	ListByUserOrder(ctx context.Context, userID string, orderID primitive.ObjectID) ([]models.Review, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus) (*models.Review, error)
	SetAdminReply(ctx context.Context, id primitive.ObjectID, reply string) (*models.Review, error)
	// AverageRating returns the mean rating of approved reviews of a product and how many there are.
	AverageRating(ctx context.Context, productID primitive.ObjectID) (float64, int, error)
}

type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Coupon, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Category, error)
	ListByViews(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
}

type ViewRepository interface {
	// RecordCategoryIP inserts (categoryId, ip) if absent and reports whether it was new.
	RecordCategoryIP(ctx context.Context, categoryID primitive.ObjectID, ip string) (bool, error)
	// RecordUserView inserts (user, type, refId) if absent and reports whether it was new.
	RecordUserView(ctx context.Context, user string, viewType models.ViewType, refID primitive.ObjectID) (bool, error)
}

type UserRepository interface {
	// EnsureByEmail inserts a user when none has the email; reports whether one was created.
	EnsureByEmail(ctx context.Context, name, email string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
}

type AdminRepository interface {
	Create(ctx context.Context, a *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
}

type SettingsRepository interface {
	// Get returns the settings document, creating the default one if missing.
	Get(ctx context.Context) (*models.Settings, error)
	SetDeliveryCharge(ctx context.Context, charge float64) (*models.Settings, error)
}

// Store bundles every repository the services need
type Store struct {
	Products     ProductRepository
	Orders       OrderRepository
	ReviewTokens ReviewTokenRepository
	Reviews      ReviewRepository
	Coupons      CouponRepository
	Categories   CategoryRepository
	Views        ViewRepository
	Users        UserRepository
	Admins       AdminRepository
	Settings     SettingsRepository
	// Ping checks store connectivity for health checks.
	Ping func(ctx context.Context) error
}

// Now is the clock used for timestamps; tests may replace it
var Now = func() time.Time { return time.Now().UTC() }

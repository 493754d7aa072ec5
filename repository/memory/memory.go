// Package memory is an in-process implementation of the repository contracts.
// It backs the test suites and STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// db is the shared state behind every repository. One mutex serializes all writes,
// which gives the same atomicity the Mongo implementation gets from conditional updates.
type db struct {
	mu sync.RWMutex

	products      map[primitive.ObjectID]*models.Product
	orders        map[primitive.ObjectID]*models.Order
	orderSeq      []primitive.ObjectID
	tokens        map[primitive.ObjectID]*models.ReviewToken
	reviews       map[primitive.ObjectID]*models.Review
	reviewSeq     []primitive.ObjectID
	coupons       map[primitive.ObjectID]*models.Coupon
	couponSeq     []primitive.ObjectID
	categories    map[primitive.ObjectID]*models.Category
	categoryViews map[string]bool
	views         map[string]bool
	users         map[string]*models.User
	userSeq       []string
	admins        map[string]*models.Admin
	settings      *models.Settings
	productSeq    []primitive.ObjectID
}

// NewStore returns a Store whose repositories share one in-memory database
func NewStore() *repository.Store {
	d := &db{
		products:      map[primitive.ObjectID]*models.Product{},
		orders:        map[primitive.ObjectID]*models.Order{},
		tokens:        map[primitive.ObjectID]*models.ReviewToken{},
		reviews:       map[primitive.ObjectID]*models.Review{},
		coupons:       map[primitive.ObjectID]*models.Coupon{},
		categories:    map[primitive.ObjectID]*models.Category{},
		categoryViews: map[string]bool{},
		views:         map[string]bool{},
		users:         map[string]*models.User{},
		admins:        map[string]*models.Admin{},
	}
	return &repository.Store{
		Products:     &productRepo{d},
		Orders:       &orderRepo{d},
		ReviewTokens: &tokenRepo{d},
		Reviews:      &reviewRepo{d},
		Coupons:      &couponRepo{d},
		Categories:   &categoryRepo{d},
		Views:        &viewRepo{d},
		Users:        &userRepo{d},
		Admins:       &adminRepo{d},
		Settings:     &settingsRepo{d},
		Ping:         func(context.Context) error { return nil },
	}
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", repository.ErrDuplicate, what)
}

func newID(id primitive.ObjectID) primitive.ObjectID {
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}

type productRepo struct{ d *db }

func cloneProduct(p *models.Product) models.Product {
	cp := *p
	cp.Media = append([]models.Media{}, p.Media...)
	if p.Category != nil {
		c := *p.Category
		cp.Category = &c
	}
	return cp
}

func (r *productRepo) Create(_ context.Context, p *models.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p.ID = newID(p.ID)
	if _, ok := r.d.products[p.ID]; ok {
		return duplicate("product id")
	}
	now := repository.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Media == nil {
		p.Media = []models.Media{}
	}
	stored := cloneProduct(p)
	r.d.products[p.ID] = &stored
	r.d.productSeq = append(r.d.productSeq, p.ID)
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	p, ok := r.d.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *productRepo) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	out := []models.Product{}
	for i := len(r.d.productSeq) - 1; i >= 0; i-- {
		p, ok := r.d.products[r.d.productSeq[i]]
		if !ok {
			continue
		}
		if filter.Category != nil && (p.Category == nil || *p.Category != *filter.Category) {
			continue
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (r *productRepo) Update(_ context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p, ok := r.d.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Apply(p)
	p.UpdatedAt = repository.Now()
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *productRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.products, id)
	return nil
}

func (r *productRepo) DeleteByCategories(_ context.Context, categoryIDs []primitive.ObjectID) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	set := make(map[primitive.ObjectID]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		set[id] = true
	}
	var n int64
	for id, p := range r.d.products {
		if p.Category != nil && set[*p.Category] {
			delete(r.d.products, id)
			n++
		}
	}
	return n, nil
}

func (r *productRepo) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return repository.ErrInvalidQuantity
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p, ok := r.d.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Quantity < qty {
		return repository.ErrInsufficientStock
	}
	p.Quantity -= qty
	p.UpdatedAt = repository.Now()
	return nil
}

func (r *productRepo) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return r.mutate(id, func(p *models.Product) { p.Quantity += qty })
}

func (r *productRepo) SetFeatured(_ context.Context, id primitive.ObjectID, featured bool) error {
	return r.mutate(id, func(p *models.Product) { p.Featured = featured })
}

func (r *productRepo) SetAvgRating(_ context.Context, id primitive.ObjectID, avg float64) error {
	return r.mutate(id, func(p *models.Product) { p.AvgRating = avg })
}

func (r *productRepo) IncrementUniqueViews(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(p *models.Product) { p.UniqueViews++ })
}

func (r *productRepo) mutate(id primitive.ObjectID, fn func(*models.Product)) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	p, ok := r.d.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

type orderRepo struct{ d *db }

func cloneOrder(o *models.Order) models.Order {
	cp := *o
	cp.Cart = append([]models.OrderLine{}, o.Cart...)
	cp.ReviewTokens = append([]primitive.ObjectID{}, o.ReviewTokens...)
	return cp
}

func (r *orderRepo) Create(_ context.Context, o *models.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	o.ID = newID(o.ID)
	if _, ok := r.d.orders[o.ID]; ok {
		return duplicate("order id")
	}
	now := repository.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	if o.ReviewTokens == nil {
		o.ReviewTokens = []primitive.ObjectID{}
	}
	stored := cloneOrder(o)
	r.d.orders[o.ID] = &stored
	r.d.orderSeq = append(r.d.orderSeq, o.ID)
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	o, ok := r.d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *orderRepo) List(_ context.Context) ([]models.Order, error) {
	return r.list(func(*models.Order) bool { return true }), nil
}

func (r *orderRepo) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (r *orderRepo) list(keep func(*models.Order) bool) []models.Order {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Order{}
	for i := len(r.d.orderSeq) - 1; i >= 0; i-- {
		if o := r.d.orders[r.d.orderSeq[i]]; keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func (r *orderRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus, adminComment string) (*models.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	o, ok := r.d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != from {
		return nil, repository.ErrStatusChanged
	}
	o.Status = to
	if adminComment != "" {
		o.AdminComment = adminComment
	}
	o.UpdatedAt = repository.Now()
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *orderRepo) AddReviewTokens(_ context.Context, id primitive.ObjectID, tokenIDs ...primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	o, ok := r.d.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, tid := range tokenIDs {
		present := false
		for _, existing := range o.ReviewTokens {
			if existing == tid {
				present = true
				break
			}
		}
		if !present {
			o.ReviewTokens = append(o.ReviewTokens, tid)
		}
	}
	return nil
}

type tokenRepo struct{ d *db }

func (r *tokenRepo) Create(_ context.Context, t *models.ReviewToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.tokens {
		if existing.Token == t.Token {
			return duplicate("review token")
		}
		if existing.Key() == t.Key() {
			return duplicate("review token purchase key")
		}
	}
	t.ID = newID(t.ID)
	now := repository.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	r.d.tokens[t.ID] = &stored
	return nil
}

func (r *tokenRepo) GetByToken(_ context.Context, token string) (*models.ReviewToken, error) {
	return r.find(func(t *models.ReviewToken) bool { return t.Token == token })
}

func (r *tokenRepo) GetByKey(_ context.Context, key models.ReviewKey) (*models.ReviewToken, error) {
	return r.find(func(t *models.ReviewToken) bool { return t.Key() == key })
}

func (r *tokenRepo) find(match func(*models.ReviewToken) bool) (*models.ReviewToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, t := range r.d.tokens {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.ReviewToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.ReviewToken{}
	for _, id := range ids {
		if t, ok := r.d.tokens[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *tokenRepo) ListUsedByUser(_ context.Context, userID string) ([]models.ReviewToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.ReviewToken{}
	for _, t := range r.d.tokens {
		if t.UserID == userID && t.Used {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *tokenRepo) MarkUsed(_ context.Context, id primitive.ObjectID) (bool, error) {
	return r.claim(func(t *models.ReviewToken) bool { return t.ID == id })
}

func (r *tokenRepo) MarkUsedByKey(_ context.Context, key models.ReviewKey) (bool, error) {
	return r.claim(func(t *models.ReviewToken) bool { return t.Key() == key })
}

func (r *tokenRepo) claim(match func(*models.ReviewToken) bool) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, t := range r.d.tokens {
		if match(t) && !t.Used {
			t.Used = true
			t.UpdatedAt = repository.Now()
			return true, nil
		}
	}
	return false, nil
}

type reviewRepo struct{ d *db }

func cloneReview(rv *models.Review) models.Review {
	cp := *rv
	cp.Images = append([]string{}, rv.Images...)
	return cp
}

func (r *reviewRepo) Create(_ context.Context, rv *models.Review) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.reviews {
		if existing.Key() == rv.Key() {
			return duplicate("review purchase key")
		}
	}
	rv.ID = newID(rv.ID)
	now := repository.Now()
	rv.CreatedAt, rv.UpdatedAt = now, now
	if rv.Images == nil {
		rv.Images = []string{}
	}
	stored := cloneReview(rv)
	r.d.reviews[rv.ID] = &stored
	r.d.reviewSeq = append(r.d.reviewSeq, rv.ID)
	return nil
}

func (r *reviewRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	rv, ok := r.d.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneReview(rv)
	return &cp, nil
}

func (r *reviewRepo) GetByKey(_ context.Context, key models.ReviewKey) (*models.Review, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, rv := range r.d.reviews {
		if rv.Key() == key {
			cp := cloneReview(rv)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *reviewRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.reviews, id)
	return nil
}

func (r *reviewRepo) List(_ context.Context) ([]models.Review, error) {
	return r.list(func(*models.Review) bool { return true }), nil
}

func (r *reviewRepo) ListByProduct(_ context.Context, productID primitive.ObjectID, status models.ReviewStatus) ([]models.Review, error) {
	return r.list(func(rv *models.Review) bool {
		return rv.ProductID == productID && (status == "" || rv.Status == status)
	}), nil
}

func (r *reviewRepo) ListByUserOrder(_ context.Context, userID string, orderID primitive.ObjectID) ([]models.Review, error) {
	return r.list(func(rv *models.Review) bool { return rv.UserID == userID && rv.OrderID == orderID }), nil
}

func (r *reviewRepo) list(keep func(*models.Review) bool) []models.Review {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Review{}
	for i := len(r.d.reviewSeq) - 1; i >= 0; i-- {
		rv, ok := r.d.reviews[r.d.reviewSeq[i]]
		if ok && keep(rv) {
			out = append(out, cloneReview(rv))
		}
	}
	return out
}

func (r *reviewRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.ReviewStatus) (*models.Review, error) {
	return r.mutate(id, func(rv *models.Review) { rv.Status = status })
}

func (r *reviewRepo) SetAdminReply(_ context.Context, id primitive.ObjectID, reply string) (*models.Review, error) {
	return r.mutate(id, func(rv *models.Review) { rv.AdminReply = reply })
}

func (r *reviewRepo) mutate(id primitive.ObjectID, fn func(*models.Review)) (*models.Review, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	rv, ok := r.d.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(rv)
	rv.UpdatedAt = repository.Now()
	cp := cloneReview(rv)
	return &cp, nil
}

func (r *reviewRepo) AverageRating(_ context.Context, productID primitive.ObjectID) (float64, int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	sum, n := 0, 0
	for _, rv := range r.d.reviews {
		if rv.ProductID == productID && rv.Status == models.ReviewApproved {
			sum += rv.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

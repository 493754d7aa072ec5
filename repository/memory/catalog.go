package memory

import (
	"context"
	"sort"

	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type couponRepo struct{ d *db }

func (r *couponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.coupons {
		if existing.Code == c.Code {
			return duplicate("coupon code")
		}
	}
	c.ID = newID(c.ID)
	now := repository.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	r.d.coupons[c.ID] = &stored
	r.d.couponSeq = append(r.d.couponSeq, c.ID)
	return nil
}

func (r *couponRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *couponRepo) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, c := range r.d.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *couponRepo) List(_ context.Context) ([]models.Coupon, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Coupon{}
	for i := len(r.d.couponSeq) - 1; i >= 0; i-- {
		if c, ok := r.d.coupons[r.d.couponSeq[i]]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *couponRepo) SetActive(_ context.Context, id primitive.ObjectID, active bool) (*models.Coupon, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = repository.Now()
	cp := *c
	return &cp, nil
}

func (r *couponRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.coupons[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.coupons, id)
	return nil
}

type categoryRepo struct{ d *db }

func cloneCategory(c *models.Category) models.Category {
	cp := *c
	if c.Parent != nil {
		p := *c.Parent
		cp.Parent = &p
	}
	return cp
}

func (r *categoryRepo) Create(_ context.Context, c *models.Category) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, existing := range r.d.categories {
		if existing.Name == c.Name {
			return duplicate("category name")
		}
	}
	c.ID = newID(c.ID)
	c.CreatedAt = repository.Now()
	stored := cloneCategory(c)
	r.d.categories[c.ID] = &stored
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	c, ok := r.d.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneCategory(c)
	return &cp, nil
}

func (r *categoryRepo) List(_ context.Context) ([]models.Category, error) {
	out := r.collect(func(*models.Category) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) ListChildren(_ context.Context, parentID primitive.ObjectID) ([]models.Category, error) {
	out := r.collect(func(c *models.Category) bool { return c.Parent != nil && *c.Parent == parentID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) ListByViews(_ context.Context) ([]models.Category, error) {
	out := r.collect(func(*models.Category) bool { return true })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *categoryRepo) collect(keep func(*models.Category) bool) []models.Category {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := []models.Category{}
	for _, c := range r.d.categories {
		if keep(c) {
			out = append(out, cloneCategory(c))
		}
	}
	return out
}

func (r *categoryRepo) Update(_ context.Context, c *models.Category) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	existing, ok := r.d.categories[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.d.categories {
		if id != c.ID && other.Name == c.Name {
			return duplicate("category name")
		}
	}
	existing.Name = c.Name
	existing.Image = c.Image
	existing.Parent = nil
	if c.Parent != nil {
		p := *c.Parent
		existing.Parent = &p
	}
	return nil
}

func (r *categoryRepo) DeleteMany(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.d.categories[id]; ok {
			delete(r.d.categories, id)
			n++
		}
	}
	return n, nil
}

func (r *categoryRepo) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	c, ok := r.d.categories[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Views++
	return nil
}

type viewRepo struct{ d *db }

func (r *viewRepo) RecordCategoryIP(_ context.Context, categoryID primitive.ObjectID, ip string) (bool, error) {
	return r.insertIfAbsent(r.d.categoryViews, categoryID.Hex()+"|"+ip), nil
}

func (r *viewRepo) RecordUserView(_ context.Context, user string, viewType models.ViewType, refID primitive.ObjectID) (bool, error) {
	return r.insertIfAbsent(r.d.views, user+"|"+string(viewType)+"|"+refID.Hex()), nil
}

func (r *viewRepo) insertIfAbsent(set map[string]bool, key string) bool {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if set[key] {
		return false
	}
	set[key] = true
	return true
}

type userRepo struct{ d *db }

func (r *userRepo) EnsureByEmail(_ context.Context, name, email string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.users[email]; ok {
		return false, nil
	}
	r.d.users[email] = &models.User{ID: primitive.NewObjectID(), Name: name, Email: email, CreatedAt: repository.Now()}
	r.d.userSeq = append(r.d.userSeq, email)
	return true, nil
}

func (r *userRepo) List(_ context.Context) ([]models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]models.User, 0, len(r.d.userSeq))
	for _, email := range r.d.userSeq {
		out = append(out, *r.d.users[email])
	}
	return out, nil
}

type adminRepo struct{ d *db }

func (r *adminRepo) Create(_ context.Context, a *models.Admin) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.admins[a.Email]; ok {
		return duplicate("admin email")
	}
	a.ID = newID(a.ID)
	a.CreatedAt = repository.Now()
	stored := *a
	r.d.admins[a.Email] = &stored
	return nil
}

func (r *adminRepo) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	a, ok := r.d.admins[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *adminRepo) List(_ context.Context) ([]models.Admin, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]models.Admin, 0, len(r.d.admins))
	for _, a := range r.d.admins {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type settingsRepo struct{ d *db }

func (r *settingsRepo) Get(_ context.Context) (*models.Settings, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if r.d.settings == nil {
		r.d.settings = &models.Settings{ID: primitive.NewObjectID()}
	}
	cp := *r.d.settings
	return &cp, nil
}

func (r *settingsRepo) SetDeliveryCharge(_ context.Context, charge float64) (*models.Settings, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if r.d.settings == nil {
		r.d.settings = &models.Settings{ID: primitive.NewObjectID()}
	}
	r.d.settings.DeliveryCharge = charge
	cp := *r.d.settings
	return &cp, nil
}

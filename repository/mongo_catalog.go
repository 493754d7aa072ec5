package repository

import (
	"context"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCouponRepository struct {
	coll *mongo.Collection
}

func (r *mongoCouponRepository) Create(ctx context.Context, c *models.Coupon) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, c)
	return translate(err)
}

func (r *mongoCouponRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *mongoCouponRepository) findOne(ctx context.Context, filter bson.M) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *mongoCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	return findAll[models.Coupon](ctx, r.coll, bson.M{}, newestFirst())
}

func (r *mongoCouponRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Coupon, error) {
	var c models.Coupon
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": Now()}}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter()).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *mongoCouponRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoCategoryRepository struct {
	coll *mongo.Collection
}

func (r *mongoCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = Now()
	_, err := r.coll.InsertOne(ctx, c)
	return translate(err)
}

func (r *mongoCategoryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var c models.Category
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *mongoCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoCategoryRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Category, error) {
	return findAll[models.Category](ctx, r.coll, bson.M{"parent": parentID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoCategoryRepository) ListByViews(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "views", Value: -1}}))
}

func (r *mongoCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	set := bson.M{"name": c.Name, "parent": c.Parent, "image": c.Image}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCategoryRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoCategoryRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoViewRepository struct {
	categoryViews *mongo.Collection
	views         *mongo.Collection
}

// insertIfAbsent upserts with $setOnInsert so the unique index decides first-ness atomically.
func insertIfAbsent(ctx context.Context, coll *mongo.Collection, filter, doc bson.M) (bool, error) {
	result, err := coll.UpdateOne(ctx, filter, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost an upsert race against the same key.
			return false, nil
		}
		return false, err
	}
	return result.UpsertedCount == 1, nil
}

func (r *mongoViewRepository) RecordCategoryIP(ctx context.Context, categoryID primitive.ObjectID, ip string) (bool, error) {
	filter := bson.M{"categoryId": categoryID, "ip": ip}
	return insertIfAbsent(ctx, r.categoryViews, filter, bson.M{"categoryId": categoryID, "ip": ip})
}

func (r *mongoViewRepository) RecordUserView(ctx context.Context, user string, viewType models.ViewType, refID primitive.ObjectID) (bool, error) {
	filter := bson.M{"user": user, "type": viewType, "refId": refID}
	return insertIfAbsent(ctx, r.views, filter, bson.M{"user": user, "type": viewType, "refId": refID, "createdAt": Now()})
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func (r *mongoUserRepository) EnsureByEmail(ctx context.Context, name, email string) (bool, error) {
	doc := bson.M{"name": name, "email": email, "password": "", "createdAt": Now()}
	return insertIfAbsent(ctx, r.coll, bson.M{"email": email}, doc)
}

func (r *mongoUserRepository) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "createdAt": 1})
	return findAll[models.User](ctx, r.coll, bson.M{}, opts)
}

type mongoAdminRepository struct {
	coll *mongo.Collection
}

func (r *mongoAdminRepository) Create(ctx context.Context, a *models.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = Now()
	_, err := r.coll.InsertOne(ctx, a)
	return translate(err)
}

func (r *mongoAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *mongoAdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	return findAll[models.Admin](ctx, r.coll, bson.M{})
}

type mongoSettingsRepository struct {
	coll *mongo.Collection
}

func (r *mongoSettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := translate(r.coll.FindOne(ctx, bson.M{}).Decode(&s))
	if err == nil {
		return &s, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	// First read creates the default document.
	update := bson.M{"$setOnInsert": bson.M{"deliveryCharge": 0.0}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{}, update, opts).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *mongoSettingsRepository) SetDeliveryCharge(ctx context.Context, charge float64) (*models.Settings, error) {
	var s models.Settings
	update := bson.M{"$set": bson.M{"deliveryCharge": charge}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{}, update, opts).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

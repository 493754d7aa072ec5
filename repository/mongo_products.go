package repository

import (
	"context"
	"errors"
	"regexp"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoProductRepository struct {
	coll *mongo.Collection
}

func (r *mongoProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Media == nil {
		p.Media = []models.Media{}
	}
	_, err := r.coll.InsertOne(ctx, p)
	return translate(err)
}

func (r *mongoProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *mongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return findAll[models.Product](ctx, r.coll, query, newestFirst())
}

func (r *mongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	set := bson.M{"updatedAt": Now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Color != nil {
		set["color"] = *u.Color
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.SalePrice != nil {
		set["salePrice"] = *u.SalePrice
	}
	if u.DiscountPercent != nil {
		set["discountPercent"] = *u.DiscountPercent
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.Featured != nil {
		set["featured"] = *u.Featured
	}
	if u.FreeDelivery != nil {
		set["freeDelivery"] = *u.FreeDelivery
	}
	if len(u.Media) > 0 {
		set["media"] = u.Media
	}

	var p models.Product
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnAfter()).Decode(&p)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) DeleteByCategories(ctx context.Context, categoryIDs []primitive.ObjectID) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"category": bson.M{"$in": categoryIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": qty}}
	update := bson.M{"$inc": bson.M{"quantity": -qty}, "$set": bson.M{"updatedAt": Now()}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a vanished product from a short one.
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *mongoProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	return r.updateOne(ctx, id, bson.M{"$inc": bson.M{"quantity": qty}, "$set": bson.M{"updatedAt": Now()}})
}

func (r *mongoProductRepository) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"featured": featured, "updatedAt": Now()}})
}

func (r *mongoProductRepository) SetAvgRating(ctx context.Context, id primitive.ObjectID, avg float64) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"avgRating": avg}})
}

func (r *mongoProductRepository) IncrementUniqueViews(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$inc": bson.M{"uniqueViews": 1}})
}

func (r *mongoProductRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoOrderRepository struct {
	coll *mongo.Collection
}

func (r *mongoOrderRepository) Create(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := Now()
	o.CreatedAt, o.UpdatedAt = now, now
	if o.ReviewTokens == nil {
		o.ReviewTokens = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, o)
	return translate(err)
}

func (r *mongoOrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *mongoOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	return findAll[models.Order](ctx, r.coll, bson.M{}, newestFirst())
}

func (r *mongoOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return findAll[models.Order](ctx, r.coll, bson.M{"userId": userID}, newestFirst())
}

func (r *mongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, adminComment string) (*models.Order, error) {
	set := bson.M{"status": to, "updatedAt": Now()}
	if adminComment != "" {
		set["adminComment"] = adminComment
	}

	var o models.Order
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set}, returnAfter()).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *mongoOrderRepository) AddReviewTokens(ctx context.Context, id primitive.ObjectID, tokenIDs ...primitive.ObjectID) error {
	if len(tokenIDs) == 0 {
		return nil
	}
	update := bson.M{"$addToSet": bson.M{"reviewTokens": bson.M{"$each": tokenIDs}}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

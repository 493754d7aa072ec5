package repository

import (
	"context"
	"errors"

	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func keyFilter(key models.ReviewKey) bson.M {
	return bson.M{"userId": key.UserID, "productId": key.ProductID, "orderId": key.OrderID}
}

type mongoReviewTokenRepository struct {
	coll *mongo.Collection
}

func (r *mongoReviewTokenRepository) Create(ctx context.Context, t *models.ReviewToken) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	now := Now()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, t)
	return translate(err)
}

func (r *mongoReviewTokenRepository) GetByToken(ctx context.Context, token string) (*models.ReviewToken, error) {
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *mongoReviewTokenRepository) GetByKey(ctx context.Context, key models.ReviewKey) (*models.ReviewToken, error) {
	return r.findOne(ctx, keyFilter(key))
}

func (r *mongoReviewTokenRepository) findOne(ctx context.Context, filter bson.M) (*models.ReviewToken, error) {
	var t models.ReviewToken
	if err := r.coll.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *mongoReviewTokenRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ReviewToken, error) {
	if len(ids) == 0 {
		return []models.ReviewToken{}, nil
	}
	return findAll[models.ReviewToken](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoReviewTokenRepository) ListUsedByUser(ctx context.Context, userID string) ([]models.ReviewToken, error) {
	return findAll[models.ReviewToken](ctx, r.coll, bson.M{"userId": userID, "used": true})
}

func (r *mongoReviewTokenRepository) MarkUsed(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.claim(ctx, bson.M{"_id": id, "used": false})
}

func (r *mongoReviewTokenRepository) MarkUsedByKey(ctx context.Context, key models.ReviewKey) (bool, error) {
	filter := keyFilter(key)
	filter["used"] = false
	return r.claim(ctx, filter)
}

// claim is the conditional used=false -> used=true write; ModifiedCount decides the winner.
func (r *mongoReviewTokenRepository) claim(ctx context.Context, filter bson.M) (bool, error) {
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"used": true, "updatedAt": Now()}})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

type mongoReviewRepository struct {
	coll *mongo.Collection
}

func (r *mongoReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	now := Now()
	rv.CreatedAt, rv.UpdatedAt = now, now
	if rv.Images == nil {
		rv.Images = []string{}
	}
	_, err := r.coll.InsertOne(ctx, rv)
	return translate(err)
}

func (r *mongoReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoReviewRepository) GetByKey(ctx context.Context, key models.ReviewKey) (*models.Review, error) {
	return r.findOne(ctx, keyFilter(key))
}

func (r *mongoReviewRepository) findOne(ctx context.Context, filter bson.M) (*models.Review, error) {
	var rv models.Review
	if err := r.coll.FindOne(ctx, filter).Decode(&rv); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoReviewRepository) List(ctx context.Context) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.coll, bson.M{}, newestFirst())
}

func (r *mongoReviewRepository) ListByProduct(ctx context.Context, productID primitive.ObjectID, status models.ReviewStatus) ([]models.Review, error) {
	filter := bson.M{"productId": productID}
	if status != "" {
		filter["status"] = status
	}
	return findAll[models.Review](ctx, r.coll, filter, newestFirst())
}

func (r *mongoReviewRepository) ListByUserOrder(ctx context.Context, userID string, orderID primitive.ObjectID) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.coll, bson.M{"userId": userID, "orderId": orderID})
}

func (r *mongoReviewRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ReviewStatus) (*models.Review, error) {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *mongoReviewRepository) SetAdminReply(ctx context.Context, id primitive.ObjectID, reply string) (*models.Review, error) {
	return r.set(ctx, id, bson.M{"adminReply": reply})
}

func (r *mongoReviewRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Review, error) {
	fields["updatedAt"] = Now()
	var rv models.Review
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, returnAfter()).Decode(&rv); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (r *mongoReviewRepository) AverageRating(ctx context.Context, productID primitive.ObjectID) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "productId", Value: productID}, {Key: "status", Value: models.ReviewApproved}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$productId"},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	rows, err := decodeAll[struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}](ctx, cursor)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Avg, rows[0].Count, nil
}

// isNotFound is shared by the mongo repositories for FindOne results
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

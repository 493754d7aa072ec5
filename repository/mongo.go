package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection      = "products"
	ordersCollection        = "orders"
	reviewTokensCollection  = "reviewtokens"
	reviewsCollection       = "reviews"
	couponsCollection       = "coupons"
	categoriesCollection    = "categories"
	categoryViewsCollection = "categoryviews"
	viewsCollection         = "views"
	usersCollection         = "users"
	adminsCollection        = "admins"
	settingsCollection      = "settings"
)

// NewMongoStore builds every repository over db
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Products:     &mongoProductRepository{coll: db.Collection(productsCollection)},
		Orders:       &mongoOrderRepository{coll: db.Collection(ordersCollection)},
		ReviewTokens: &mongoReviewTokenRepository{coll: db.Collection(reviewTokensCollection)},
		Reviews:      &mongoReviewRepository{coll: db.Collection(reviewsCollection)},
		Coupons:      &mongoCouponRepository{coll: db.Collection(couponsCollection)},
		Categories:   &mongoCategoryRepository{coll: db.Collection(categoriesCollection)},
		Views: &mongoViewRepository{
			categoryViews: db.Collection(categoryViewsCollection),
			views:         db.Collection(viewsCollection),
		},
		Users:    &mongoUserRepository{coll: db.Collection(usersCollection)},
		Admins:   &mongoAdminRepository{coll: db.Collection(adminsCollection)},
		Settings: &mongoSettingsRepository{coll: db.Collection(settingsCollection)},
		Ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
	}
}

func uniqueIndex(keys bson.D, name string) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
}

func index(keys bson.D, name string) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

// EnsureIndexes creates the indexes the storefront relies on for uniqueness and lookups
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		couponsCollection: {
			uniqueIndex(bson.D{{Key: "code", Value: 1}}, "code_unique"),
		},
		reviewTokensCollection: {
			uniqueIndex(bson.D{{Key: "token", Value: 1}}, "token_unique"),
			uniqueIndex(bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}, {Key: "orderId", Value: 1}}, "purchase_unique"),
		},
		reviewsCollection: {
			uniqueIndex(bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}, {Key: "orderId", Value: 1}}, "purchase_unique"),
			index(bson.D{{Key: "productId", Value: 1}, {Key: "status", Value: 1}}, "product_status"),
		},
		categoryViewsCollection: {
			uniqueIndex(bson.D{{Key: "categoryId", Value: 1}, {Key: "ip", Value: 1}}, "category_ip_unique"),
		},
		viewsCollection: {
			uniqueIndex(bson.D{{Key: "user", Value: 1}, {Key: "type", Value: 1}, {Key: "refId", Value: 1}}, "user_type_ref_unique"),
		},
		categoriesCollection: {
			uniqueIndex(bson.D{{Key: "name", Value: 1}}, "name_unique"),
			index(bson.D{{Key: "parent", Value: 1}}, "parent"),
		},
		productsCollection: {
			index(bson.D{{Key: "category", Value: 1}}, "category"),
			index(bson.D{{Key: "featured", Value: 1}}, "featured"),
		},
		ordersCollection: {
			index(bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, "user_created"),
		},
		usersCollection: {
			uniqueIndex(bson.D{{Key: "email", Value: 1}}, "email_unique"),
		},
		adminsCollection: {
			uniqueIndex(bson.D{{Key: "email", Value: 1}}, "email_unique"),
		},
	}

	for name, idx := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the repository sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)
	out := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](ctx, cursor)
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewStatus is the moderation state of a review
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Valid reports whether s is a known moderation state
func (s ReviewStatus) Valid() bool {
	return s == ReviewPending || s == ReviewApproved || s == ReviewRejected
}

// Review is a customer review. At most one exists per (userId, productId, orderId).
type Review struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	UserID       string             `bson:"userId" json:"userId"`
	OrderID      primitive.ObjectID `bson:"orderId" json:"orderId"`
	Rating       int                `bson:"rating" json:"rating"`
	Comment      string             `bson:"comment" json:"comment"`
	ReviewerName string             `bson:"reviewerName" json:"reviewerName"`
	Images       []string           `bson:"images" json:"images"`
	Status       ReviewStatus       `bson:"status" json:"status"`
	AdminReply   string             `bson:"adminReply,omitempty" json:"adminReply,omitempty"`
	IsInternal   bool               `bson:"isInternal" json:"isInternal"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ReviewKey identifies the purchase a review or token belongs to
type ReviewKey struct {
	UserID    string
	ProductID primitive.ObjectID
	OrderID   primitive.ObjectID
}

// Key returns the review's uniqueness key
func (r *Review) Key() ReviewKey {
	return ReviewKey{UserID: r.UserID, ProductID: r.ProductID, OrderID: r.OrderID}
}

// ReviewToken is a single-use credential that lets a customer review one product of one order
type ReviewToken struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Token        string             `bson:"token" json:"token"`
	UserID       string             `bson:"userId" json:"userId"`
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	OrderID      primitive.ObjectID `bson:"orderId" json:"orderId"`
	Used         bool               `bson:"used" json:"used"`
	ReviewerName string             `bson:"reviewerName" json:"reviewerName"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Key returns the token's purchase key
func (t *ReviewToken) Key() ReviewKey {
	return ReviewKey{UserID: t.UserID, ProductID: t.ProductID, OrderID: t.OrderID}
}

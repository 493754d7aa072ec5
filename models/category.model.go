package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a node of the catalog tree. Parent is nil for roots.
type Category struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string              `bson:"name" json:"name"`
	Parent    *primitive.ObjectID `bson:"parent" json:"parent"`
	Image     string              `bson:"image,omitempty" json:"image,omitempty"`
	Views     int                 `bson:"views" json:"views"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// CategoryNode is a category with its nested children
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// CategoryWithProducts is a category together with the products filed directly under it
type CategoryWithProducts struct {
	Category
	Products []Product `json:"products"`
}

// CategoryDetail is a category page: its products and its direct children with theirs
type CategoryDetail struct {
	Category       Category               `json:"category"`
	ParentProducts []Product              `json:"parentProducts"`
	Children       []CategoryWithProducts `json:"children"`
}

// CategoryView records one anonymous viewer (by IP) of a category
type CategoryView struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CategoryID primitive.ObjectID `bson:"categoryId" json:"categoryId"`
	IP         string             `bson:"ip" json:"ip"`
}

// ViewType is what a signed-in viewer looked at
type ViewType string

const (
	ViewProduct  ViewType = "product"
	ViewCategory ViewType = "category"
)

// View records one signed-in user's first view of a product or category
type View struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	User      string             `bson:"user" json:"user"`
	Type      ViewType           `bson:"type" json:"type"`
	RefID     primitive.ObjectID `bson:"refId" json:"refId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Settings is the single storefront settings document
type Settings struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DeliveryCharge float64            `bson:"deliveryCharge" json:"deliveryCharge"`
}

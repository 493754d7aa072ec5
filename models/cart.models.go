package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line of a client-held cart submitted at checkout
type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId" validate:"required"`
	Quantity  int                `bson:"quantity" json:"quantity" validate:"required,min=1"`
}

// MaxLineQuantity caps the units of one product in a single order
const MaxLineQuantity = 10000

// NormalizeCart merges lines that reference the same product, keeping first-seen order
func NormalizeCart(items []CartItem) []CartItem {
	index := make(map[primitive.ObjectID]int, len(items))
	out := make([]CartItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusApproved   OrderStatus = "approved"
	StatusDispatched OrderStatus = "dispatched"
	StatusDelivered  OrderStatus = "delivered"
	StatusReturned   OrderStatus = "returned"
	StatusRejected   OrderStatus = "rejected"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusApproved, StatusRejected},
	StatusApproved:   {StatusDispatched, StatusRejected},
	StatusDispatched: {StatusDelivered, StatusReturned},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDispatched, StatusDelivered, StatusReturned, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Restocks reports whether entering s gives the ordered quantities back to inventory
func (s OrderStatus) Restocks() bool {
	return s == StatusRejected || s == StatusReturned
}

// OrderLine is one line item of a placed order with its price snapshot
type OrderLine struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// LineTotal is price times quantity
func (l OrderLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Order represents a placed order. Amounts are a snapshot taken at placement time.
type Order struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID         string               `bson:"userId" json:"userId"`
	Cart           []OrderLine          `bson:"cart" json:"cart"`
	Subtotal       float64              `bson:"subtotal" json:"subtotal"`
	Discount       float64              `bson:"discount" json:"discount"`
	CouponCode     string               `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	DeliveryCharge float64              `bson:"deliveryCharge" json:"deliveryCharge"`
	Total          float64              `bson:"total" json:"total"`
	Status         OrderStatus          `bson:"status" json:"status"`
	AdminComment   string               `bson:"adminComment,omitempty" json:"adminComment,omitempty"`
	UserDetails    UserDetails          `bson:"userDetails" json:"userDetails"`
	ReviewTokens   []primitive.ObjectID `bson:"reviewTokens" json:"reviewTokens"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// DistinctProductIDs returns the cart's product ids in cart order without repeats
func (o *Order) DistinctProductIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(o.Cart))
	var ids []primitive.ObjectID
	for _, line := range o.Cart {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

// HasProduct reports whether the cart contains productID
func (o *Order) HasProduct(productID primitive.ObjectID) bool {
	for _, line := range o.Cart {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderWithTokens is an order with its review tokens populated, as shown to the customer
type OrderWithTokens struct {
	Order        `bson:",inline"`
	ReviewTokens []ReviewToken `bson:"-" json:"reviewTokens"`
}

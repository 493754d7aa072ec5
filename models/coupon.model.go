package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is a checkout discount code
type Coupon struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code            string             `bson:"code" json:"code"`
	DiscountPercent float64            `bson:"discountPercent" json:"discountPercent"`
	Amount          float64            `bson:"amount" json:"amount"`
	MinPrice        float64            `bson:"minPrice" json:"minPrice"`
	StartDate       time.Time          `bson:"startDate" json:"startDate"`
	EndDate         time.Time          `bson:"endDate" json:"endDate"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeCouponCode trims and upper-cases a code
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether t lies within [StartDate, EndDate]
func (c *Coupon) InWindow(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

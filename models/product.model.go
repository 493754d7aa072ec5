package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media is an uploaded product image or video
type Media struct {
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type" json:"type"` // "image" or "video"
}

// Product is a catalog item. Quantity is the stock count and never goes below zero.
type Product struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string              `bson:"name" json:"name"`
	Description     string              `bson:"description" json:"description"`
	Color           string              `bson:"color" json:"color"`
	Category        *primitive.ObjectID `bson:"category" json:"category"`
	Price           float64             `bson:"price" json:"price"`
	SalePrice       float64             `bson:"salePrice" json:"salePrice"`
	DiscountPercent float64             `bson:"discountPercent" json:"discountPercent"`
	Quantity        int                 `bson:"quantity" json:"quantity"`
	Featured        bool                `bson:"featured" json:"featured"`
	FreeDelivery    bool                `bson:"freeDelivery" json:"freeDelivery"`
	Media           []Media             `bson:"media" json:"media"`
	AvgRating       float64             `bson:"avgRating" json:"avgRating"`
	UniqueViews     int                 `bson:"uniqueViews" json:"uniqueViews"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// EffectivePrice is the price charged for one unit right now
func (p *Product) EffectivePrice() float64 {
	return EffectivePrice(p.Price, PricingRuleFor(p))
}

// ProductUpdate carries the fields an admin may change; nil means unchanged
type ProductUpdate struct {
	Name            *string             `json:"name,omitempty"`
	Description     *string             `json:"description,omitempty"`
	Color           *string             `json:"color,omitempty"`
	Category        *primitive.ObjectID `json:"category,omitempty"`
	Price           *float64            `json:"price,omitempty"`
	SalePrice       *float64            `json:"salePrice,omitempty"`
	DiscountPercent *float64            `json:"discountPercent,omitempty"`
	Quantity        *int                `json:"quantity,omitempty"`
	Featured        *bool               `json:"featured,omitempty"`
	FreeDelivery    *bool               `json:"freeDelivery,omitempty"`
	Media           []Media             `json:"media,omitempty"`
}

// Apply copies the set fields onto p
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Color != nil {
		p.Color = *u.Color
	}
	if u.Category != nil {
		c := *u.Category
		p.Category = &c
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.SalePrice != nil {
		p.SalePrice = *u.SalePrice
	}
	if u.DiscountPercent != nil {
		p.DiscountPercent = *u.DiscountPercent
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.FreeDelivery != nil {
		p.FreeDelivery = *u.FreeDelivery
	}
	if len(u.Media) > 0 {
		p.Media = u.Media
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserDetails is the customer snapshot copied onto an order at placement time
type UserDetails struct {
	Name          string `bson:"name" json:"name"`
	Email         string `bson:"email" json:"email" validate:"omitempty,email"`
	Phone1        string `bson:"phone1" json:"phone1"`
	Address       string `bson:"address" json:"address"`
	City          string `bson:"city" json:"city"`
	Province      string `bson:"province" json:"province"`
	PaymentMethod string `bson:"paymentMethod" json:"paymentMethod"`
}

// User is a storefront customer. Guest users are saved with an empty password.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Admin is a back-office account
type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

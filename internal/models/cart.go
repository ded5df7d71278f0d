package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line of a cart. Price is a snapshot of the product price
// taken when the line was added or last touched; it may drift from the live
// product price until the cart is validated.
type CartItem struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Product       primitive.ObjectID `bson:"product" json:"product"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	Price         float64            `bson:"price" json:"price"`
	SelectedColor string             `bson:"selectedColor,omitempty" json:"selectedColor,omitempty"`
	SelectedSize  string             `bson:"selectedSize,omitempty" json:"selectedSize,omitempty"`
	AddedAt       time.Time          `bson:"addedAt" json:"addedAt"`
}

// CartCoupon is stored inline on the cart, not a standalone entity.
type CartCoupon struct {
	Code         string  `bson:"code" json:"code"`
	Discount     float64 `bson:"discount" json:"discount"`
	DiscountType string  `bson:"discountType" json:"discountType"`
}

type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Items     []CartItem         `bson:"items" json:"items"`
	Coupon    *CartCoupon        `bson:"coupon,omitempty" json:"coupon,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

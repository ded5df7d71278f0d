package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductSnapshot captures the product fields an order line must keep even
// if the source product is later changed or deactivated.
type ProductSnapshot struct {
	Name  string  `bson:"name" json:"name"`
	Price float64 `bson:"price" json:"price"`
	Image string  `bson:"image,omitempty" json:"image,omitempty"`
	SKU   string  `bson:"sku,omitempty" json:"sku,omitempty"`
}

// OrderItem is an immutable line of an order.
type OrderItem struct {
	Product         primitive.ObjectID `bson:"product" json:"product"`
	ProductSnapshot ProductSnapshot    `bson:"productSnapshot" json:"productSnapshot"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	Price           float64            `bson:"price" json:"price"`
	SelectedColor   string             `bson:"selectedColor,omitempty" json:"selectedColor,omitempty"`
	SelectedSize    string             `bson:"selectedSize,omitempty" json:"selectedSize,omitempty"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
}

type OrderAddress struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
	Street    string `bson:"street" json:"street"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	ZipCode   string `bson:"zipCode" json:"zipCode"`
	Country   string `bson:"country" json:"country"`
}

type BillingAddress struct {
	OrderAddress   `bson:",inline"`
	SameAsShipping bool `bson:"sameAsShipping" json:"sameAsShipping"`
}

type OrderPricing struct {
	Subtotal float64 `bson:"subtotal" json:"subtotal"`
	Tax      float64 `bson:"tax" json:"tax"`
	Shipping float64 `bson:"shipping" json:"shipping"`
	Discount float64 `bson:"discount" json:"discount"`
	Total    float64 `bson:"total" json:"total"`
}

type OrderPayment struct {
	PaymentID     string     `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentDate   *time.Time `bson:"paymentDate,omitempty" json:"paymentDate,omitempty"`
	Gateway       string     `bson:"paymentGateway,omitempty" json:"paymentGateway,omitempty"`
}

type OrderShipping struct {
	Method            string     `bson:"method" json:"method"`
	Carrier           string     `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber    string     `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	ShippedAt         *time.Time `bson:"shippedAt,omitempty" json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}

// TimelineEntry is one append-only record of a status change.
type TimelineEntry struct {
	Status    string              `bson:"status" json:"status"`
	Date      time.Time           `bson:"date" json:"date"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

type OrderNotes struct {
	Customer string `bson:"customer,omitempty" json:"customer,omitempty"`
	Internal string `bson:"internal,omitempty" json:"internal,omitempty"`
}

type Cancellation struct {
	Reason       string              `bson:"reason,omitempty" json:"reason,omitempty"`
	CancelledAt  *time.Time          `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy  *primitive.ObjectID `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	RefundAmount float64             `bson:"refundAmount,omitempty" json:"refundAmount,omitempty"`
	RefundStatus string              `bson:"refundStatus,omitempty" json:"refundStatus,omitempty"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress OrderAddress       `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  BillingAddress     `bson:"billingAddress" json:"billingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus     string             `bson:"orderStatus" json:"orderStatus"`
	Pricing         OrderPricing       `bson:"pricing" json:"pricing"`
	Coupon          *CartCoupon        `bson:"coupon,omitempty" json:"coupon,omitempty"`
	Payment         OrderPayment       `bson:"payment" json:"payment"`
	Shipping        OrderShipping      `bson:"shipping" json:"shipping"`
	Timeline        []TimelineEntry    `bson:"timeline" json:"timeline"`
	Notes           OrderNotes         `bson:"notes" json:"notes"`
	Cancellation    *Cancellation      `bson:"cancellation,omitempty" json:"cancellation,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

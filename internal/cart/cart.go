// Package cart implements the shopping-cart business rules: line merging,
// stock checks, option validation, coupon application and derived pricing.
// All mutation happens on the in-memory document; callers persist the
// result, so every rule here is testable without a database.
package cart

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/coupon"
	"stylehub/internal/models"
)

// Engine holds the injected cart policy: the sliding TTL window and the
// coupon lookup boundary.
type Engine struct {
	TTL     time.Duration
	Coupons coupon.Store
}

// New returns a cart with no items for the given user, already stamped
// with the expiry window.
func (e Engine) New(user primitive.ObjectID, now time.Time) models.Cart {
	return models.Cart{
		User:      user,
		Items:     []models.CartItem{},
		ExpiresAt: now.Add(e.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch extends the cart's expiry window from now. Every mutation slides
// the TTL.
func (e Engine) Touch(c *models.Cart, now time.Time) {
	c.ExpiresAt = now.Add(e.TTL)
	c.UpdatedAt = now
}

// AddItem appends a line or merges into an existing line with the same
// (product, color, size). The stored price is refreshed to the product's
// current price on merge. The product must already be resolved and active.
func (e Engine) AddItem(c *models.Cart, product models.Product, quantity int, color, size string, now time.Time) error {
	if quantity < 1 {
		return ValidationError{Reason: "quantity must be at least 1"}
	}
	if err := validateOptions(product, color, size); err != nil {
		return err
	}
	if quantity > product.Stock {
		return InsufficientStockError{ProductName: product.Name, Available: product.Stock, Requested: quantity}
	}

	for i := range c.Items {
		item := &c.Items[i]
		if item.Product == product.ID && item.SelectedColor == color && item.SelectedSize == size {
			merged := item.Quantity + quantity
			if merged > product.Stock {
				return InsufficientStockError{ProductName: product.Name, Available: product.Stock, Requested: merged}
			}
			item.Quantity = merged
			item.Price = product.Price
			e.Touch(c, now)
			return nil
		}
	}

	c.Items = append(c.Items, models.CartItem{
		ID:            primitive.NewObjectID(),
		Product:       product.ID,
		Quantity:      quantity,
		Price:         product.Price,
		SelectedColor: color,
		SelectedSize:  size,
		AddedAt:       now,
	})
	e.Touch(c, now)
	return nil
}

// UpdateItemQuantity sets a line's quantity. Zero removes the line. For a
// positive quantity the live product is required for the stock check and
// the stored price is refreshed.
func (e Engine) UpdateItemQuantity(c *models.Cart, itemID primitive.ObjectID, quantity int, product *models.Product, now time.Time) error {
	idx := findItem(c, itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		e.Touch(c, now)
		return nil
	}
	if quantity < 0 {
		return ValidationError{Reason: "quantity must not be negative"}
	}
	if product == nil || !product.IsActive {
		return notFoundError{what: "product"}
	}
	if quantity > product.Stock {
		return InsufficientStockError{ProductName: product.Name, Available: product.Stock, Requested: quantity}
	}
	c.Items[idx].Quantity = quantity
	c.Items[idx].Price = product.Price
	e.Touch(c, now)
	return nil
}

// RemoveItem deletes a line unconditionally if present.
func (e Engine) RemoveItem(c *models.Cart, itemID primitive.ObjectID, now time.Time) error {
	idx := findItem(c, itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	e.Touch(c, now)
	return nil
}

// Clear empties the cart, dropping any coupon and notes.
func (e Engine) Clear(c *models.Cart, now time.Time) {
	c.Items = []models.CartItem{}
	c.Coupon = nil
	c.Notes = ""
	e.Touch(c, now)
}

// ApplyCoupon validates the code and overwrites any existing coupon. The
// minimum-amount check runs against the plain subtotal before the new
// coupon is stored.
func (e Engine) ApplyCoupon(c *models.Cart, code string, now time.Time) error {
	if len(c.Items) == 0 {
		return CouponError{Reason: "cannot apply a coupon to an empty cart"}
	}
	cp, ok := e.Coupons.Lookup(code)
	if !ok {
		return CouponError{Reason: "invalid or expired coupon"}
	}
	if Subtotal(*c) < cp.MinAmount {
		return CouponError{Reason: "cart subtotal is below the coupon minimum"}
	}
	c.Coupon = &models.CartCoupon{
		Code:         cp.Code,
		Discount:     cp.Discount,
		DiscountType: cp.DiscountType,
	}
	e.Touch(c, now)
	return nil
}

// RemoveCoupon drops the coupon unconditionally.
func (e Engine) RemoveCoupon(c *models.Cart, now time.Time) {
	c.Coupon = nil
	e.Touch(c, now)
}

func validateOptions(product models.Product, color, size string) error {
	if len(product.Colors) > 0 {
		if color == "" {
			return OptionError{Field: "color", Missing: true}
		}
		if !contains(product.Colors, color) {
			return OptionError{Field: "color", Value: color}
		}
	}
	if len(product.Sizes) > 0 {
		if size == "" {
			return OptionError{Field: "size", Missing: true}
		}
		if !contains(product.Sizes, size) {
			return OptionError{Field: "size", Value: size}
		}
	}
	return nil
}

func findItem(c *models.Cart, itemID primitive.ObjectID) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

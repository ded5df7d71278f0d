package cart

import (
	"stylehub/internal/coupon"
	"stylehub/internal/models"
)

// Derived values are computed from the persisted lines on every read and
// never stored.

func Subtotal(c models.Cart) float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func TotalItems(c models.Cart) int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// CouponDiscount is a percentage of the subtotal, or a fixed amount capped
// at the subtotal.
func CouponDiscount(c models.Cart) float64 {
	if c.Coupon == nil || c.Coupon.Discount == 0 {
		return 0
	}
	subtotal := Subtotal(c)
	if c.Coupon.DiscountType == coupon.TypePercentage {
		return subtotal * c.Coupon.Discount / 100
	}
	if c.Coupon.Discount > subtotal {
		return subtotal
	}
	return c.Coupon.Discount
}

func Total(c models.Cart) float64 {
	total := Subtotal(c) - CouponDiscount(c)
	if total < 0 {
		return 0
	}
	return total
}

// Totals bundles the derived values for a response payload.
type Totals struct {
	TotalItems     int     `json:"totalItems"`
	Subtotal       float64 `json:"subtotal"`
	CouponDiscount float64 `json:"couponDiscount"`
	Total          float64 `json:"total"`
}

func ComputeTotals(c models.Cart) Totals {
	return Totals{
		TotalItems:     TotalItems(c),
		Subtotal:       Subtotal(c),
		CouponDiscount: CouponDiscount(c),
		Total:          Total(c),
	}
}

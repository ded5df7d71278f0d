// Package coupon is the lookup boundary for discount codes. The current
// implementation is a fixed in-memory table; handlers depend only on the
// Store interface so a persisted registry can replace it.
package coupon

import "strings"

const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Coupon describes a discount code.
type Coupon struct {
	Code         string
	Discount     float64
	DiscountType string
	MinAmount    float64
}

// Store resolves a code to a coupon. Codes are case-insensitive.
type Store interface {
	Lookup(code string) (Coupon, bool)
}

// StaticStore serves a fixed code table.
type StaticStore struct {
	coupons map[string]Coupon
}

// NewStaticStore returns the built-in coupon table.
func NewStaticStore() *StaticStore {
	return &StaticStore{coupons: map[string]Coupon{
		"WELCOME10": {Code: "WELCOME10", Discount: 10, DiscountType: TypePercentage, MinAmount: 0},
		"SAVE20":    {Code: "SAVE20", Discount: 20, DiscountType: TypePercentage, MinAmount: 50},
		"FIRST5":    {Code: "FIRST5", Discount: 5, DiscountType: TypeFixed, MinAmount: 25},
	}}
}

func (s *StaticStore) Lookup(code string) (Coupon, bool) {
	c, ok := s.coupons[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

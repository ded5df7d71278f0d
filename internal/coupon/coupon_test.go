package coupon

import "testing"

func TestLookupKnownCodes(t *testing.T) {
	store := NewStaticStore()

	tests := []struct {
		code         string
		discount     float64
		discountType string
		minAmount    float64
	}{
		{"WELCOME10", 10, TypePercentage, 0},
		{"SAVE20", 20, TypePercentage, 50},
		{"FIRST5", 5, TypeFixed, 25},
	}

	for _, tt := range tests {
		coupon, ok := store.Lookup(tt.code)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.code)
		}
		if coupon.Discount != tt.discount {
			t.Errorf("Lookup(%q).Discount = %v, want %v", tt.code, coupon.Discount, tt.discount)
		}
		if coupon.DiscountType != tt.discountType {
			t.Errorf("Lookup(%q).DiscountType = %q, want %q", tt.code, coupon.DiscountType, tt.discountType)
		}
		if coupon.MinAmount != tt.minAmount {
			t.Errorf("Lookup(%q).MinAmount = %v, want %v", tt.code, coupon.MinAmount, tt.minAmount)
		}
	}
}

func TestLookupNormalizesCode(t *testing.T) {
	store := NewStaticStore()

	if _, ok := store.Lookup("  welcome10 "); !ok {
		t.Fatal("lowercase padded code should resolve")
	}
}

func TestLookupUnknownCode(t *testing.T) {
	store := NewStaticStore()

	if _, ok := store.Lookup("NOPE"); ok {
		t.Fatal("unknown code should not resolve")
	}
}

package catalog

import "testing"

func TestDiscountPercent(t *testing.T) {
	if got := DiscountPercent(75, 100); got != 25 {
		t.Fatalf("expected 25%% discount, got %d", got)
	}
	if got := DiscountPercent(100, 0); got != 0 {
		t.Fatalf("expected 0 discount without originalPrice, got %d", got)
	}
	if got := DiscountPercent(100, 100); got != 0 {
		t.Fatalf("expected 0 discount when prices are equal, got %d", got)
	}
}

func TestValidatePriceFieldsRejectsLowerOriginal(t *testing.T) {
	if err := ValidatePriceFields(100, 80); err == nil {
		t.Fatal("expected error when originalPrice < price")
	}
	if err := ValidatePriceFields(80, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePriceFields(80, 0); err != nil {
		t.Fatalf("unexpected error without originalPrice: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Summer T-Shirt":        "summer-t-shirt",
		"  Classic   Jeans  ":   "classic-jeans",
		"Café & Croissant!":     "caf-croissant",
		"--Already--Slugged--":  "already-slugged",
		"MiXeD CaSe PRODUCT 42": "mixed-case-product-42",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestNormalizeProductDocumentDerivedFields(t *testing.T) {
	raw := bson.M{
		"name":          "canvas tote",
		"price":         40.0,
		"originalPrice": 50.0,
		"stock":         int32(3),
	}

	p, err := normalizeProductDocument(raw)
	if err != nil {
		t.Fatalf("normalizeProductDocument: %v", err)
	}

	if p.Stock != 3 {
		t.Errorf("Stock = %d, want 3", p.Stock)
	}
	if !p.InStock {
		t.Error("InStock should be true when stock is positive")
	}
	if p.DiscountPercent != 20 {
		t.Errorf("DiscountPercent = %d, want 20", p.DiscountPercent)
	}
}

func TestNormalizeProductDocumentMissingStock(t *testing.T) {
	p, err := normalizeProductDocument(bson.M{"name": "belt", "price": 15.0})
	if err != nil {
		t.Fatalf("normalizeProductDocument: %v", err)
	}

	if p.Stock != 0 {
		t.Errorf("Stock = %d, want 0", p.Stock)
	}
	if p.InStock {
		t.Error("InStock should be false when stock is missing")
	}
	if p.DiscountPercent != 0 {
		t.Errorf("DiscountPercent = %d, want 0", p.DiscountPercent)
	}
}

func TestLowerCamel(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"Email":     "email",
		"FirstName": "firstName",
		"sku":       "sku",
	}
	for in, want := range tests {
		if got := lowerCamel(in); got != want {
			t.Errorf("lowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToFloat(t *testing.T) {
	if v, ok := toFloat(12.5); !ok || v != 12.5 {
		t.Errorf("toFloat(12.5) = %v, %v", v, ok)
	}
	if v, ok := toFloat(int32(7)); !ok || v != 7 {
		t.Errorf("toFloat(int32(7)) = %v, %v", v, ok)
	}
	if _, ok := toFloat("12"); ok {
		t.Error("strings should not convert")
	}
}

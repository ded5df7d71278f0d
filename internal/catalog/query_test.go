package catalog

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func queryValues(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(queryValues(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Page != 1 || q.Limit != 12 {
		t.Fatalf("expected default page=1 limit=12, got page=%d limit=%d", q.Page, q.Limit)
	}
	filter := q.Filter()
	if filter["isActive"] != true {
		t.Fatal("expected isActive filter on public listing")
	}
	if len(filter) != 1 {
		t.Fatalf("expected bare filter, got %v", filter)
	}
}

func TestParseQueryRejectsMalformedNumbers(t *testing.T) {
	if _, err := ParseQuery(queryValues(map[string]string{"minPrice": "abc"})); err == nil {
		t.Fatal("expected error for malformed minPrice")
	}
	if _, err := ParseQuery(queryValues(map[string]string{"page": "0"})); err == nil {
		t.Fatal("expected error for page=0")
	}
	if _, err := ParseQuery(queryValues(map[string]string{"limit": "500"})); err == nil {
		t.Fatal("expected error for oversized limit")
	}
}

func TestFilterPriceRange(t *testing.T) {
	q, err := ParseQuery(queryValues(map[string]string{"minPrice": "10", "maxPrice": "50", "inStock": "true"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	filter := q.Filter()
	price, ok := filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected price range clause, got %v", filter)
	}
	if price["$gte"] != 10.0 || price["$lte"] != 50.0 {
		t.Fatalf("unexpected price clause: %v", price)
	}
	stock, ok := filter["stock"].(bson.M)
	if !ok || stock["$gt"] != 0 {
		t.Fatalf("expected stock clause, got %v", filter["stock"])
	}
}

func TestSortOrders(t *testing.T) {
	tests := map[string]string{
		"price-low":  "price",
		"price-high": "price",
		"rating":     "rating.average",
		"newest":     "createdAt",
		"oldest":     "createdAt",
		"popular":    "sales",
		"":           "name",
		"bogus":      "name",
	}
	for sortBy, firstKey := range tests {
		q := Query{SortBy: sortBy}
		sort := q.Sort()
		if sort[0].Key != firstKey {
			t.Fatalf("sortBy=%q: expected first key %q, got %q", sortBy, firstKey, sort[0].Key)
		}
	}
}

func TestPaginate(t *testing.T) {
	p := Paginate(2, 12, 30)
	if p.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.Pages)
	}
	if !p.HasNext || !p.HasPrev {
		t.Fatal("page 2 of 3 should have next and prev")
	}
	if p.Next == nil || *p.Next != 3 || p.Prev == nil || *p.Prev != 1 {
		t.Fatalf("unexpected next/prev: %v %v", p.Next, p.Prev)
	}

	last := Paginate(3, 12, 30)
	if last.HasNext || last.Next != nil {
		t.Fatal("last page should not have next")
	}
}

func TestSuggestionFilterUsesPrefix(t *testing.T) {
	filter := SuggestionFilter("sneakers")
	clauses, ok := filter["$or"].([]bson.M)
	if !ok || len(clauses) != 2 {
		t.Fatalf("expected two suggestion clauses, got %v", filter)
	}
	name := clauses[0]["name"].(bson.M)
	if name["$regex"] != "sne" {
		t.Fatalf("expected 3-char prefix, got %v", name["$regex"])
	}
}

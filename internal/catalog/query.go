package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query carries the parsed product listing parameters.
type Query struct {
	Category   string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	IsNew      bool
	IsFeatured bool
	Brand      string
	MinRating  *float64
	SortBy     string
	Page       int64
	Limit      int64
}

// ParseQuery reads the raw query string values into a Query. Malformed
// numeric values are a validation error, not silently ignored.
func ParseQuery(get func(string) string) (Query, error) {
	q := Query{
		Category:   strings.TrimSpace(get("category")),
		Search:     strings.TrimSpace(get("search")),
		Brand:      strings.TrimSpace(get("brand")),
		SortBy:     strings.TrimSpace(get("sortBy")),
		InStock:    get("inStock") == "true",
		IsNew:      get("isNew") == "true",
		IsFeatured: get("isFeatured") == "true",
	}

	var err error
	if q.MinPrice, err = parseOptionalFloat(get("minPrice")); err != nil {
		return Query{}, fmt.Errorf("invalid minPrice")
	}
	if q.MaxPrice, err = parseOptionalFloat(get("maxPrice")); err != nil {
		return Query{}, fmt.Errorf("invalid maxPrice")
	}
	if q.MinRating, err = parseOptionalFloat(get("minRating")); err != nil {
		return Query{}, fmt.Errorf("invalid minRating")
	}

	q.Page, q.Limit, err = ParsePagination(get("page"), get("limit"), 12)
	if err != nil {
		return Query{}, err
	}
	return q, nil
}

// Filter builds the Mongo filter document for a listing query. Inactive
// products never show up on public routes.
func (q Query) Filter() bson.M {
	filter := bson.M{"isActive": true}

	if q.Category != "" {
		if id, err := primitive.ObjectIDFromHex(q.Category); err == nil {
			filter["category"] = id
		} else {
			// unknown category matches nothing rather than everything
			filter["category"] = primitive.NilObjectID
		}
	}
	if q.Search != "" {
		filter["$or"] = searchClauses(q.Search)
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		filter["price"] = price
	}
	if q.InStock {
		filter["stock"] = bson.M{"$gt": 0}
	}
	if q.IsNew {
		filter["isNew"] = true
	}
	if q.IsFeatured {
		filter["isFeatured"] = true
	}
	if q.Brand != "" {
		filter["brand"] = bson.M{"$regex": regexEscape(q.Brand), "$options": "i"}
	}
	if q.MinRating != nil {
		filter["rating.average"] = bson.M{"$gte": *q.MinRating}
	}
	return filter
}

// searchClauses matches the phrase against name, description, brand and tags.
func searchClauses(term string) []bson.M {
	pattern := regexEscape(term)
	return []bson.M{
		{"name": bson.M{"$regex": pattern, "$options": "i"}},
		{"description": bson.M{"$regex": pattern, "$options": "i"}},
		{"brand": bson.M{"$regex": pattern, "$options": "i"}},
		{"tags": bson.M{"$in": []primitive.Regex{{Pattern: pattern, Options: "i"}}}},
	}
}

// SuggestionFilter matches loosely on the first characters of a failed
// search term, to offer alternatives when the search returns nothing.
func SuggestionFilter(term string) bson.M {
	prefix := term
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	pattern := regexEscape(prefix)
	return bson.M{
		"isActive": true,
		"$or": []bson.M{
			{"name": bson.M{"$regex": pattern, "$options": "i"}},
			{"tags": bson.M{"$in": []primitive.Regex{{Pattern: pattern, Options: "i"}}}},
		},
	}
}

// Sort maps the six public sort orders onto Mongo sort documents.
// Unknown values fall back to name.
func (q Query) Sort() bson.D {
	switch q.SortBy {
	case "price-low":
		return bson.D{{Key: "price", Value: 1}}
	case "price-high":
		return bson.D{{Key: "price", Value: -1}}
	case "rating":
		return bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}}
	case "newest":
		return bson.D{{Key: "createdAt", Value: -1}}
	case "oldest":
		return bson.D{{Key: "createdAt", Value: 1}}
	case "popular":
		return bson.D{{Key: "sales", Value: -1}, {Key: "views", Value: -1}}
	default:
		return bson.D{{Key: "name", Value: 1}}
	}
}

// Pagination is the page envelope returned alongside list results.
type Pagination struct {
	Current int64  `json:"current"`
	Pages   int64  `json:"pages"`
	Total   int64  `json:"total"`
	Limit   int64  `json:"limit"`
	HasNext bool   `json:"hasNext"`
	HasPrev bool   `json:"hasPrev"`
	Next    *int64 `json:"next"`
	Prev    *int64 `json:"prev"`
}

// ParsePagination validates page/limit strings, applying defaults when empty.
func ParsePagination(pageStr, limitStr string, defaultLimit int64) (int64, int64, error) {
	page := int64(1)
	limit := defaultLimit

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, fmt.Errorf("invalid pagination params")
		}
		page = p
	}
	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 || l > 100 {
			return 0, 0, fmt.Errorf("invalid pagination params")
		}
		limit = l
	}
	return page, limit, nil
}

// Paginate computes the page envelope for a total row count.
func Paginate(page, limit, total int64) Pagination {
	pages := (total + limit - 1) / limit
	p := Pagination{
		Current: page,
		Pages:   pages,
		Total:   total,
		Limit:   limit,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
	if p.HasNext {
		next := page + 1
		p.Next = &next
	}
	if p.HasPrev {
		prev := page - 1
		p.Prev = &prev
	}
	return p
}

func parseOptionalFloat(value string) (*float64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("invalid number")
	}
	return &f, nil
}

var regexSpecial = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
	`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
	`^`, `\^`, `$`, `\$`, `|`, `\|`,
)

func regexEscape(s string) string {
	return regexSpecial.Replace(s)
}

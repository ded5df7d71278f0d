package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stylehub/internal/catalog"
	"stylehub/internal/models"
)

// GetProducts lists active products with filtering, sorting and a page
// envelope.
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		query, err := catalog.ParseQuery(c.Query)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		filter := query.Filter()
		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		findOptions := options.Find().
			SetSort(query.Sort()).
			SetSkip((query.Page - 1) * query.Limit).
			SetLimit(query.Limit)

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		log.Printf("[%s] returning %d of %d products", route, len(products), total)
		respondOK(c, "", gin.H{
			"products":   products,
			"pagination": catalog.Paginate(query.Page, query.Limit, total),
		})
	}
}

// GetFeaturedProducts returns up to 8 featured products.
func GetFeaturedProducts(db *mongo.Database) gin.HandlerFunc {
	return curatedList(db, "GET /products/featured", bson.M{"isActive": true, "isFeatured": true})
}

// GetNewProducts returns up to 8 new arrivals.
func GetNewProducts(db *mongo.Database) gin.HandlerFunc {
	return curatedList(db, "GET /products/new", bson.M{"isActive": true, "isNew": true})
}

func curatedList(db *mongo.Database, route string, filter bson.M) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(8)

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		respondOK(c, "", gin.H{"products": products})
	}
}

// SearchProducts searches active products. When nothing matches, loosely
// related product names come back as suggestions.
func SearchProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/search"
		defer handlePanic(c, route)

		term := strings.TrimSpace(c.Query("q"))
		if len(term) < 2 {
			respondWithError(c, http.StatusBadRequest, route, "Search query must be at least 2 characters")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		page, limit, err := catalog.ParsePagination(c.Query("page"), c.Query("limit"), 12)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		query := catalog.Query{Search: term, Page: page, Limit: limit}

		ctx, cancel := opContext(c)
		defer cancel()

		filter := query.Filter()
		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Search failed")
			return
		}

		findOptions := options.Find().
			SetSort(query.Sort()).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Search failed")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Search failed")
			return
		}

		data := gin.H{
			"products":   products,
			"pagination": catalog.Paginate(page, limit, total),
			"query":      term,
		}

		if total == 0 {
			data["suggestions"] = searchSuggestions(ctx, db, term)
		}

		respondOK(c, "", data)
	}
}

func searchSuggestions(ctx context.Context, db *mongo.Database, term string) []string {
	findOptions := options.Find().
		SetProjection(bson.M{"name": 1}).
		SetLimit(5)

	cursor, err := db.Collection("products").Find(ctx, catalog.SuggestionFilter(term), findOptions)
	if err != nil {
		log.Println("[SEARCH] [WARN] suggestion lookup failed:", err)
		return []string{}
	}
	defer cursor.Close(ctx)

	suggestions := make([]string, 0, 5)
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		suggestions = append(suggestions, doc.Name)
	}
	return suggestions
}

// GetProductsByCategory lists products under a category resolved by id or
// slug.
func GetProductsByCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/category/:categoryId"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		param := strings.TrimSpace(c.Param("categoryId"))
		categoryFilter := bson.M{"isActive": true}
		if id, err := primitive.ObjectIDFromHex(param); err == nil {
			categoryFilter["_id"] = id
		} else {
			categoryFilter["slug"] = param
		}

		var category models.Category
		if err := db.Collection("categories").FindOne(ctx, categoryFilter).Decode(&category); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		query, err := catalog.ParseQuery(c.Query)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		query.Category = category.ID.Hex()

		filter := query.Filter()
		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		findOptions := options.Find().
			SetSort(query.Sort()).
			SetSkip((query.Page - 1) * query.Limit).
			SetLimit(query.Limit)

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		respondOK(c, "", gin.H{
			"category":   category,
			"products":   products,
			"pagination": catalog.Paginate(query.Page, query.Limit, total),
		})
	}
}

// GetProduct returns one active product with up to four related products
// from the same category. The view counter update does not block the
// response.
func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var raw bson.M
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&raw)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch product")
			return
		}

		go func() {
			viewCtx, viewCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer viewCancel()

			_, err := db.Collection("products").UpdateByID(viewCtx, id, bson.M{"$inc": bson.M{"views": 1}})
			if err != nil {
				log.Printf("[%s] view increment failed: %v", route, err)
			}
		}()

		related, err := relatedProducts(ctx, db, product)
		if err != nil {
			log.Printf("[%s] related lookup failed: %v", route, err)
			related = []models.Product{}
		}

		respondOK(c, "", gin.H{
			"product":         product,
			"relatedProducts": related,
		})
	}
}

func relatedProducts(ctx context.Context, db *mongo.Database, product models.Product) ([]models.Product, error) {
	filter := bson.M{
		"isActive": true,
		"category": product.Category,
		"_id":      bson.M{"$ne": product.ID},
	}

	cursor, err := db.Collection("products").Find(ctx, filter, options.Find().SetLimit(4))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeProducts(ctx, cursor)
}

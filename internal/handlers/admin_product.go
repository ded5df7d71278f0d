package handlers

import (
	"context"
	"errors"
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

var errInvalidUpdate = errors.New("invalid update")

type productRequest struct {
	Name          string                `json:"name" binding:"required"`
	Description   string                `json:"description"`
	Price         float64               `json:"price" binding:"required,gt=0"`
	OriginalPrice float64               `json:"originalPrice"`
	Category      string                `json:"category" binding:"required"`
	Brand         string                `json:"brand"`
	Images        []models.ProductImage `json:"images"`
	Colors        []string              `json:"colors"`
	Sizes         []string              `json:"sizes"`
	Stock         int                   `json:"stock" binding:"gte=0"`
	SKU           string                `json:"sku"`
	IsNew         bool                  `json:"isNew"`
	IsFeatured    bool                  `json:"isFeatured"`
	Tags          []string              `json:"tags"`
}

// GetAllProducts lists products for the admin panel, inactive ones
// included.
func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		page, limit, err := catalog.ParsePagination(c.Query("page"), c.Query("limit"), 20)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if c.Query("isActive") == "true" {
			filter["isActive"] = true
		} else if c.Query("isActive") == "false" {
			filter["isActive"] = false
		}

		ctx, cancel := opContext(c)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch products")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

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
			"products":   products,
			"pagination": catalog.Paginate(page, limit, total),
		})
	}
}

// CreateProduct inserts a product. The slug derives from the name; a
// duplicate slug or SKU is a conflict.
func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products"
		defer handlePanic(c, route)

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if err := catalog.ValidatePriceFields(req.Price, req.OriginalPrice); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		categoryID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.Category))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid category id")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		count, err := db.Collection("categories").CountDocuments(ctx, bson.M{"_id": categoryID, "isActive": true})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to create product")
			return
		}
		if count == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Category not found")
			return
		}

		now := time.Now()
		product := models.Product{
			Name:          strings.TrimSpace(req.Name),
			Description:   strings.TrimSpace(req.Description),
			Price:         req.Price,
			OriginalPrice: req.OriginalPrice,
			Category:      categoryID,
			Brand:         strings.TrimSpace(req.Brand),
			Images:        req.Images,
			Colors:        req.Colors,
			Sizes:         req.Sizes,
			Stock:         req.Stock,
			SKU:           strings.ToUpper(strings.TrimSpace(req.SKU)),
			Slug:          catalog.Slugify(req.Name),
			IsActive:      true,
			IsNew:         req.IsNew,
			IsFeatured:    req.IsFeatured,
			Tags:          req.Tags,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "A product with this name or SKU already exists")
				return
			}
			log.Printf("[%s] insert failed: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "Failed to create product")
			return
		}

		product.ID, _ = res.InsertedID.(primitive.ObjectID)
		product.InStock = catalog.InStock(product.Stock)
		product.DiscountPercent = catalog.DiscountPercent(product.Price, product.OriginalPrice)

		refreshCategoryCount(db, categoryID)

		log.Printf("[%s] created product %s", route, product.ID.Hex())
		respondCreated(c, "Product created successfully", gin.H{"product": product})
	}
}

// UpdateProduct applies a partial update. Changing the name regenerates
// the slug.
func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		var req map[string]interface{}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid request body")
			return
		}

		update, oldCategory, err := buildProductUpdate(c, db, id, req, route)
		if err != nil {
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var raw bson.M
		err = db.Collection("products").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": update},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&raw)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "Product not found")
				return
			}
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "A product with this name or SKU already exists")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update product")
			return
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update product")
			return
		}

		refreshCategoryCount(db, product.Category)
		if oldCategory != primitive.NilObjectID && oldCategory != product.Category {
			refreshCategoryCount(db, oldCategory)
		}

		respondOK(c, "Product updated successfully", gin.H{"product": product})
	}
}

// buildProductUpdate validates the incoming fields and assembles the $set
// document. It writes the error response itself when validation fails.
func buildProductUpdate(c *gin.Context, db *mongo.Database, id primitive.ObjectID, req map[string]interface{}, route string) (bson.M, primitive.ObjectID, error) {
	update := bson.M{"updatedAt": time.Now()}
	oldCategory := primitive.NilObjectID

	allowed := map[string]bool{
		"name": true, "description": true, "price": true, "originalPrice": true,
		"category": true, "brand": true, "images": true, "colors": true,
		"sizes": true, "stock": true, "sku": true, "isActive": true,
		"isNew": true, "isFeatured": true, "tags": true,
	}
	for key, value := range req {
		if allowed[key] {
			update[key] = value
		}
	}

	if name, ok := update["name"].(string); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "Product name must not be empty")
			return nil, oldCategory, errInvalidUpdate
		}
		update["name"] = name
		update["slug"] = catalog.Slugify(name)
	}

	if price, hasPrice := toFloat(update["price"]); hasPrice {
		original, _ := toFloat(update["originalPrice"])
		if err := catalog.ValidatePriceFields(price, original); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return nil, oldCategory, errInvalidUpdate
		}
	}

	if stock, hasStock := toFloat(update["stock"]); hasStock && stock < 0 {
		respondWithError(c, http.StatusBadRequest, route, "Stock must not be negative")
		return nil, oldCategory, errInvalidUpdate
	}

	if sku, ok := update["sku"].(string); ok {
		update["sku"] = strings.ToUpper(strings.TrimSpace(sku))
	}

	if rawCategory, ok := update["category"].(string); ok {
		categoryID, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawCategory))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid category id")
			return nil, oldCategory, errInvalidUpdate
		}
		update["category"] = categoryID

		ctx, cancel := opContext(c)
		defer cancel()

		var current models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&current); err == nil {
			oldCategory = current.Category
		}
	}

	return update, oldCategory, nil
}

// DeleteProduct soft-deletes: the product is deactivated, never removed,
// so existing order snapshots keep resolving.
func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
		).Decode(&product)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		refreshCategoryCount(db, product.Category)

		log.Printf("[%s] deactivated product %s", route, id.Hex())
		respondOK(c, "Product deleted successfully", nil)
	}
}

// GetProductStats aggregates catalog totals for the admin dashboard.
func GetProductStats(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/products/stats"
		defer handlePanic(c, route)

		ctx, cancel := opContext(c)
		defer cancel()

		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"isActive": true}}},
			{{Key: "$group", Value: bson.M{
				"_id":           nil,
				"totalProducts": bson.M{"$sum": 1},
				"totalStock":    bson.M{"$sum": "$stock"},
				"totalSales":    bson.M{"$sum": "$sales"},
				"totalViews":    bson.M{"$sum": "$views"},
				"averagePrice":  bson.M{"$avg": "$price"},
				"outOfStock": bson.M{"$sum": bson.M{
					"$cond": bson.A{bson.M{"$lte": bson.A{"$stock", 0}}, 1, 0},
				}},
			}}},
		}

		cursor, err := db.Collection("products").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to compute stats")
			return
		}
		defer cursor.Close(ctx)

		stats := bson.M{
			"totalProducts": 0, "totalStock": 0, "totalSales": 0,
			"totalViews": 0, "averagePrice": 0, "outOfStock": 0,
		}
		if cursor.Next(ctx) {
			if err := cursor.Decode(&stats); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Failed to compute stats")
				return
			}
			delete(stats, "_id")
		}

		respondOK(c, "", gin.H{"stats": stats})
	}
}

// refreshCategoryCount recounts a category's active products in the
// background.
func refreshCategoryCount(db *mongo.Database, categoryID primitive.ObjectID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("products").CountDocuments(ctx, bson.M{
			"category": categoryID,
			"isActive": true,
		})
		if err != nil {
			log.Println("[CATEGORY] [WARN] product count failed:", err)
			return
		}

		_, err = db.Collection("categories").UpdateByID(ctx, categoryID, bson.M{
			"$set": bson.M{"productCount": count, "updatedAt": time.Now()},
		})
		if err != nil {
			log.Println("[CATEGORY] [WARN] product count update failed:", err)
		}
	}()
}

func toFloat(value interface{}) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}

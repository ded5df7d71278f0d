package handlers

import (
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

type categoryRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	ParentCategory string `json:"parentCategory"`
	SortOrder      int    `json:"sortOrder"`
}

// GetCategories lists active categories ordered by sortOrder then name.
func GetCategories(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		findOptions := options.Find().
			SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})

		cursor, err := db.Collection("categories").Find(ctx, bson.M{"isActive": true}, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch categories")
			return
		}
		defer cursor.Close(ctx)

		categories := make([]models.Category, 0)
		if err := cursor.All(ctx, &categories); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch categories")
			return
		}

		respondOK(c, "", gin.H{"categories": categories})
	}
}

// GetCategory returns one active category by id or slug.
func GetCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories/:id"
		defer handlePanic(c, route)

		param := strings.TrimSpace(c.Param("id"))

		filter := bson.M{"isActive": true}
		if id, err := primitive.ObjectIDFromHex(param); err == nil {
			filter["_id"] = id
		} else {
			filter["slug"] = param
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var category models.Category
		if err := db.Collection("categories").FindOne(ctx, filter).Decode(&category); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		respondOK(c, "", gin.H{"category": category})
	}
}

// CreateCategory inserts a category; the slug derives from the name.
func CreateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/categories"
		defer handlePanic(c, route)

		var req categoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		now := time.Now()
		category := models.Category{
			Name:        strings.TrimSpace(req.Name),
			Slug:        catalog.Slugify(req.Name),
			Description: strings.TrimSpace(req.Description),
			Image:       strings.TrimSpace(req.Image),
			SortOrder:   req.SortOrder,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if parent := strings.TrimSpace(req.ParentCategory); parent != "" {
			parentID, err := primitive.ObjectIDFromHex(parent)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "Invalid parentCategory id")
				return
			}
			category.ParentCategory = &parentID
		}

		ctx, cancel := opContext(c)
		defer cancel()

		res, err := db.Collection("categories").InsertOne(ctx, category)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "A category with this name already exists")
				return
			}
			log.Printf("[%s] insert failed: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "Failed to create category")
			return
		}

		category.ID, _ = res.InsertedID.(primitive.ObjectID)
		respondCreated(c, "Category created successfully", gin.H{"category": category})
	}
}

// UpdateCategory applies a partial update. Renaming regenerates the slug.
func UpdateCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/categories/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		var req map[string]interface{}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid request body")
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		allowed := map[string]bool{
			"name": true, "description": true, "image": true,
			"sortOrder": true, "isActive": true,
		}
		for key, value := range req {
			if allowed[key] {
				update[key] = value
			}
		}

		if name, ok := update["name"].(string); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "Category name must not be empty")
				return
			}
			update["name"] = name
			update["slug"] = catalog.Slugify(name)
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var category models.Category
		err = db.Collection("categories").FindOneAndUpdate(
			ctx,
			bson.M{"_id": id},
			bson.M{"$set": update},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&category)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "Category not found")
				return
			}
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "A category with this name already exists")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update category")
			return
		}

		respondOK(c, "Category updated successfully", gin.H{"category": category})
	}
}

// DeleteCategory deactivates a category. Categories that still hold active
// products cannot be deleted.
func DeleteCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/categories/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		count, err := db.Collection("products").CountDocuments(ctx, bson.M{
			"category": id,
			"isActive": true,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to delete category")
			return
		}
		if count > 0 {
			respondWithError(c, http.StatusBadRequest, route, "Cannot delete a category that still has products")
			return
		}

		res, err := db.Collection("categories").UpdateByID(ctx, id, bson.M{
			"$set": bson.M{"isActive": false, "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to delete category")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "Category not found")
			return
		}

		respondOK(c, "Category deleted successfully", nil)
	}
}

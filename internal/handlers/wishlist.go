package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stylehub/internal/models"
)

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// GetWishlist returns the user's wishlist with the product documents
// resolved.
func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /wishlist"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var wishlist models.Wishlist
		err := db.Collection("wishlists").FindOne(ctx, bson.M{"user": userID}).Decode(&wishlist)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				respondOK(c, "", gin.H{"products": []models.Product{}})
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch wishlist")
			return
		}

		products := make([]models.Product, 0, len(wishlist.Products))
		if len(wishlist.Products) > 0 {
			cursor, err := db.Collection("products").Find(ctx, bson.M{
				"_id":      bson.M{"$in": wishlist.Products},
				"isActive": true,
			})
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch wishlist")
				return
			}
			defer cursor.Close(ctx)

			products, err = decodeProducts(ctx, cursor)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch wishlist")
				return
			}
		}

		respondOK(c, "", gin.H{"products": products})
	}
}

// AddToWishlist adds a product id; re-adding is a no-op.
func AddToWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /wishlist"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		count, err := db.Collection("products").CountDocuments(ctx, bson.M{"_id": productID, "isActive": true})
		if err != nil || count == 0 {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		now := time.Now()
		_, err = db.Collection("wishlists").UpdateOne(ctx,
			bson.M{"user": userID},
			bson.M{
				"$addToSet":    bson.M{"products": productID},
				"$set":         bson.M{"updatedAt": now},
				"$setOnInsert": bson.M{"user": userID, "createdAt": now},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update wishlist")
			return
		}

		respondOK(c, "Added to wishlist", nil)
	}
}

// RemoveFromWishlist drops a product id from the wishlist.
func RemoveFromWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /wishlist/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		productID, err := objectIDParam(c, "productId")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		res, err := db.Collection("wishlists").UpdateOne(ctx,
			bson.M{"user": userID},
			bson.M{
				"$pull": bson.M{"products": productID},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update wishlist")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "Wishlist is empty")
			return
		}

		respondOK(c, "Removed from wishlist", nil)
	}
}

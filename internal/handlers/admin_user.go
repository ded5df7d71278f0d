package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stylehub/internal/catalog"
	"stylehub/internal/models"
)

type adminUpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// GetUsers lists accounts for the admin panel, optionally filtered by role
// or a name/email search.
func GetUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/users"
		defer handlePanic(c, route)

		page, limit, err := catalog.ParsePagination(c.Query("page"), c.Query("limit"), 20)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if role := strings.TrimSpace(c.Query("role")); role != "" {
			filter["role"] = role
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"email": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		ctx, cancel := opContext(c)
		defer cancel()

		total, err := db.Collection("users").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch users")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetProjection(bson.M{"passwordHash": 0, "passwordReset": 0})

		cursor, err := db.Collection("users").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch users")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch users")
			return
		}

		respondOK(c, "", gin.H{
			"users":      users,
			"pagination": catalog.Paginate(page, limit, total),
		})
	}
}

// GetUser returns one account.
func GetUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/users/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOne(ctx,
			bson.M{"_id": id},
			options.FindOne().SetProjection(bson.M{"passwordHash": 0, "passwordReset": 0}),
		).Decode(&user)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		respondOK(c, "", gin.H{"user": user})
	}
}

// UpdateUser changes an account's role or active flag. An admin cannot
// deactivate their own account.
func UpdateUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/users/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		var req adminUpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		if req.Role != nil {
			role := strings.TrimSpace(*req.Role)
			if role != models.RoleCustomer && role != models.RoleAdmin {
				respondWithError(c, http.StatusBadRequest, route, "Invalid role")
				return
			}
			update["role"] = role
		}
		if req.IsActive != nil {
			if adminID, ok := currentUserID(c); ok && adminID == id && !*req.IsActive {
				respondWithError(c, http.StatusBadRequest, route, "You cannot deactivate your own account")
				return
			}
			update["isActive"] = *req.IsActive
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			bson.M{"$set": update},
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"passwordHash": 0, "passwordReset": 0}),
		).Decode(&user)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		if req.IsActive != nil && !*req.IsActive {
			_, _ = db.Collection("refresh_tokens").UpdateMany(ctx,
				bson.M{"userId": id, "revoked": false},
				bson.M{"$set": bson.M{"revoked": true}},
			)
		}

		respondOK(c, "User updated", gin.H{"user": user})
	}
}

// DeleteUser deactivates an account instead of removing the document, so
// order history keeps resolving. Active refresh tokens are revoked.
func DeleteUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/users/:id"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		if adminID, ok := currentUserID(c); ok && adminID == id {
			respondWithError(c, http.StatusBadRequest, route, "You cannot deactivate your own account")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		result, err := db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to deactivate user")
			return
		}
		if result.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		_, _ = db.Collection("refresh_tokens").UpdateMany(ctx,
			bson.M{"userId": id, "revoked": false},
			bson.M{"$set": bson.M{"revoked": true}},
		)

		respondOK(c, "User deactivated", nil)
	}
}

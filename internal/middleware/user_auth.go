package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stylehub/internal/models"
)

// UserAuth validates the bearer token, resolves the user document and
// injects userId, userRole and user into the context. Requests from
// deactivated accounts are rejected even when the token is still valid.
func UserAuth(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, db, secret)
		if !ok {
			return
		}

		c.Set("userId", user.ID)
		c.Set("userRole", user.Role)
		c.Set("user", user)
		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present and lets the
// request through anonymously otherwise.
func OptionalAuth(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}

		user, userID, role, err := lookupTokenUser(c.Request.Context(), db, secret, raw)
		if err != nil {
			c.Next()
			return
		}

		c.Set("userId", userID)
		c.Set("userRole", role)
		c.Set("user", user)
		c.Next()
	}
}

// AdminOnly allows only authenticated admins through. It must run after
// UserAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("userRole")
		if role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

func resolveUser(c *gin.Context, db *mongo.Database, secret string) (models.User, bool) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		log.Println("[AUTH] [ERROR] missing token")
		abortUnauthorized(c, "Authentication required")
		return models.User{}, false
	}

	user, _, _, err := lookupTokenUser(c.Request.Context(), db, secret, raw)
	if err != nil {
		log.Println("[AUTH] [ERROR]", err)
		abortUnauthorized(c, "Invalid or expired token")
		return models.User{}, false
	}

	return user, true
}

func lookupTokenUser(ctx context.Context, db *mongo.Database, secret, raw string) (models.User, primitive.ObjectID, string, error) {
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.User{}, primitive.NilObjectID, "", errors.New("invalid token format")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return models.User{}, primitive.NilObjectID, "", fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, primitive.NilObjectID, "", errors.New("token claims invalid")
	}

	userIDValue, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(userIDValue) == "" {
		return models.User{}, primitive.NilObjectID, "", errors.New("userId claim missing")
	}

	userID, err := primitive.ObjectIDFromHex(userIDValue)
	if err != nil {
		return models.User{}, primitive.NilObjectID, "", errors.New("invalid userId claim")
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err = db.Collection("users").FindOne(
		opCtx,
		bson.M{"_id": userID, "isActive": true},
		options.FindOne().SetProjection(bson.M{"passwordHash": 0}),
	).Decode(&user)
	if err != nil {
		return models.User{}, primitive.NilObjectID, "", fmt.Errorf("user lookup failed: %w", err)
	}

	return user, user.ID, user.Role, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

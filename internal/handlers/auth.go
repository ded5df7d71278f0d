package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
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
	"golang.org/x/crypto/bcrypt"

	"stylehub/internal/config"
	"stylehub/internal/models"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type updateProfileRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}

func publicUser(u models.User) gin.H {
	return gin.H{
		"id":            u.ID.Hex(),
		"name":          u.Name,
		"email":         u.Email,
		"role":          u.Role,
		"phone":         u.Phone,
		"avatar":        u.Avatar,
		"addresses":     u.Addresses,
		"emailVerified": u.EmailVerified,
		"createdAt":     u.CreatedAt,
	}
}

// Register creates a customer account and signs it in.
func Register(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := opContext(c)
		defer cancel()

		count, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": email})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Registration failed")
			return
		}
		if count > 0 {
			respondWithError(c, http.StatusConflict, route, "Email is already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] password hash failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Registration failed")
			return
		}

		now := time.Now()
		user := models.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleCustomer,
			Phone:        strings.TrimSpace(req.Phone),
			Addresses:    []models.Address{},
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "Email is already registered")
				return
			}
			log.Println("[AUTH] [ERROR] register insert failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Registration failed")
			return
		}
		user.ID, _ = res.InsertedID.(primitive.ObjectID)

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Registration failed")
			return
		}

		log.Println("[AUTH] [INFO] user registered:", email)
		respondCreated(c, "Registration successful", gin.H{
			"user":         publicUser(user),
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
		})
	}
}

// Login verifies credentials and issues a token pair. Deactivated accounts
// cannot sign in.
func Login(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
			log.Println("[AUTH] [ERROR] login unknown email")
			respondWithError(c, http.StatusUnauthorized, route, "Invalid email or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid password for:", email)
			respondWithError(c, http.StatusUnauthorized, route, "Invalid email or password")
			return
		}

		if !user.IsActive {
			log.Println("[AUTH] [ERROR] login for deactivated account:", email)
			respondWithError(c, http.StatusForbidden, route, "Account is deactivated")
			return
		}

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Login failed")
			return
		}

		now := time.Now()
		_, _ = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"lastLogin": now}})

		log.Println("[AUTH] [INFO] login succeeded:", email)
		respondOK(c, "Login successful", gin.H{
			"user":         publicUser(user),
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
		})
	}
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func Refresh(db *mongo.Database, jwtSecret string, accessTTL, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/refresh"
		defer handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		hash := hashToken(strings.TrimSpace(req.RefreshToken))
		var token models.RefreshToken
		err := db.Collection("refresh_tokens").FindOne(ctx, bson.M{
			"tokenHash": hash,
			"revoked":   false,
		}).Decode(&token)
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
			return
		}

		if time.Now().After(token.ExpiresAt) {
			_, _ = db.Collection("refresh_tokens").UpdateByID(ctx, token.ID, bson.M{"$set": bson.M{"revoked": true}})
			respondWithError(c, http.StatusUnauthorized, route, "Refresh token expired")
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": token.UserID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
			return
		}
		if !user.IsActive {
			respondWithError(c, http.StatusForbidden, route, "Account is deactivated")
			return
		}

		tokens, err := issueTokens(ctx, db, user, jwtSecret, accessTTL, refreshTTL)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Token refresh failed")
			return
		}

		_, _ = db.Collection("refresh_tokens").UpdateByID(ctx, token.ID, bson.M{
			"$set": bson.M{
				"revoked":         true,
				"replacedByToken": tokens.RefreshTokenID,
			},
		})

		respondOK(c, "", gin.H{
			"user":         publicUser(user),
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
		})
	}
}

// Logout revokes the presented refresh token.
func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/logout"
		defer handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		hash := hashToken(strings.TrimSpace(req.RefreshToken))
		res, err := db.Collection("refresh_tokens").UpdateOne(ctx, bson.M{
			"tokenHash": hash,
			"revoked":   false,
		}, bson.M{"$set": bson.M{"revoked": true}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Logout failed")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
			return
		}

		respondOK(c, "Logged out", nil)
	}
}

// ForgotPassword stores a hashed reset token on the account. The response
// is identical whether or not the email exists. The plain token would go
// out by email; here it is logged for the development setup.
func ForgotPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/forgot-password"
		defer handlePanic(c, route)

		var req forgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := opContext(c)
		defer cancel()

		plain := randomToken()
		if plain == "" {
			respondWithError(c, http.StatusInternalServerError, route, "Could not process request")
			return
		}

		reset := models.PasswordReset{
			TokenHash: hashToken(plain),
			ExpiresAt: time.Now().Add(time.Hour),
		}

		res, err := db.Collection("users").UpdateOne(ctx,
			bson.M{"email": email, "isActive": true},
			bson.M{"$set": bson.M{"passwordReset": reset, "updatedAt": time.Now()}},
		)
		if err == nil && res.MatchedCount > 0 && config.AppEnv.IsDevelopment() {
			log.Println("[AUTH] [INFO] password reset token issued for:", email, "token:", plain)
		}

		respondOK(c, "If that email is registered, a reset link has been sent", nil)
	}
}

// ResetPassword sets a new password using a valid reset token and revokes
// every refresh token on the account.
func ResetPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/reset-password"
		defer handlePanic(c, route)

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"passwordReset.tokenHash": hashToken(strings.TrimSpace(req.Token)),
		}).Decode(&user)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid or expired reset token")
			return
		}

		if user.PasswordReset == nil || time.Now().After(user.PasswordReset.ExpiresAt) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid or expired reset token")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Could not reset password")
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set":   bson.M{"passwordHash": string(hash), "updatedAt": time.Now()},
			"$unset": bson.M{"passwordReset": ""},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Could not reset password")
			return
		}

		_, _ = db.Collection("refresh_tokens").UpdateMany(ctx,
			bson.M{"userId": user.ID, "revoked": false},
			bson.M{"$set": bson.M{"revoked": true}},
		)

		log.Println("[AUTH] [INFO] password reset completed for:", user.Email)
		respondOK(c, "Password has been reset", nil)
	}
}

// GetMe returns the authenticated user's profile.
func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		user, ok := currentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		respondOK(c, "", gin.H{"user": publicUser(user)})
	}
}

// UpdateProfile updates name, phone and avatar.
func UpdateProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /auth/profile"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		if name := strings.TrimSpace(req.Name); name != "" {
			update["name"] = name
		}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			update["phone"] = phone
		}
		if avatar := strings.TrimSpace(req.Avatar); avatar != "" {
			update["avatar"] = avatar
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": userID},
			bson.M{"$set": update},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&user)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		respondOK(c, "Profile updated", gin.H{"user": publicUser(user)})
	}
}

// ChangePassword verifies the current password, sets the new one and
// revokes every refresh token.
func ChangePassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /auth/password"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "Current password is incorrect")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Could not change password")
			return
		}

		_, err = db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"passwordHash": string(hash), "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Could not change password")
			return
		}

		_, _ = db.Collection("refresh_tokens").UpdateMany(ctx,
			bson.M{"userId": userID, "revoked": false},
			bson.M{"$set": bson.M{"revoked": true}},
		)

		respondOK(c, "Password changed", nil)
	}
}

type issuedTokens struct {
	AccessToken    string
	RefreshToken   string
	RefreshTokenID primitive.ObjectID
	ExpiresIn      int64
}

func issueTokens(ctx context.Context, db *mongo.Database, user models.User, secret string, accessTTL, refreshTTL time.Duration) (*issuedTokens, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"email":  user.Email,
		"role":   user.Role,
		"exp":    now.Add(accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	plainRefresh := randomToken()
	if plainRefresh == "" {
		return nil, errors.New("could not generate refresh token")
	}

	refresh := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(plainRefresh),
		ExpiresAt: now.Add(refreshTTL),
		Revoked:   false,
		CreatedAt: now,
	}

	res, err := db.Collection("refresh_tokens").InsertOne(ctx, refresh)
	if err != nil {
		return nil, err
	}

	refreshID, _ := res.InsertedID.(primitive.ObjectID)
	return &issuedTokens{
		AccessToken:    accessToken,
		RefreshToken:   plainRefresh,
		RefreshTokenID: refreshID,
		ExpiresIn:      int64(accessTTL.Seconds()),
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

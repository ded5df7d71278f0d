package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stylehub/internal/models"
)

type addressRequest struct {
	Title     string `json:"title" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Street    string `json:"street" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) toAddress(id string) models.Address {
	return models.Address{
		ID:        id,
		Title:     strings.TrimSpace(r.Title),
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Phone:     strings.TrimSpace(r.Phone),
		Street:    strings.TrimSpace(r.Street),
		City:      strings.TrimSpace(r.City),
		State:     strings.TrimSpace(r.State),
		ZipCode:   strings.TrimSpace(r.ZipCode),
		Country:   strings.TrimSpace(r.Country),
		IsDefault: r.IsDefault,
	}
}

// GetAddresses lists the user's saved addresses.
func GetAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		respondOK(c, "", gin.H{"addresses": user.Addresses})
	}
}

// AddAddress saves a new address. The first address, or one flagged
// default, becomes the default.
func AddAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req addressRequest
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

		address := req.toAddress(uuid.NewString())
		if len(user.Addresses) == 0 {
			address.IsDefault = true
		}

		addresses := user.Addresses
		if address.IsDefault {
			for i := range addresses {
				addresses[i].IsDefault = false
			}
		}
		addresses = append(addresses, address)

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save address")
			return
		}

		respondCreated(c, "Address added", gin.H{"addresses": addresses})
	}
}

// UpdateAddress replaces one saved address by its id.
func UpdateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /auth/addresses/:addressId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		addressID := strings.TrimSpace(c.Param("addressId"))

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		idx := -1
		for i, addr := range user.Addresses {
			if addr.ID == addressID {
				idx = i
				break
			}
		}
		if idx < 0 {
			respondWithError(c, http.StatusNotFound, route, "Address not found")
			return
		}

		addresses := user.Addresses
		updated := req.toAddress(addressID)
		if updated.IsDefault {
			for i := range addresses {
				addresses[i].IsDefault = false
			}
		} else if addresses[idx].IsDefault {
			// the default flag cannot be cleared by editing the default address
			updated.IsDefault = true
		}
		addresses[idx] = updated

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update address")
			return
		}

		respondOK(c, "Address updated", gin.H{"addresses": addresses})
	}
}

// DeleteAddress removes one saved address; if it was the default, the first
// remaining address becomes the default.
func DeleteAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /auth/addresses/:addressId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		addressID := strings.TrimSpace(c.Param("addressId"))

		ctx, cancel := opContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}

		addresses := make([]models.Address, 0, len(user.Addresses))
		removedDefault := false
		found := false
		for _, addr := range user.Addresses {
			if addr.ID == addressID {
				found = true
				removedDefault = addr.IsDefault
				continue
			}
			addresses = append(addresses, addr)
		}
		if !found {
			respondWithError(c, http.StatusNotFound, route, "Address not found")
			return
		}
		if removedDefault && len(addresses) > 0 {
			addresses[0].IsDefault = true
		}

		_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to delete address")
			return
		}

		respondOK(c, "Address deleted", gin.H{"addresses": addresses})
	}
}

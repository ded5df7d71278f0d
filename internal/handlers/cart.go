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

	"stylehub/internal/cart"
	"stylehub/internal/models"
)

type addToCartRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gte=1"`
	SelectedColor string `json:"selectedColor"`
	SelectedSize  string `json:"selectedSize"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// loadOrCreateCart fetches the user's cart, creating an empty one on first
// use.
func loadOrCreateCart(ctx context.Context, db *mongo.Database, engine cart.Engine, userID primitive.ObjectID) (models.Cart, error) {
	var c models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"user": userID}).Decode(&c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, err
	}

	c = engine.New(userID, time.Now())
	res, err := db.Collection("carts").InsertOne(ctx, c)
	if err != nil {
		return models.Cart{}, err
	}
	c.ID, _ = res.InsertedID.(primitive.ObjectID)
	return c, nil
}

func saveCart(ctx context.Context, db *mongo.Database, c models.Cart) error {
	_, err := db.Collection("carts").ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	return err
}

func cartPayload(c models.Cart) gin.H {
	return gin.H{
		"cart":   c,
		"totals": cart.ComputeTotals(c),
	}
}

// respondCartError maps engine errors onto HTTP statuses.
func respondCartError(c *gin.Context, route string, err error) {
	var stockErr cart.InsufficientStockError
	var optionErr cart.OptionError
	var validationErr cart.ValidationError
	var couponErr cart.CouponError

	switch {
	case errors.As(err, &stockErr),
		errors.As(err, &optionErr),
		errors.As(err, &validationErr),
		errors.As(err, &couponErr):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	default:
		log.Printf("[%s] cart operation failed: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "Cart operation failed")
	}
}

// GetCart returns the user's cart with derived totals.
func GetCart(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		respondOK(c, "", cartPayload(userCart))
	}
}

// AddToCart adds a product line, merging with an existing line carrying the
// same selection.
func AddToCart(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req addToCartRequest
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

		var raw bson.M
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID, "isActive": true}).Decode(&raw)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		product, err := normalizeProductDocument(raw)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to add to cart")
			return
		}

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		if err := engine.AddItem(&userCart, product, req.Quantity, req.SelectedColor, req.SelectedSize, time.Now()); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Item added to cart", cartPayload(userCart))
	}
}

// UpdateCartItem changes a line's quantity; zero removes the line.
func UpdateCartItem(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		itemID, err := objectIDParam(c, "itemId")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Cart item not found")
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			respondWithError(c, http.StatusBadRequest, route, "quantity is required")
			return
		}
		if *req.Quantity < 0 {
			respondWithError(c, http.StatusBadRequest, route, "Quantity must not be negative")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		var product *models.Product
		if *req.Quantity > 0 {
			idx := -1
			for i, item := range userCart.Items {
				if item.ID == itemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				respondWithError(c, http.StatusNotFound, route, "Cart item not found")
				return
			}

			var raw bson.M
			err = db.Collection("products").FindOne(ctx, bson.M{
				"_id":      userCart.Items[idx].Product,
				"isActive": true,
			}).Decode(&raw)
			if err != nil {
				respondWithError(c, http.StatusNotFound, route, "Product is no longer available")
				return
			}
			p, err := normalizeProductDocument(raw)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Failed to update cart")
				return
			}
			product = &p
		}

		if err := engine.UpdateItemQuantity(&userCart, itemID, *req.Quantity, product, time.Now()); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Cart updated", cartPayload(userCart))
	}
}

// RemoveCartItem deletes one line from the cart.
func RemoveCartItem(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		itemID, err := objectIDParam(c, "itemId")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Cart item not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		if err := engine.RemoveItem(&userCart, itemID, time.Now()); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Item removed from cart", cartPayload(userCart))
	}
}

// ClearCart empties the cart, dropping any applied coupon and notes.
func ClearCart(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		engine.Clear(&userCart, time.Now())

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Cart cleared", cartPayload(userCart))
	}
}

// ApplyCartCoupon applies a coupon code to the cart.
func ApplyCartCoupon(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/coupon"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req applyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		if err := engine.ApplyCoupon(&userCart, req.Code, time.Now()); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Coupon applied", cartPayload(userCart))
	}
}

// RemoveCartCoupon drops the applied coupon.
func RemoveCartCoupon(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/coupon"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		engine.RemoveCoupon(&userCart, time.Now())

		if err := saveCart(ctx, db, userCart); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
			return
		}

		respondOK(c, "Coupon removed", cartPayload(userCart))
	}
}

// ValidateCart reconciles the cart against the live catalog and reports
// every correction made.
func ValidateCart(db *mongo.Database, engine cart.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/validate"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		userCart, err := loadOrCreateCart(ctx, db, engine, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch cart")
			return
		}

		lookup, err := liveProductLookup(ctx, db, userCart)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to validate cart")
			return
		}

		corrections := engine.Validate(&userCart, lookup, time.Now())

		if len(corrections) > 0 {
			if err := saveCart(ctx, db, userCart); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "Failed to save cart")
				return
			}
		}

		data := cartPayload(userCart)
		data["corrections"] = corrections
		data["valid"] = len(corrections) == 0
		respondOK(c, "", data)
	}
}

// liveProductLookup loads every product referenced by the cart in one query.
func liveProductLookup(ctx context.Context, db *mongo.Database, userCart models.Cart) (func(primitive.ObjectID) (models.Product, bool), error) {
	ids := make([]primitive.ObjectID, 0, len(userCart.Items))
	for _, item := range userCart.Items {
		ids = append(ids, item.Product)
	}

	byID := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) > 0 {
		cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	return func(id primitive.ObjectID) (models.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}, nil
}

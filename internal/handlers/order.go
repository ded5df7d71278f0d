package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stylehub/internal/cart"
	"stylehub/internal/catalog"
	"stylehub/internal/database"
	"stylehub/internal/events"
	"stylehub/internal/models"
	"stylehub/internal/order"
)

type checkoutRequest struct {
	ShippingAddress models.OrderAddress `json:"shippingAddress" binding:"required"`
	BillingAddress  *struct {
		models.OrderAddress
		SameAsShipping bool `json:"sameAsShipping"`
	} `json:"billingAddress"`
	PaymentMethod  string `json:"paymentMethod" binding:"required"`
	ShippingMethod string `json:"shippingMethod"`
	CustomerNotes  string `json:"customerNotes"`
}

type payOrderRequest struct {
	PaymentID     string `json:"paymentId" binding:"required"`
	TransactionID string `json:"transactionId"`
	Gateway       string `json:"gateway"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Checkout turns the user's cart into an order inside a transaction: stock
// is decremented with a guard, sales counters move, the cart is cleared.
// Prices are re-read from the live catalog, never trusted from the cart.
func Checkout(db *mongo.Database, engine cart.Engine, pricing order.PricingConfig, publisher *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if strings.TrimSpace(req.ShippingAddress.Street) == "" || strings.TrimSpace(req.ShippingAddress.City) == "" {
			respondWithError(c, http.StatusBadRequest, route, "Shipping address is incomplete")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "Database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var userCart models.Cart
		if err := db.Collection("carts").FindOne(ctx, bson.M{"user": userID}).Decode(&userCart); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Cart is empty")
			return
		}
		if len(userCart.Items) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Cart is empty")
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to create order")
			return
		}
		defer session.EndSession(ctx)

		result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			return createOrderTx(sessCtx, db, engine, pricing, userID, userCart, req)
		})
		if err != nil {
			var stockErr cart.InsufficientStockError
			if errors.As(err, &stockErr) {
				respondWithError(c, http.StatusBadRequest, route, stockErr.Error())
				return
			}
			log.Printf("[%s] checkout failed: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "Failed to create order")
			return
		}

		newOrder := result.(models.Order)
		publisher.OrderCreated(newOrder)

		log.Printf("[%s] created order %s for user %s", route, newOrder.OrderNumber, userID.Hex())
		respondCreated(c, "Order placed successfully", gin.H{"order": newOrder})
	}
}

func createOrderTx(sessCtx mongo.SessionContext, db *mongo.Database, engine cart.Engine, pricing order.PricingConfig, userID primitive.ObjectID, userCart models.Cart, req checkoutRequest) (interface{}, error) {
	lookup, err := liveProductLookup(sessCtx, db, userCart)
	if err != nil {
		return nil, err
	}
	activeLookup := func(id primitive.ObjectID) (models.Product, bool) {
		p, ok := lookup(id)
		if !ok || !p.IsActive {
			return models.Product{}, false
		}
		return p, true
	}

	items, err := order.BuildItems(userCart.Items, activeLookup)
	if err != nil {
		return nil, err
	}

	// Guarded decrement: the filter re-checks stock inside the transaction
	// so two concurrent checkouts cannot both take the last unit.
	for _, item := range items {
		res, err := db.Collection("products").UpdateOne(
			sessCtx,
			bson.M{"_id": item.Product, "stock": bson.M{"$gte": item.Quantity}},
			bson.M{
				"$inc": bson.M{"stock": -item.Quantity, "sales": item.Quantity},
				"$set": bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, cart.InsufficientStockError{
				ProductName: item.ProductSnapshot.Name,
				Requested:   item.Quantity,
			}
		}
	}

	seq, err := database.NextSequence(sessCtx, db, "orders")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newOrder := order.New(userID, order.Number(now, seq), items, order.ComputePricing(items, userCart.Coupon, pricing), userCart.Coupon, now)
	newOrder.ShippingAddress = req.ShippingAddress
	newOrder.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	newOrder.Shipping.Method = strings.TrimSpace(req.ShippingMethod)
	if newOrder.Shipping.Method == "" {
		newOrder.Shipping.Method = "standard"
	}
	newOrder.Notes.Customer = strings.TrimSpace(req.CustomerNotes)

	if req.BillingAddress != nil && !req.BillingAddress.SameAsShipping {
		newOrder.BillingAddress = models.BillingAddress{OrderAddress: req.BillingAddress.OrderAddress}
	} else {
		newOrder.BillingAddress = models.BillingAddress{OrderAddress: req.ShippingAddress, SameAsShipping: true}
	}

	if _, err := db.Collection("orders").InsertOne(sessCtx, newOrder); err != nil {
		return nil, err
	}

	engine.Clear(&userCart, now)
	if _, err := db.Collection("carts").ReplaceOne(sessCtx, bson.M{"_id": userCart.ID}, userCart); err != nil {
		return nil, err
	}

	return newOrder, nil
}

// GetMyOrders lists the authenticated user's orders, newest first.
func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		page, limit, err := catalog.ParsePagination(c.Query("page"), c.Query("limit"), 10)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{"user": userID}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["orderStatus"] = status
		}

		ctx, cancel := opContext(c)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}

		respondOK(c, "", gin.H{
			"orders":     orders,
			"pagination": catalog.Paginate(page, limit, total),
		})
	}
}

// GetOrder returns one order. Customers only see their own; admins see any.
func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var o models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		if o.User != userID && !isAdmin(c) {
			respondWithError(c, http.StatusForbidden, route, "You do not have access to this order")
			return
		}

		respondOK(c, "", gin.H{"order": o})
	}
}

// CancelOrder cancels an order that has not shipped yet and restores the
// stock it reserved. Paid orders get a pending refund record.
func CancelOrder(db *mongo.Database, publisher *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/cancel"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		var req cancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var o models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		if o.User != userID && !isAdmin(c) {
			respondWithError(c, http.StatusForbidden, route, "You do not have access to this order")
			return
		}

		actor := userID
		if err := order.Cancel(&o, strings.TrimSpace(req.Reason), &actor, time.Now()); err != nil {
			var transitionErr order.TransitionError
			if errors.As(err, &transitionErr) {
				respondWithError(c, http.StatusBadRequest, route, "Order can no longer be cancelled")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "Failed to cancel order")
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to cancel order")
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			for _, item := range o.Items {
				_, err := db.Collection("products").UpdateByID(sessCtx, item.Product, bson.M{
					"$inc": bson.M{"stock": item.Quantity, "sales": -item.Quantity},
				})
				if err != nil {
					return nil, err
				}
			}

			res, err := db.Collection("orders").ReplaceOne(sessCtx, bson.M{
				"_id":         o.ID,
				"orderStatus": bson.M{"$in": bson.A{order.StatusPending, order.StatusConfirmed, order.StatusProcessing}},
			}, o)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, errors.New("order state changed concurrently")
			}
			return nil, nil
		})
		if err != nil {
			log.Printf("[%s] cancel failed: %v", route, err)
			respondWithError(c, http.StatusConflict, route, "Order can no longer be cancelled")
			return
		}

		publisher.OrderStatusChanged(o)
		respondOK(c, "Order cancelled", gin.H{"order": o})
	}
}

// PayOrder records a completed payment and confirms the order.
func PayOrder(db *mongo.Database, publisher *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/pay"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "Authentication required")
			return
		}

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		var req payOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var o models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		if o.User != userID && !isAdmin(c) {
			respondWithError(c, http.StatusForbidden, route, "You do not have access to this order")
			return
		}

		transactionID := strings.TrimSpace(req.TransactionID)
		if transactionID == "" {
			transactionID = uuid.NewString()
		}
		payment := models.OrderPayment{
			PaymentID:     strings.TrimSpace(req.PaymentID),
			TransactionID: transactionID,
			Gateway:       strings.TrimSpace(req.Gateway),
		}
		if err := order.ProcessPayment(&o, payment, time.Now()); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if _, err := db.Collection("orders").ReplaceOne(ctx, bson.M{"_id": o.ID}, o); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to record payment")
			return
		}

		publisher.OrderStatusChanged(o)
		respondOK(c, "Payment processed successfully", gin.H{"order": o})
	}
}

// GetAllOrders lists every order for the admin panel.
func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/orders"
		defer handlePanic(c, route)

		page, limit, err := catalog.ParsePagination(c.Query("page"), c.Query("limit"), 20)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["orderStatus"] = status
		}
		if paymentStatus := strings.TrimSpace(c.Query("paymentStatus")); paymentStatus != "" {
			filter["paymentStatus"] = paymentStatus
		}

		ctx, cancel := opContext(c)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to fetch orders")
			return
		}

		respondOK(c, "", gin.H{
			"orders":     orders,
			"pagination": catalog.Paginate(page, limit, total),
		})
	}
}

// UpdateOrderStatus moves an order along its lifecycle. Cancellation goes
// through the cancel route so stock is restored.
func UpdateOrderStatus(db *mongo.Database, publisher *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/orders/:id/status"
		defer handlePanic(c, route)

		id, err := objectIDParam(c, "id")
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		newStatus := strings.TrimSpace(req.Status)
		if newStatus == order.StatusCancelled {
			respondWithError(c, http.StatusBadRequest, route, "Use the cancel endpoint to cancel orders")
			return
		}

		ctx, cancel := opContext(c)
		defer cancel()

		var o models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Order not found")
			return
		}

		previous := o.OrderStatus
		var actor *primitive.ObjectID
		if adminID, ok := currentUserID(c); ok {
			actor = &adminID
		}

		if err := order.UpdateStatus(&o, newStatus, strings.TrimSpace(req.Note), actor, time.Now()); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		res, err := db.Collection("orders").ReplaceOne(ctx, bson.M{"_id": o.ID, "orderStatus": previous}, o)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to update order")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusConflict, route, "Order state changed concurrently")
			return
		}

		publisher.OrderStatusChanged(o)
		respondOK(c, "Order status updated", gin.H{"order": o})
	}
}

package order

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/cart"
	"stylehub/internal/models"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

var testCfg = PricingConfig{TaxRate: 0.08, ShippingFlat: 9.99, FreeShippingMin: 100}

func testProduct(name string, price float64, stock int) models.Product {
	return models.Product{
		ID:    primitive.NewObjectID(),
		Name:  name,
		Price: price,
		Stock: stock,
		SKU:   strings.ToUpper(name) + "-001",
		Images: []models.ProductImage{
			{URL: "https://img.example.com/" + name + ".jpg", IsPrimary: true},
		},
		IsActive: true,
	}
}

func productLookup(products ...models.Product) func(primitive.ObjectID) (models.Product, bool) {
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return func(id primitive.ObjectID) (models.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

func cartItem(p models.Product, qty int) models.CartItem {
	return models.CartItem{
		ID:       primitive.NewObjectID(),
		Product:  p.ID,
		Quantity: qty,
		Price:    p.Price,
		AddedAt:  now,
	}
}

func TestNumberFormat(t *testing.T) {
	n := Number(now, 42)
	assert.True(t, strings.HasPrefix(n, "SH"), "number should carry the SH prefix: %s", n)
	assert.True(t, strings.HasSuffix(n, "0042"), "sequence should be zero padded to four digits: %s", n)
	assert.Equal(t, Number(now, 10042), n, "sequence wraps at four digits")
}

func TestBuildItemsSnapshotsLivePrice(t *testing.T) {
	shirt := testProduct("shirt", 25, 10)
	item := cartItem(shirt, 2)
	item.Price = 19.99 // stale cart price

	items, err := BuildItems([]models.CartItem{item}, productLookup(shirt))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, 25.0, items[0].Price, "order line uses the live price")
	assert.Equal(t, 50.0, items[0].Subtotal)
	assert.Equal(t, "shirt", items[0].ProductSnapshot.Name)
	assert.Equal(t, shirt.SKU, items[0].ProductSnapshot.SKU)
	assert.Equal(t, "https://img.example.com/shirt.jpg", items[0].ProductSnapshot.Image)
}

func TestBuildItemsRejectsMissingProduct(t *testing.T) {
	shirt := testProduct("shirt", 25, 10)
	_, err := BuildItems([]models.CartItem{cartItem(shirt, 1)}, productLookup())
	require.Error(t, err)
}

func TestBuildItemsRejectsInsufficientStock(t *testing.T) {
	shirt := testProduct("shirt", 25, 1)
	_, err := BuildItems([]models.CartItem{cartItem(shirt, 3)}, productLookup(shirt))

	var stockErr cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
}

func TestComputePricing(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 2, Price: 25, Subtotal: 50},
		{Quantity: 1, Price: 10, Subtotal: 10},
	}

	pricing := ComputePricing(items, nil, testCfg)
	assert.Equal(t, 60.0, pricing.Subtotal)
	assert.Equal(t, 4.8, pricing.Tax)
	assert.Equal(t, 9.99, pricing.Shipping)
	assert.Equal(t, 0.0, pricing.Discount)
	assert.Equal(t, 74.79, pricing.Total)
}

func TestComputePricingFreeShippingThreshold(t *testing.T) {
	items := []models.OrderItem{{Quantity: 4, Price: 25, Subtotal: 100}}
	pricing := ComputePricing(items, nil, testCfg)
	assert.Equal(t, 0.0, pricing.Shipping, "orders at the threshold ship free")
}

func TestComputePricingPercentageCoupon(t *testing.T) {
	items := []models.OrderItem{{Quantity: 4, Price: 25, Subtotal: 100}}
	coupon := &models.CartCoupon{Code: "WELCOME10", Discount: 10, DiscountType: "percentage"}

	pricing := ComputePricing(items, coupon, testCfg)
	assert.Equal(t, 10.0, pricing.Discount)
	assert.Equal(t, 98.0, pricing.Total) // 100 + 8 tax + 0 shipping - 10
}

func TestComputePricingFixedCouponCapped(t *testing.T) {
	items := []models.OrderItem{{Quantity: 1, Price: 3, Subtotal: 3}}
	coupon := &models.CartCoupon{Code: "FIRST5", Discount: 5, DiscountType: "fixed"}

	pricing := ComputePricing(items, coupon, testCfg)
	assert.Equal(t, 3.0, pricing.Discount, "fixed discount never exceeds the subtotal")
	assert.GreaterOrEqual(t, pricing.Total, 0.0)
}

func TestNewSeedsTimeline(t *testing.T) {
	user := primitive.NewObjectID()
	o := New(user, Number(now, 1), nil, models.OrderPricing{}, nil, now)

	assert.Equal(t, StatusPending, o.OrderStatus)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	require.Len(t, o.Timeline, 1)
	assert.Equal(t, StatusPending, o.Timeline[0].Status)
	assert.Equal(t, now, o.CreatedAt)
}

func TestUpdateStatusForwardChain(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)

	steps := []string{StatusConfirmed, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered}
	for i, next := range steps {
		at := now.Add(time.Duration(i+1) * time.Hour)
		require.NoError(t, UpdateStatus(&o, next, "", nil, at))
		assert.Equal(t, next, o.OrderStatus)
		assert.Len(t, o.Timeline, i+2, "exactly one timeline entry per transition")
		assert.Equal(t, next, o.Timeline[len(o.Timeline)-1].Status)
	}

	require.NotNil(t, o.Shipping.ShippedAt)
	require.NotNil(t, o.Shipping.DeliveredAt)
	assert.True(t, o.Shipping.DeliveredAt.After(*o.Shipping.ShippedAt))
}

func TestUpdateStatusSkipsAhead(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	require.NoError(t, UpdateStatus(&o, StatusShipped, "", nil, now))
	assert.Equal(t, StatusShipped, o.OrderStatus)
	assert.NotNil(t, o.Shipping.ShippedAt)
}

func TestUpdateStatusRejectsBackwards(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	require.NoError(t, UpdateStatus(&o, StatusShipped, "", nil, now))

	err := UpdateStatus(&o, StatusProcessing, "", nil, now)
	var transitionErr TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StatusShipped, transitionErr.From)
	assert.Len(t, o.Timeline, 2, "failed transitions leave the timeline alone")
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	err := UpdateStatus(&o, "misplaced", "", nil, now)
	var transitionErr TransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestCancelPendingOrder(t *testing.T) {
	actor := primitive.NewObjectID()
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{Total: 50}, nil, now)

	require.NoError(t, Cancel(&o, "changed my mind", &actor, now))
	assert.Equal(t, StatusCancelled, o.OrderStatus)
	require.NotNil(t, o.Cancellation)
	assert.Equal(t, "changed my mind", o.Cancellation.Reason)
	assert.Equal(t, &actor, o.Cancellation.CancelledBy)
	require.NotNil(t, o.Cancellation.CancelledAt)
	assert.Zero(t, o.Cancellation.RefundAmount, "unpaid orders have nothing to refund")
}

func TestCancelPaidOrderRecordsRefund(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{Total: 129.99}, nil, now)
	require.NoError(t, ProcessPayment(&o, models.OrderPayment{PaymentID: "pay_1"}, now))

	require.NoError(t, Cancel(&o, "late delivery", nil, now.Add(time.Hour)))
	require.NotNil(t, o.Cancellation)
	assert.Equal(t, 129.99, o.Cancellation.RefundAmount)
	assert.Equal(t, RefundPending, o.Cancellation.RefundStatus)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	require.NoError(t, UpdateStatus(&o, StatusShipped, "", nil, now))

	err := Cancel(&o, "too late", nil, now)
	var transitionErr TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StatusShipped, o.OrderStatus)
	assert.Nil(t, o.Cancellation)
}

func TestReturnOnlyAfterDelivery(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	err := UpdateStatus(&o, StatusReturned, "", nil, now)
	require.Error(t, err)

	require.NoError(t, UpdateStatus(&o, StatusDelivered, "", nil, now))
	require.NoError(t, UpdateStatus(&o, StatusReturned, "damaged on arrival", nil, now))
	assert.Equal(t, StatusReturned, o.OrderStatus)
}

func TestProcessPayment(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{Total: 74.79}, nil, now)

	payment := models.OrderPayment{PaymentID: "pay_123", TransactionID: "txn_456", Gateway: "stripe"}
	require.NoError(t, ProcessPayment(&o, payment, now))

	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.OrderStatus)
	assert.Equal(t, "pay_123", o.Payment.PaymentID)
	assert.Equal(t, "txn_456", o.Payment.TransactionID)
	assert.Equal(t, "stripe", o.Payment.Gateway)
	require.NotNil(t, o.Payment.PaymentDate)
	assert.Len(t, o.Timeline, 2)
}

func TestProcessPaymentTwiceRejected(t *testing.T) {
	o := New(primitive.NewObjectID(), Number(now, 1), nil, models.OrderPricing{}, nil, now)
	require.NoError(t, ProcessPayment(&o, models.OrderPayment{PaymentID: "pay_1"}, now))

	err := ProcessPayment(&o, models.OrderPayment{PaymentID: "pay_2"}, now)
	require.Error(t, err)
	var transitionErr TransitionError
	assert.False(t, errors.As(err, &transitionErr), "double payment is not a transition error")
	assert.Equal(t, "pay_1", o.Payment.PaymentID)
}

func TestSnapshotSurvivesCatalogEdits(t *testing.T) {
	shirt := testProduct("shirt", 25, 10)
	items, err := BuildItems([]models.CartItem{cartItem(shirt, 1)}, productLookup(shirt))
	require.NoError(t, err)

	shirt.Name = "renamed"
	shirt.Price = 99

	assert.Equal(t, "shirt", items[0].ProductSnapshot.Name)
	assert.Equal(t, 25.0, items[0].ProductSnapshot.Price)
}

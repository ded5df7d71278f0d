package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/coupon"
	"stylehub/internal/models"
)

func TestDerivedPricingInvariants(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	require.NoError(t, e.AddItem(&c, testProduct(40, 10), 2, "", "", now))
	require.NoError(t, e.AddItem(&c, testProduct(10, 10), 2, "", "", now))

	assert.Equal(t, 100.0, Subtotal(c))
	assert.Equal(t, 4, TotalItems(c))
	assert.Equal(t, Subtotal(c)-CouponDiscount(c), Total(c))
}

func TestApplyCouponPercentage(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	require.NoError(t, e.AddItem(&c, testProduct(100, 10), 1, "", "", now))

	require.NoError(t, e.ApplyCoupon(&c, "welcome10", now))
	require.NotNil(t, c.Coupon)
	assert.Equal(t, "WELCOME10", c.Coupon.Code, "codes are stored uppercased")
	assert.Equal(t, 10.0, CouponDiscount(c))
	assert.Equal(t, 90.0, Total(c))
}

func TestApplyCouponBelowMinimum(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	require.NoError(t, e.AddItem(&c, testProduct(40, 10), 1, "", "", now))

	var cpErr CouponError
	err := e.ApplyCoupon(&c, "SAVE20", now)
	require.ErrorAs(t, err, &cpErr)
	assert.Nil(t, c.Coupon)
}

func TestApplyCouponEmptyCart(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)

	var cpErr CouponError
	require.ErrorAs(t, e.ApplyCoupon(&c, "WELCOME10", now), &cpErr)
}

func TestApplyCouponOverwritesExisting(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	require.NoError(t, e.AddItem(&c, testProduct(60, 10), 1, "", "", now))

	require.NoError(t, e.ApplyCoupon(&c, "WELCOME10", now))
	require.NoError(t, e.ApplyCoupon(&c, "SAVE20", now))
	assert.Equal(t, "SAVE20", c.Coupon.Code)
	assert.Equal(t, 12.0, CouponDiscount(c))
}

func TestFixedCouponCappedAtSubtotal(t *testing.T) {
	c := models.Cart{
		Items: []models.CartItem{
			{ID: primitive.NewObjectID(), Product: primitive.NewObjectID(), Quantity: 1, Price: 3},
		},
		Coupon: &models.CartCoupon{Code: "FIRST5", Discount: 5, DiscountType: coupon.TypeFixed},
	}
	assert.Equal(t, 3.0, CouponDiscount(c))
	assert.Equal(t, 0.0, Total(c), "total never goes negative")
}

func TestRemoveCoupon(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	require.NoError(t, e.AddItem(&c, testProduct(100, 10), 1, "", "", now))
	require.NoError(t, e.ApplyCoupon(&c, "WELCOME10", now))

	e.RemoveCoupon(&c, now)
	assert.Nil(t, c.Coupon)
	assert.Equal(t, 100.0, Total(c))

	// removing with no coupon applied is a no-op, not an error
	e.RemoveCoupon(&c, now)
	assert.Nil(t, c.Coupon)
}

package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/coupon"
	"stylehub/internal/models"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testEngine() Engine {
	return Engine{TTL: 30 * 24 * time.Hour, Coupons: coupon.NewStaticStore()}
}

func testProduct(price float64, stock int) models.Product {
	return models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Classic Tee",
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
}

func TestAddItemAppendsLine(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)

	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 25.0, c.Items[0].Price)
	assert.Equal(t, now.Add(e.TTL), c.ExpiresAt)
}

func TestAddItemMergesSameSelection(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	p.Colors = []string{"black", "white"}

	require.NoError(t, e.AddItem(&c, p, 2, "black", "", now))

	// price changed between the two adds; merge refreshes the snapshot
	p.Price = 30
	require.NoError(t, e.AddItem(&c, p, 3, "black", "", now))

	require.Len(t, c.Items, 1, "identical (product, color, size) must merge into one line")
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 30.0, c.Items[0].Price)
}

func TestAddItemDifferentOptionsKeepSeparateLines(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	p.Colors = []string{"black", "white"}

	require.NoError(t, e.AddItem(&c, p, 1, "black", "", now))
	require.NoError(t, e.AddItem(&c, p, 1, "white", "", now))
	assert.Len(t, c.Items, 2)
}

func TestAddItemRejectsOverStock(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 3)

	err := e.AddItem(&c, p, 5, "", "", now)
	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Empty(t, c.Items, "failed add must leave the cart unchanged")

	// merging over stock is rejected too
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))
	err = e.AddItem(&c, p, 2, "", "", now)
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItemOptionRules(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	p.Colors = []string{"black"}
	p.Sizes = []string{"M", "L"}

	var optErr OptionError

	err := e.AddItem(&c, p, 1, "", "M", now)
	require.ErrorAs(t, err, &optErr)
	assert.True(t, optErr.Missing)
	assert.Equal(t, "color", optErr.Field)

	err = e.AddItem(&c, p, 1, "black", "XXL", now)
	require.ErrorAs(t, err, &optErr)
	assert.False(t, optErr.Missing)
	assert.Equal(t, "size", optErr.Field)

	require.NoError(t, e.AddItem(&c, p, 1, "black", "M", now))
}

func TestUpdateItemQuantity(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))
	itemID := c.Items[0].ID

	p.Price = 27.50
	require.NoError(t, e.UpdateItemQuantity(&c, itemID, 4, &p, now))
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, 27.50, c.Items[0].Price, "quantity update refreshes the stored price")

	var stockErr InsufficientStockError
	err := e.UpdateItemQuantity(&c, itemID, 11, &p, now)
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestUpdateItemQuantityZeroRemoves(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))

	require.NoError(t, e.UpdateItemQuantity(&c, c.Items[0].ID, 0, nil, now))
	assert.Empty(t, c.Items)
	assert.Equal(t, 0.0, Total(c), "empty cart is still a valid cart")
}

func TestRemoveItem(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))

	require.NoError(t, e.RemoveItem(&c, c.Items[0].ID, now))
	assert.Empty(t, c.Items)

	err := e.RemoveItem(&c, primitive.NewObjectID(), now)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClearDropsCouponAndNotes(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(100, 10)
	require.NoError(t, e.AddItem(&c, p, 1, "", "", now))
	require.NoError(t, e.ApplyCoupon(&c, "WELCOME10", now))
	c.Notes = "gift wrap please"

	e.Clear(&c, now)
	assert.Empty(t, c.Items)
	assert.Nil(t, c.Coupon)
	assert.Empty(t, c.Notes)
}

package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/models"
)

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

func TestValidateCleanCart(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))

	corrections := e.Validate(&c, productLookup(p), now)
	assert.Empty(t, corrections)
	assert.Len(t, c.Items, 1)
}

func TestValidateClampsToLiveStock(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 5, "", "", now))

	p.Stock = 2
	corrections := e.Validate(&c, productLookup(p), now)

	require.Len(t, corrections, 1)
	assert.Equal(t, ActionUpdateQuantity, corrections[0].Action)
	require.NotNil(t, corrections[0].MaxQuantity)
	assert.Equal(t, 2, *corrections[0].MaxQuantity)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestValidateDropsVanishedAndZeroStock(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	gone := testProduct(25, 10)
	inactive := testProduct(30, 10)
	soldOut := testProduct(15, 10)
	require.NoError(t, e.AddItem(&c, gone, 1, "", "", now))
	require.NoError(t, e.AddItem(&c, inactive, 1, "", "", now))
	require.NoError(t, e.AddItem(&c, soldOut, 1, "", "", now))

	inactive.IsActive = false
	soldOut.Stock = 0
	corrections := e.Validate(&c, productLookup(inactive, soldOut), now)

	require.Len(t, corrections, 3)
	for _, corr := range corrections {
		assert.Equal(t, ActionRemove, corr.Action)
	}
	assert.Empty(t, c.Items)
}

func TestValidateRefreshesStalePrice(t *testing.T) {
	e := testEngine()
	c := e.New(primitive.NewObjectID(), now)
	p := testProduct(25, 10)
	require.NoError(t, e.AddItem(&c, p, 2, "", "", now))

	p.Price = 19.99
	corrections := e.Validate(&c, productLookup(p), now)

	require.Len(t, corrections, 1)
	assert.Equal(t, ActionPriceUpdate, corrections[0].Action)
	require.NotNil(t, corrections[0].OldPrice)
	assert.Equal(t, 25.0, *corrections[0].OldPrice)
	require.NotNil(t, corrections[0].NewPrice)
	assert.Equal(t, 19.99, *corrections[0].NewPrice)
	assert.Equal(t, 19.99, c.Items[0].Price)
}

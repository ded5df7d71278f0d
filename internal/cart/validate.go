package cart

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/models"
)

// Correction actions reported by Validate.
const (
	ActionRemove         = "remove"
	ActionUpdateQuantity = "update_quantity"
	ActionPriceUpdate    = "price_update"
)

// Correction describes one adjustment Validate made to a cart line.
type Correction struct {
	ItemID      primitive.ObjectID `json:"itemId"`
	ProductName string             `json:"productName,omitempty"`
	Reason      string             `json:"error"`
	Action      string             `json:"action"`
	MaxQuantity *int               `json:"maxQuantity,omitempty"`
	OldPrice    *float64           `json:"oldPrice,omitempty"`
	NewPrice    *float64           `json:"newPrice,omitempty"`
}

// Validate re-checks every line against the current product state: lines
// whose product vanished or was deactivated are dropped, quantities above
// live stock are clamped (dropped at zero stock), and stale prices are
// refreshed. The cart is mutated in place; the caller persists it when any
// corrections are returned.
func (e Engine) Validate(c *models.Cart, lookup func(primitive.ObjectID) (models.Product, bool), now time.Time) []Correction {
	corrections := []Correction{}
	kept := make([]models.CartItem, 0, len(c.Items))

	for _, item := range c.Items {
		product, ok := lookup(item.Product)
		if !ok || !product.IsActive {
			corrections = append(corrections, Correction{
				ItemID: item.ID,
				Reason: "product is no longer available",
				Action: ActionRemove,
			})
			continue
		}

		if item.Quantity > product.Stock {
			if product.Stock == 0 {
				corrections = append(corrections, Correction{
					ItemID:      item.ID,
					ProductName: product.Name,
					Reason:      "product is out of stock",
					Action:      ActionRemove,
				})
				continue
			}
			max := product.Stock
			corrections = append(corrections, Correction{
				ItemID:      item.ID,
				ProductName: product.Name,
				Reason:      "insufficient stock, quantity reduced",
				Action:      ActionUpdateQuantity,
				MaxQuantity: &max,
			})
			item.Quantity = product.Stock
		}

		if item.Price != product.Price {
			oldPrice := item.Price
			newPrice := product.Price
			corrections = append(corrections, Correction{
				ItemID:      item.ID,
				ProductName: product.Name,
				Reason:      "product price has changed",
				Action:      ActionPriceUpdate,
				OldPrice:    &oldPrice,
				NewPrice:    &newPrice,
			})
			item.Price = product.Price
		}

		kept = append(kept, item)
	}

	if len(corrections) > 0 {
		c.Items = kept
		e.Touch(c, now)
	}
	return corrections
}

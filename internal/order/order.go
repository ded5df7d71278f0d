package order

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stylehub/internal/cart"
	couponpkg "stylehub/internal/coupon"
	"stylehub/internal/models"
)

// PricingConfig holds the storefront-wide pricing knobs applied at
// checkout.
type PricingConfig struct {
	TaxRate         float64
	ShippingFlat    float64
	FreeShippingMin float64
}

// Number formats an order number from the creation time and a store-wide
// sequence counter.
func Number(now time.Time, seq int64) string {
	return fmt.Sprintf("SH%d%04d", now.UnixMilli(), seq%10000)
}

// BuildItems turns cart lines into order lines, snapshotting the product
// details that must survive later catalog edits. Prices come from the live
// products, not the cart.
func BuildItems(items []models.CartItem, lookup func(primitive.ObjectID) (models.Product, bool)) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := lookup(item.Product)
		if !ok {
			return nil, fmt.Errorf("product %s is no longer available", item.Product.Hex())
		}
		if product.Stock < item.Quantity {
			return nil, cart.InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   item.Quantity,
			}
		}
		out = append(out, models.OrderItem{
			Product: product.ID,
			ProductSnapshot: models.ProductSnapshot{
				Name:  product.Name,
				Price: product.Price,
				Image: product.PrimaryImage(),
				SKU:   product.SKU,
			},
			Quantity:      item.Quantity,
			Price:         product.Price,
			SelectedColor: item.SelectedColor,
			SelectedSize:  item.SelectedSize,
			Subtotal:      round2(product.Price * float64(item.Quantity)),
		})
	}
	return out, nil
}

// ComputePricing derives the order totals from the built items and an
// optional applied coupon.
func ComputePricing(items []models.OrderItem, coupon *models.CartCoupon, cfg PricingConfig) models.OrderPricing {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Subtotal
	}
	subtotal = round2(subtotal)

	var discount float64
	if coupon != nil {
		switch coupon.DiscountType {
		case couponpkg.TypePercentage:
			discount = subtotal * coupon.Discount / 100
		case couponpkg.TypeFixed:
			discount = coupon.Discount
		}
		if discount > subtotal {
			discount = subtotal
		}
	}
	discount = round2(discount)

	tax := round2(subtotal * cfg.TaxRate)
	shipping := cfg.ShippingFlat
	if subtotal >= cfg.FreeShippingMin {
		shipping = 0
	}

	total := subtotal + tax + shipping - discount
	if total < 0 {
		total = 0
	}

	return models.OrderPricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    round2(total),
	}
}

// New assembles a pending order from its already-built parts and seeds the
// timeline with the creation entry.
func New(user primitive.ObjectID, number string, items []models.OrderItem, pricing models.OrderPricing, coupon *models.CartCoupon, now time.Time) models.Order {
	return models.Order{
		ID:            primitive.NewObjectID(),
		OrderNumber:   number,
		User:          user,
		Items:         items,
		Pricing:       pricing,
		Coupon:        coupon,
		PaymentStatus: PaymentPending,
		OrderStatus:   StatusPending,
		Timeline: []models.TimelineEntry{{
			Status: StatusPending,
			Date:   now,
			Note:   "Order placed",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

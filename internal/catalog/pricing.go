package catalog

import "fmt"

func isDiscounted(price, originalPrice float64) bool {
	return originalPrice > 0 && originalPrice > price
}

// DiscountPercent returns the rounded percentage off the original price,
// or 0 when the product is not discounted.
func DiscountPercent(price, originalPrice float64) int {
	if !isDiscounted(price, originalPrice) {
		return 0
	}
	return int((1-price/originalPrice)*100 + 0.5)
}

func InStock(stock int) bool {
	return stock > 0
}

// ValidatePriceFields rejects an originalPrice below the selling price.
func ValidatePriceFields(price, originalPrice float64) error {
	if price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if originalPrice < 0 {
		return fmt.Errorf("originalPrice must not be negative")
	}
	if originalPrice > 0 && originalPrice < price {
		return fmt.Errorf("originalPrice must not be less than price")
	}
	return nil
}

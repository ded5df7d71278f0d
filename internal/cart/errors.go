package cart

import "fmt"

// Business-rule failures are typed so handlers can map them to 4xx
// responses with errors.As, the same way checkout errors are handled.

type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

// OptionError reports a missing or unlisted color/size selection.
type OptionError struct {
	Field   string // "color" or "size"
	Value   string
	Missing bool
}

func (e OptionError) Error() string {
	if e.Missing {
		return fmt.Sprintf("a %s must be selected for this product", e.Field)
	}
	return fmt.Sprintf("%s %q is not available for this product", e.Field, e.Value)
}

// ValidationError covers out-of-range input caught by the engine itself.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

type CouponError struct {
	Reason string
}

func (e CouponError) Error() string {
	return e.Reason
}

type notFoundError struct {
	what string
}

func (e notFoundError) Error() string {
	return e.what + " not found"
}

// ErrItemNotFound is returned when an item id is not present in the cart.
var ErrItemNotFound = notFoundError{what: "cart item"}

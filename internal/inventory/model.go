package inventory

import "time"

// Product is the inventory view of a catalog product: the quantity column
// plus the unit price that gets frozen into order items at checkout.
type Product struct {
	ID        uint
	Name      string
	Price     float64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

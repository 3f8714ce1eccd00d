// Package cart implements the per-owner shopping cart: an in-memory line
// list, write-through persistence keyed on the current identity, and
// resynchronization when the identity or the underlying store changes.
package cart

import "github.com/shopspring/decimal"

// Line is one product's presence in a cart. Name, UnitPrice and ImageRef are
// snapshots taken when the item was first added; later adds of the same item
// only bump the quantity and never refresh the snapshot, so a catalog price
// change cannot silently alter a line already in the cart.
type Line struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
	Quantity  int
}

// Item is the catalog data supplied when adding a product to the cart.
type Item struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
}

// OwnerKey returns the substrate key for a user's cart. An empty userID is
// the guest session.
func OwnerKey(userID string) string {
	if userID == "" {
		return "cart_guest"
	}
	return "cart_" + userID
}

// TotalQuantity sums the quantities across lines.
func TotalQuantity(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums quantity × unit price across lines.
func TotalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

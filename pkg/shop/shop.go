// Package shop defines the storefront catalog and collection item types.
package shop

import "time"

// Product is a catalog entry. Price is in minor currency units.
type Product struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Currency string `json:"currency"`
	ImageURL string `json:"image_url,omitempty"`
	ID       int64  `json:"id"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
}

// CartItem is a product line in a cart.
type CartItem struct {
	Product   *Product `json:"product,omitempty"`
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
}

// ItemID returns the product id the line is keyed by.
func (c CartItem) ItemID() int64 { return c.ProductID }

// Count returns the line quantity.
func (c CartItem) Count() int { return c.Quantity }

// WithQuantity returns a copy of the line holding n units.
func (c CartItem) WithQuantity(n int) CartItem {
	c.Quantity = n
	return c
}

// Subtotal returns price times quantity, or 0 when the product is unknown.
func (c CartItem) Subtotal() int64 {
	if c.Product == nil {
		return 0
	}
	return c.Product.Price * int64(c.Quantity)
}

// WishlistItem is a saved product.
type WishlistItem struct {
	AddedAt   time.Time `json:"added_at"`
	Product   *Product  `json:"product,omitempty"`
	ProductID int64     `json:"product_id"`
}

// ItemID returns the product id the entry is keyed by.
func (w WishlistItem) ItemID() int64 { return w.ProductID }

// CartTotal sums line subtotals. Lines with unknown products are skipped.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

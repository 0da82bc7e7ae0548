package entitystore

import (
	"context"
	"time"
)

// Item is an element of a collection, unique by product id.
type Item interface {
	ItemID() int64
}

// Quantified is implemented by items that carry a quantity, such as cart lines.
type Quantified[T any] interface {
	Count() int
	WithQuantity(n int) T
}

// Collection is the cached state of one owner's cart or wishlist.
// Its JSON form is the durable envelope.
type Collection[T Item] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Items     []T       `json:"items"`
	OwnerID   int64     `json:"owner_id"`
}

// TotalCount sums item quantities. Items without a quantity count as one.
func (c Collection[T]) TotalCount() int {
	total := 0
	for _, it := range c.Items {
		if q, ok := any(it).(Quantified[T]); ok {
			total += q.Count()
			continue
		}
		total++
	}
	return total
}

// Find returns the item keyed by productID and its index, or -1.
func (c Collection[T]) Find(productID int64) (T, int) {
	for i, it := range c.Items {
		if it.ItemID() == productID {
			return it, i
		}
	}
	var zero T
	return zero, -1
}

// Clone returns a copy that shares no backing array with c.
func (c Collection[T]) Clone() Collection[T] {
	if c.Items != nil {
		c.Items = append(make([]T, 0, len(c.Items)), c.Items...)
	}
	return c
}

// Repository is the server side of a collection.
type Repository[T Item] interface {
	// List returns the full authoritative collection.
	List(ctx context.Context) ([]T, error)

	// Add puts qty units of productID into the collection.
	Add(ctx context.Context, productID int64, qty int) error

	// UpdateQuantity sets the quantity of an existing item.
	UpdateQuantity(ctx context.Context, productID int64, qty int) error

	// Remove deletes productID from the collection.
	Remove(ctx context.Context, productID int64) error

	// Clear empties the collection.
	Clear(ctx context.Context) error
}

// OwnerResolver reports the current owner id used to namespace collections.
type OwnerResolver interface {
	OwnerID() (int64, bool)
}

// OwnerFunc adapts a function to OwnerResolver.
type OwnerFunc func() (int64, bool)

// OwnerID calls f.
func (f OwnerFunc) OwnerID() (int64, bool) { return f() }

// dedupe keeps the first occurrence of every product id.
func dedupe[T Item](items []T) ([]T, int) {
	out := make([]T, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ItemID()]; ok {
			continue
		}
		seen[it.ItemID()] = struct{}{}
		out = append(out, it)
	}
	return out, len(items) - len(out)
}

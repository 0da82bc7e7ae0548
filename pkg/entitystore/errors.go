package entitystore

import "errors"

// Sentinel errors for the entity store.
var (
	// ErrUnauthenticated is returned by mutations when no owner is known.
	ErrUnauthenticated = errors.New("entitystore: no authenticated owner")

	// ErrLoadFailed wraps repository failures during Load.
	ErrLoadFailed = errors.New("entitystore: failed to load collection")

	// ErrMutationFailed wraps repository failures during Add, Remove, Clear and UpdateQuantity.
	ErrMutationFailed = errors.New("entitystore: failed to apply mutation")

	// ErrItemNotFound is returned when an item is not in the cached collection.
	ErrItemNotFound = errors.New("entitystore: item not found")

	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("entitystore: quantity must be at least 1")

	// ErrQuantityUnsupported is returned by UpdateQuantity for item types without a quantity.
	ErrQuantityUnsupported = errors.New("entitystore: item type has no quantity")

	// ErrPersistFailed is returned when the durable copy cannot be written or removed.
	ErrPersistFailed = errors.New("entitystore: failed to persist collection")
)

package kvstore

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kvstore: entry not found")

	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("kvstore: empty key")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("kvstore: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("kvstore: failed to unmarshal value")

	// ErrCorruptFile is returned when a file store cannot parse its backing file.
	ErrCorruptFile = errors.New("kvstore: corrupt storage file")

	// ErrHealthcheckFailed is returned by Healthcheck when the probe round-trip fails.
	ErrHealthcheckFailed = errors.New("kvstore: healthcheck failed")
)

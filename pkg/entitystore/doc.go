// Package entitystore provides Store, a generic cache of a per-owner
// collection (a cart or a wishlist) backed by a server Repository and
// mirrored into durable key-value storage.
//
// A Store is populated in two steps: InitializeFromCache restores the last
// persisted envelope for the current owner without touching the network, and
// Load replaces it with the authoritative server copy:
//
//	cart := entitystore.New("cart", api.Cart(), sess, storage,
//	    entitystore.WithLogger(log),
//	)
//	_ = cart.InitializeFromCache(ctx)
//	if cart.ShouldRefreshFromDatabase() {
//	    if err := cart.Load(ctx); err != nil {
//	        // the stale copy, if any, is still served
//	    }
//	}
//
// Add, Remove and Clear call the server first and reload afterwards.
// UpdateQuantity changes the cached item immediately and restores the
// previous collection, in memory and on disk, if the server rejects it.
//
// Envelopes are stored under "<name>_<ownerID>" as JSON with owner_id, items
// and updated_at fields. An envelope whose owner_id does not match its key is
// ignored.
package entitystore

// Package cache provides read-through caching for data that every session
// shares, such as the product catalog.
//
// [Memory] keeps entries in process with expiry and optional LRU eviction.
// [Redis] shares them between processes. [Loader] sits in front of either
// and collapses concurrent misses into one load:
//
//	catalog := cache.NewLoader[[]shop.Product](cache.NewMemory[[]shop.Product](), time.Minute)
//	products, err := catalog.Load(ctx, "products", api.Products)
package cache

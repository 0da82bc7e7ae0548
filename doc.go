// Package storefront is the client core beneath a storefront UI: an
// authentication session that survives restarts, and cart and wishlist
// caches kept consistent with the server.
//
// A [Client] wires four parts together:
//
//   - session.Manager owns the token and the current user. It restores them
//     from durable storage, persists them on login and clears them when the
//     token's exp claim passes or the server rejects it.
//   - entitystore.Store caches the cart and the wishlist per user, with
//     optimistic quantity updates that roll back on failure.
//   - coordinator.Coordinator initializes both stores once per authenticated
//     session and resets them on logout.
//   - api.Client talks to the storefront HTTP API. The product catalog it
//     returns is shared by every session and served through pkg/cache.
//
// Any kvstore.Storage works as durable storage: memory for tests, a JSON
// file for command-line tools, redis or postgres when several processes
// share a session.
//
//	storage, err := kvstore.OpenFile(path)
//	if err != nil {
//	    return err
//	}
//	client, err := storefront.New("https://shop.example.com/api", storage,
//	    storefront.WithLogger(log),
//	    storefront.WithRefreshSchedule("@every 1m"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Login(ctx, "ann", "secret"); err != nil {
//	    return err
//	}
//	client.WaitReady()
//	fmt.Println(client.Cart().TotalCount())
package storefront

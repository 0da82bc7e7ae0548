// Package api is the HTTP client for the storefront API.
//
// It implements session.Authenticator through [Client.Auth] and the
// entitystore repositories through [Client.Cart] and [Client.Wishlist]:
//
//	client, err := api.New("https://shop.example.com/api",
//	    api.WithTimeout(10*time.Second),
//	    api.WithAuthorization(sess.AuthHeader, sess.InvalidateIfCurrent),
//	)
//
// Every request carries an X-Request-ID header. The id is taken from the
// context when present ([WithRequestID]) and generated otherwise;
// [RequestIDExtractor] adds it to log records.
//
// Any 2xx response is a success. Other statuses are returned as [*Error],
// whose StatusCode method lets session.IsAuthorizationError recognize 401
// and 403 without importing this package. A 401 or 403 on a collection
// request also calls the onRejected hook with the Authorization header the
// request was sent with, so a late rejection of an old token cannot end a
// newer session.
package api

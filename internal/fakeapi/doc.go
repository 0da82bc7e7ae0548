// Package fakeapi is an in-memory implementation of the storefront HTTP API
// for development and tests.
//
// Tokens are HS256 JWTs with a configurable lifetime. Routes are named
// "METHOD /pattern"; FailNext queues a status for the next request to a
// route and Requests counts how many requests reached it:
//
//	srv, _ := fakeapi.New(fakeapi.Config{Secret: "test"})
//	ts := httptest.NewServer(srv)
//	srv.FailNext("PUT /cart/items/{id}", http.StatusServiceUnavailable)
//
// Two accounts are seeded, "ann" and "admin", each with its username as
// password.
package fakeapi

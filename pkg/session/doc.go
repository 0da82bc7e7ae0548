// Package session manages the client-side authentication session.
//
// A [Manager] owns the bearer token and the current [User]. It persists both
// under the "auth_token" and "auth_user" keys of a kvstore.Storage, restores
// them on start, and expires the session deterministically from the token's
// exp claim:
//
//	sess := session.NewManager(apiClient.Auth(), st, session.WithLogger(log))
//	sess.Restore(ctx) // once per process start
//	defer sess.Close()
//
//	if err := sess.Login(ctx, session.Credentials{Username: "ann", Password: "secret"}); err != nil {
//	    return err
//	}
//
// # States
//
// A new Manager is Unknown until Restore completes ([Manager.IsInitialized]).
// It is then Authenticated or Anonymous. Authenticated becomes Anonymous on
// [Manager.Logout], on token expiry, or when the server rejects the token;
// Anonymous becomes Authenticated only through [Manager.Login].
//
// # Expiry
//
// The exp claim is decoded without signature verification. A token without a
// usable exp never expires locally. An exp already in the past clears the
// session immediately instead of arming a timer.
//
// Every clear goes through one idempotent path, so the expiry timer, a 401
// seen by the transport ([Manager.InvalidateIfCurrent]) and an explicit
// [Manager.HandleSessionExpired] cannot produce conflicting clears.
//
// # Observation
//
// [Manager.Subscribe] delivers the current [State] and every later change in
// order. Subscribers run on the goroutine that changed the state and must not
// call Login, Logout or Restore themselves.
package session

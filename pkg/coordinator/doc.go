// Package coordinator sequences entity store initialization against the
// session lifecycle.
//
// A Coordinator subscribes to the session and reacts to three observations:
// whether the session finished restoring, whether it is authenticated, and
// which user owns it. When an authenticated session appears, every store is
// initialized once, each on its own goroutine after the init delay plus its
// stagger offset: the cached envelope is restored and, if it is empty or
// stale, the store is loaded from the server. When the session ends every
// store is reset before the publication returns. A change of user is handled
// as an end followed by a start.
//
//	coord, err := coordinator.New(sess, []coordinator.Store{cart, wishlist},
//	    coordinator.WithInitDelay(100*time.Millisecond),
//	    coordinator.WithRefreshSchedule("@every 1m"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := coord.Start(ctx); err != nil {
//	    return err
//	}
//	defer coord.Stop()
//
// A failed initialization is retried on the next qualifying session change
// or by RefreshStale, which the optional cron refresher calls on schedule.
package coordinator

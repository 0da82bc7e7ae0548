// Package health aggregates named health checks.
//
// [Run] executes a set of [Checks] in parallel under one timeout and returns
// a [Response]; [Response.Err] turns it into an error for callers that only
// need pass or fail. [Live] and [Readiness] expose them over HTTP for the
// development API server:
//
//	checks := health.Checks{
//	    "storage": kvstore.Healthcheck(storage),
//	    "api":     client.Ping,
//	}
//	if err := health.Run(ctx, checks, health.WithTimeout(3*time.Second)).Err(); err != nil {
//	    return err
//	}
//
// Both handlers answer in JSON. A [Readiness] reuses its last result for a
// short window and reports [StatusDraining] once the server starts to shut
// down.
package health

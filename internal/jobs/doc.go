// Package jobs implements background job processing for the StudySphere API.
//
// The jobs package contains scheduled tasks that run independently of HTTP
// request handling.
//
// # Job Types
//
// Available background jobs:
//
//   - TokenCleanup: Purges expired and long-revoked refresh tokens
//
// # Lifecycle
//
// Jobs are started alongside the HTTP server and stopped during graceful
// shutdown:
//
//	cleanup := jobs.NewTokenCleanup(tokenRepo, logger, time.Hour)
//	cleanup.Start()
//	defer cleanup.Stop()
//
// # Error Handling
//
// Jobs log errors but don't crash the application. A failed pass is simply
// retried on the next tick.
package jobs

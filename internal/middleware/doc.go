// Package middleware provides HTTP middleware for the StudySphere API.
//
// The middleware package contains reusable middleware components for
// authentication, authorization, rate limiting, and request processing.
//
// # Available Middleware
//
// Core middleware components:
//
//   - Auth: JWT token validation and user extraction
//   - AdminAuth: JWT validation plus admin role enforcement
//   - RateLimit: Request rate limiting per user/IP
//   - Idempotency: Idempotent request handling
//   - SessionAccess: Study session attendance verification
//
// # Authentication
//
// The auth middleware validates JWT tokens and extracts user information:
//
//	mux.Handle("GET /v1/auth/me", authMiddleware(handler))
//
// After authentication, handlers can access user info:
//
//	userID := middleware.GetUserID(r.Context())
//
// # Rate Limiting
//
// Rate limiting protects against abuse:
//
//	wrapped := middleware.RateLimit(limiter)(mux)
//
// Configurable limits per endpoint and user tier.
//
// # Context Values
//
// Middleware sets context values accessible via helper functions:
//
//   - GetUserID(ctx): Returns authenticated user ID
//   - GetSessionID(ctx): Returns session ID from path
//   - GetRequestID(ctx): Returns unique request identifier
package middleware

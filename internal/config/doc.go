// Package config manages application configuration for the StudySphere API.
//
// The config package loads and validates configuration from environment variables.
// All configuration is centralized here to provide a single source of truth.
//
// # Configuration Loading
//
// Configuration is loaded from environment variables:
//
//	cfg, err := config.Load()
//
// # Configuration Groups
//
// Configuration is organized into logical groups:
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS origins)
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: JWT signing and validation settings
//   - OAuthConfig: Google Sign-In settings
//
// # Environment Variables
//
// Key environment variables:
//
//	SERVER_PORT          - HTTP server port (default: 8080)
//	SERVER_ENV           - development, production, or test
//	CORS_ALLOWED_ORIGINS - comma-separated list of allowed origins
//	DB_HOST              - SurrealDB host
//	DB_PORT              - SurrealDB port
//	DB_NAMESPACE         - Database namespace
//	DB_DATABASE          - Database name
//	JWT_PRIVATE_KEY_PATH - RSA private key for signing tokens
//	JWT_PUBLIC_KEY_PATH  - RSA public key for verifying tokens
//	JWT_EXPIRATION_MINS  - Access token lifetime in minutes
//	GOOGLE_CLIENT_ID     - Google Sign-In client ID (optional)
//
// # Default Values
//
// Sensible defaults are provided for development, so a bare environment
// starts a server against a local SurrealDB instance.
package config

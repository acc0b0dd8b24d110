// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings: ports, TLS, logging, CORS for the admin, body
// size limits and timeouts.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Toast cookie
	SessionKey    string // Secret key for signing the cookie (must be strong in production)
	SessionName   string // Cookie name
	SessionDomain string // Cookie domain (blank means current host)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// API key for scripted clients. Bearer requests skip CSRF.
	// Leave empty to reject every Bearer request.
	APIKey string

	SiteName string

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string // Path to CloudFront private key file

	// Page content
	PageDefaultsPath string        // optional YAML merged over the built-in defaults
	SettingsCacheTTL time.Duration // public API cache lifetime; 0 disables
	MaxUploadMB      int           // largest settings submit; 0 uses the handler default

	// Origins allowed to read /api/pages. Empty or "*" allows any.
	APICORSOrigins []string

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAdmin  string
	AuditRetention time.Duration

	// API stats
	APIStatsBucket    time.Duration
	APIStatsRetention time.Duration
}

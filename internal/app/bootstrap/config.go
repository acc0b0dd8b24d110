// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "PAGECMS"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, site_name, etc.
//   - Environment variables: PAGECMS_MONGO_URI, PAGECMS_SITE_NAME, etc.
//   - Command-line flags: --mongo_uri, --site_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "pagecms", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Signs the toast cookie
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Cookie signing key (must be strong in production)"},
	{Name: "session_name", Default: "pagecms-flash", Desc: "Toast cookie name"},
	{Name: "session_domain", Default: "", Desc: "Cookie domain (blank means current host)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// API key configuration (for scripted clients using Bearer token auth)
	{Name: "api_key", Default: "", Desc: "API key for scripted admin access (leave empty to disable API key auth)"},

	{Name: "site_name", Default: "Page CMS", Desc: "Name shown in the admin menu"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Page content
	{Name: "page_defaults_path", Default: "", Desc: "YAML file merged over the built-in page defaults"},
	{Name: "settings_cache_ttl", Default: "30s", Desc: "How long the public API caches a page (0 disables)"},
	{Name: "max_upload_mb", Default: 32, Desc: "Largest settings submit accepted, in MB"},

	// Public read API
	{Name: "api_cors_origins", Default: "*", Desc: "Comma-separated origins allowed to call /api/pages ('*' for any)"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: "all", Desc: "Content change logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "How long audit events are kept (0 keeps them forever)"},

	// API stats configuration
	{Name: "api_stats_bucket", Default: "1h", Desc: "API stats bucket duration (e.g., '1m', '15m', '1h', '24h')"},
	{Name: "api_stats_retention", Default: "720h", Desc: "How long API stats buckets are kept (0 keeps them forever)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, PAGECMS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		CSRFKey: appValues.String("csrf_key"),
		APIKey:  appValues.String("api_key"),

		SiteName: appValues.String("site_name"),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// Page content
		PageDefaultsPath: appValues.String("page_defaults_path"),
		SettingsCacheTTL: appValues.Duration("settings_cache_ttl", 30*time.Second),
		MaxUploadMB:      appValues.Int("max_upload_mb"),

		APICORSOrigins: splitList(appValues.String("api_cors_origins")),

		// Audit logging
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditRetention: appValues.Duration("audit_retention", 90*24*time.Hour),

		// API stats
		APIStatsBucket:    appValues.Duration("api_stats_bucket", time.Hour),
		APIStatsRetention: appValues.Duration("api_stats_retention", 30*24*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The defaults table is loaded here too, so a broken override file stops
// startup instead of surfacing on the first page view.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "", "local", "s3":
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}

	if appCfg.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must not be negative (got %d)", appCfg.MaxUploadMB)
	}

	t, err := pagedefaults.Load(appCfg.PageDefaultsPath)
	if err != nil {
		logger.Error("invalid page defaults", zap.Error(err))
		return err
	}
	if err := t.Validate(); err != nil {
		logger.Error("page defaults do not match the page forms", zap.Error(err))
		return fmt.Errorf("page defaults: %w", err)
	}

	return nil
}

// splitList splits a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

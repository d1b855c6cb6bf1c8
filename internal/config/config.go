package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database drivers selected from DATABASE_URL
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Blob backends selected by BLOB_BACKEND
const (
	BlobBackendDisk  = "disk"
	BlobBackendMinIO = "minio"
)

type Config struct {
	Port           string
	Environment    string
	DatabaseURL    string
	DatabaseDriver string // Derived from the DATABASE_URL scheme
	TablePrefix    string
	CORSOrigins    string
	// Blob storage
	BlobBackend string
	UploadDir   string
	MinIO       MinIOSettings
	Uploads     *UploadPolicy
	// Maintenance
	OrphanGracePeriod time.Duration
	// Logging
	LogDir      string
	LogMaxFiles int
	Debug       bool
}

// MinIOSettings configures the S3-compatible blob backend
type MinIOSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")
	databaseURL := getEnv("DATABASE_URL", "sqlite://./dataroom.db")

	uploads, err := loadUploadPolicy()
	if err != nil {
		return nil, err
	}

	logMaxFiles, err := getEnvInt("LOG_MAX_FILES", 10)
	if err != nil {
		return nil, err
	}
	gracePeriod, err := getEnvDuration("ORPHAN_GRACE_PERIOD", time.Hour)
	if err != nil {
		return nil, err
	}
	useSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		DatabaseURL:    databaseURL,
		DatabaseDriver: databaseDriver(databaseURL),
		TablePrefix:    getTablePrefix(env),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		BlobBackend:    strings.ToLower(getEnv("BLOB_BACKEND", BlobBackendDisk)),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MinIO: MinIOSettings{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "dataroom"),
			UseSSL:    useSSL,
		},
		Uploads:           uploads,
		OrphanGracePeriod: gracePeriod,
		LogDir:            getEnv("LOG_DIR", ""),
		LogMaxFiles:       logMaxFiles,
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.BlobBackend {
	case BlobBackendDisk:
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the disk blob backend")
		}
	case BlobBackendMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio blob backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.OrphanGracePeriod < 0 {
		return fmt.Errorf("ORPHAN_GRACE_PERIOD must not be negative")
	}
	return nil
}

// loadUploadPolicy reads the embedded policy and applies env overrides
func loadUploadPolicy() (*UploadPolicy, error) {
	policy, err := DefaultUploadPolicy()
	if err != nil {
		return nil, err
	}

	// MAX_CONTENT_LENGTH is accepted as an alias
	maxBytes := getEnv("MAX_UPLOAD_BYTES", os.Getenv("MAX_CONTENT_LENGTH"))
	if maxBytes != "" {
		n, err := strconv.ParseInt(maxBytes, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", maxBytes)
		}
		policy.MaxBytes = n
	}

	if types := os.Getenv("ALLOWED_MIME_TYPES"); types != "" {
		policy.AllowedMimeTypes = splitList(types)
	}

	return policy, policy.Validate()
}

// databaseDriver picks the repository backend from the URL scheme
func databaseDriver(databaseURL string) string {
	lower := strings.ToLower(databaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30m, got %q", key, value)
	}
	return d, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds everything the service reads from the environment at startup
type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURI    string // Mongo connection string, or file path for sqlite
	DatabaseName   string
	MigrationsDir  string // sqlite schema migrations

	JWTSecret string
	TokenTTL  time.Duration

	UploadDir  string
	CORSOrigin string

	// Optional integrations; empty disables them
	RedisAddr     string
	RedisPassword string
	S3            S3Config
	OTELEndpoint  string
	ServiceName   string
}

// S3Config configures S3-compatible upload storage (minio, AWS, ...)
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // base used to build returned file URLs
}

// Enabled reports whether uploads should go to object storage instead of disk
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// Load reads the configuration from environment variables, applying defaults
func Load() *Config {
	uri := getEnv("MONGODB_URI", "")
	if uri == "" {
		uri = getEnv("DATABASE_URL", "")
	}

	return &Config{
		Port:           getEnv("PORT", "4444"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverMongo),
		DatabaseURI:    uri,
		DatabaseName:   getEnv("DATABASE_NAME", "blog"),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "./database/migrations"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getDuration("TOKEN_TTL", 30*24*time.Hour),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "uploads"),
			UseSSL:    getBool("S3_USE_SSL", false),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "blog-api"),
	}
}

// Validate reports every missing or malformed required value at once
func (c *Config) Validate() error {
	var problems []string

	if c.DatabaseURI == "" {
		problems = append(problems, "database connection string is required (MONGODB_URI or DATABASE_URL)")
	}
	if c.DatabaseDriver != DriverMongo && c.DatabaseDriver != DriverSQLite {
		problems = append(problems, fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.Port == "" {
		problems = append(problems, "PORT must not be empty")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

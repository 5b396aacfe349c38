// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store and media drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
	MediaFS     = "fs"
	MediaS3     = "s3"
)

// Config holds all configuration for the application
type Config struct {
	Port string

	StoreDriver string
	MongoURI    string
	MongoDB     string

	JWTSecret           string
	TokenTTL            time.Duration
	SessionLifetime     time.Duration
	SessionCookieSecure bool

	CORSAllowedOrigins []string

	RedisURL           string
	RateLimitPerMinute int

	MediaDriver    string
	MediaDir       string
	MediaBaseURL   string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PathStyle    bool
	AWSAccessKeyID string
	AWSSecretKey   string

	PublicBaseURL string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ could not read .env: %v", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv reads the environment without validating.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", ":8080"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDB:            getEnv("MONGODB_NAME", "mixmaster"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RedisURL:           os.Getenv("REDIS_URL"),
		MediaDriver:        strings.ToLower(getEnv("MEDIA_DRIVER", MediaFS)),
		MediaDir:           getEnv("MEDIA_DIR", "./static/media"),
		MediaBaseURL:       getEnv("MEDIA_BASE_URL", "/media"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           os.Getenv("S3_REGION"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		PublicBaseURL:      strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/"),
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionLifetime, err = getDuration("SESSION_LIFETIME", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionCookieSecure, err = getBool("SESSION_COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.S3PathStyle, err = getBool("S3_PATH_STYLE", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig checks required settings and allowed values.
func ValidateConfig(cfg *Config) error {
	var errs []error
	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, ValidationError{"MONGODB_URI", "required when STORE_DRIVER is mongo"})
		}
	case StoreMemory:
	default:
		errs = append(errs, ValidationError{"STORE_DRIVER", fmt.Sprintf("unknown driver %q", cfg.StoreDriver)})
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{"JWT_SECRET", "required"})
	}
	switch cfg.MediaDriver {
	case MediaFS:
	case MediaS3:
		if cfg.S3Bucket == "" {
			errs = append(errs, ValidationError{"S3_BUCKET", "required when MEDIA_DRIVER is s3"})
		}
	default:
		errs = append(errs, ValidationError{"MEDIA_DRIVER", fmt.Sprintf("unknown driver %q", cfg.MediaDriver)})
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"TOKEN_TTL", "must be positive"})
	}
	if cfg.RateLimitPerMinute < 1 {
		errs = append(errs, ValidationError{"RATE_LIMIT_PER_MINUTE", "must be at least 1"})
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, ValidationError{key, fmt.Sprintf("invalid duration %q", v)}
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ValidationError{key, fmt.Sprintf("invalid boolean %q", v)}
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ValidationError{key, fmt.Sprintf("invalid integer %q", v)}
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

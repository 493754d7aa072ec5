// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the storefront reads from the environment
type Config struct {
	Port        string
	Environment string

	MongoURI    string
	MongoDB     string
	StoreDriver string // "mongo" or "memory"

	JWTSecret      string
	JWTExpiryHours int
	AdminEmail     string
	AdminPassword  string

	EmailProvider    string // "postmark", "sendgrid" or "log"
	PostmarkAPIToken string
	SendGridAPIKey   string
	EmailSender      string

	FirebaseProjectID       string
	FirebaseCredentialsFile string

	GCSBucket          string
	GCSCredentialsFile string
	UploadDir          string
	PublicBaseURL      string

	StorefrontURL string
	OrderIDPrefix string

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	LogLevel  string
	LogFormat string
	LogOutput string
}

// Load reads the .env file (if any) and the process environment
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "ecommerce"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),

		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		PostmarkAPIToken: getEnv("POSTMARK_API_TOKEN", ""),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailSender:      getEnv("EMAIL_SENDER", "Team BLYNK <onboarding@blynkstore.com>"),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),

		StorefrontURL: strings.TrimRight(getEnv("STOREFRONT_URL", "http://localhost:5173"), "/"),
		OrderIDPrefix: getEnv("ORDER_ID_PREFIX", "BLYNK-"),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs with development fallbacks enabled
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q: must be a number between 1 and 65535", c.Port)
	}

	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be mongo or memory", c.StoreDriver)
	}

	switch c.EmailProvider {
	case "postmark":
		if c.PostmarkAPIToken == "" {
			return fmt.Errorf("POSTMARK_API_TOKEN is required when EMAIL_PROVIDER=postmark")
		}
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid")
		}
	case "log":
	default:
		return fmt.Errorf("invalid EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "development-secret"
	}

	if c.JWTExpiryHours <= 0 {
		c.JWTExpiryHours = 24
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Storage     StorageConfig
	RabbitMQ    RabbitMQConfig
	Checkout    CheckoutConfig
	I18n        I18nConfig
	CORS        CORSConfig
	Seed        SeedConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	ReadTimeout int
	IdleTimeout int
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	LockTimeout  int // in seconds, postgres only
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

type StorageConfig struct {
	InvoiceDir    string
	InvoicePrefix string
}

type RabbitMQConfig struct {
	URL            string
	Exchange       string
	PublishTimeout int // in milliseconds
}

type CheckoutConfig struct {
	LowStockThreshold    int
	DefaultPaymentMethod string
	InvoiceRetries       int
	Timeout              int // in seconds
}

type I18nConfig struct {
	DefaultLocale string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SeedConfig struct {
	AdminNumero   string
	AdminPassword string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Host:        getEnv("SERVER_HOST", "localhost"),
			ReadTimeout: getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			IdleTimeout: getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "yecy_cosmetic"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
			LockTimeout:  getEnvAsInt("DB_LOCK_TIMEOUT", 10),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "yecy-cosmetic-invoices"),
		},
		Storage: StorageConfig{
			InvoiceDir:    getEnv("INVOICE_DIR", "./data/invoices"),
			InvoicePrefix: getEnv("INVOICE_PREFIX", "invoices"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:            getEnv("RABBITMQ_URL", ""),
			Exchange:       getEnv("RABBITMQ_NOTIFICATION_EXCHANGE", "notifications"),
			PublishTimeout: getEnvAsInt("RABBITMQ_PUBLISH_TIMEOUT_MS", 500),
		},
		Checkout: CheckoutConfig{
			LowStockThreshold:    getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
			DefaultPaymentMethod: getEnv("DEFAULT_PAYMENT_METHOD", "contraentrega"),
			InvoiceRetries:       getEnvAsInt("INVOICE_RETRIES", 3),
			Timeout:              getEnvAsInt("CHECKOUT_TIMEOUT", 30),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Seed: SeedConfig{
			AdminNumero:   getEnv("ADMIN_NUMERO", "3000000000"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Seed.AdminPassword == "admin123" && c.Environment == "production" {
		return fmt.Errorf("default admin password must be changed in production")
	}

	if c.Checkout.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

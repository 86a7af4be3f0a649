package config

import (
	"fmt"
	"os"
	"strconv"

	"paygate/internal/payment/model"
)

// Config holds the full application configuration, populated from
// environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// =====================================================
// PAYMENT CONFIGURATION
// =====================================================

// GatewayConfig is the static (environment-sourced) configuration for
// one gateway. Credentials here are the lowest-precedence source; a
// persisted gateway spec overrides them key by key.
type GatewayConfig struct {
	Driver      string
	Credentials map[string]string
	Sandbox     bool
	Enabled     bool
}

type PaymentConfig struct {
	DefaultGateway string
	Gateways       map[string]GatewayConfig
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Paygate API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "paygate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Payment: PaymentConfig{
			DefaultGateway: getEnv("PAYMENT_DEFAULT_GATEWAY", "sslcommerz"),
			Gateways: map[string]GatewayConfig{
				"sslcommerz": {
					Driver: "sslcommerz",
					Credentials: map[string]string{
						"store_id":       getEnv("SSLCOMMERZ_STORE_ID", ""),
						"store_password": getEnv("SSLCOMMERZ_STORE_PASSWORD", ""),
					},
					Sandbox: getEnvBool("SSLCOMMERZ_SANDBOX", true),
					Enabled: getEnvBool("SSLCOMMERZ_ENABLED", true),
				},
				"bkash": {
					Driver: "bkash",
					Credentials: map[string]string{
						"app_key":    getEnv("BKASH_APP_KEY", ""),
						"app_secret": getEnv("BKASH_APP_SECRET", ""),
						"username":   getEnv("BKASH_USERNAME", ""),
						"password":   getEnv("BKASH_PASSWORD", ""),
					},
					Sandbox: getEnvBool("BKASH_SANDBOX", true),
					Enabled: getEnvBool("BKASH_ENABLED", true),
				},
				"nagad": {
					Driver: "nagad",
					Credentials: map[string]string{
						"merchant_id":  getEnv("NAGAD_MERCHANT_ID", ""),
						"merchant_key": getEnv("NAGAD_MERCHANT_KEY", ""),
					},
					Sandbox: getEnvBool("NAGAD_SANDBOX", true),
					Enabled: getEnvBool("NAGAD_ENABLED", true),
				},
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for obvious misconfiguration.
func (c *Config) Validate() error {
	if _, ok := c.Payment.Gateways[c.Payment.DefaultGateway]; !ok {
		return fmt.Errorf("PAYMENT_DEFAULT_GATEWAY %q is not a configured gateway", c.Payment.DefaultGateway)
	}

	for name, gw := range c.Payment.Gateways {
		if !model.IsValidGateway(gw.Driver) {
			return fmt.Errorf("gateway %q uses unknown driver %q", name, gw.Driver)
		}
	}

	if c.App.Environment == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		for name, gw := range c.Payment.Gateways {
			if gw.Sandbox {
				fmt.Printf("WARNING: gateway %s is in sandbox mode in production\n", name)
			}
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

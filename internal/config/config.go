package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	ServiceName string
	HTTPPort    int

	DBConfig DBConfig

	KafkaBrokerURL string
	RedisURL       string

	JWTSecret    string
	JWTExpiresIn time.Duration

	// Key the central bank presents on callbacks into this bank, and the
	// key this bank presents to the central bank.
	APIKey            string
	CentralBankAPIURL string
	CentralBankAPIKey string
	APIGatewayURL     string

	// api-gateway only.
	AuthServiceURL        string
	AccountServiceURL     string
	TransactionServiceURL string
	RateLimitMax          int
	RateLimitWindow       time.Duration

	// central-bank simulator only.
	VBankAPIURL string
	VBankAPIKey string
}

func LoadConfig(serviceName string) (*Config, error) {
	cfg := &Config{ServiceName: serviceName}

	cfg.HTTPPort = getEnvAsInt("PORT", 3000)

	cfg.DBConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("DB_NAME", "vbank")
	cfg.DBConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", "disable")

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.RedisURL = getEnvOrDefault("REDIS_URL", "redis://localhost:6379")

	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", "your-default-secret-key")
	cfg.JWTExpiresIn = getEnvAsDuration("JWT_EXPIRES_IN", 24*time.Hour)

	cfg.APIKey = getEnvOrDefault("API_KEY", "vbank_key")
	cfg.CentralBankAPIURL = getEnvOrDefault("CENTRAL_BANK_API_URL", "http://localhost:5010")
	cfg.CentralBankAPIKey = getEnvOrDefault("CENTRAL_BANK_API_KEY", "central-bank-key")
	cfg.APIGatewayURL = getEnvOrDefault("API_GATEWAY_URL", "http://localhost:3000")

	cfg.AuthServiceURL = getEnvOrDefault("AUTH_SERVICE_URL", "http://localhost:3001")
	cfg.AccountServiceURL = getEnvOrDefault("ACCOUNT_SERVICE_URL", "http://localhost:3002")
	cfg.TransactionServiceURL = getEnvOrDefault("TRANSACTION_SERVICE_URL", "http://localhost:3003")
	cfg.RateLimitMax = getEnvAsInt("RATE_LIMIT_MAX", 100)
	cfg.RateLimitWindow = getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute)

	cfg.VBankAPIURL = getEnvOrDefault("VBANK_API_URL", "http://localhost:3003")
	cfg.VBankAPIKey = getEnvOrDefault("VBANK_API_KEY", "vbank_key")

	return cfg, nil
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

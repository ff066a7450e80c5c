package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage backends selectable via STORAGE_BACKEND.
const (
	StorageMemory   = "memory"
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Port           string
	IsProduction   bool
	DatabaseURL    string
	StorageBackend string
	BoltPath       string

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Ledger rates. ExchangeRate is HTG per MXN; CommissionRate is the
	// transfer fee fraction (0.06 = 6%).
	ExchangeRate   decimal.Decimal
	CommissionRate decimal.Decimal

	// AdminEmails is the explicit allow-list that grants the admin
	// capability at registration time.
	AdminEmails []string

	// EmailLookupFold enables case-insensitive login email matching.
	// Default is exact match.
	EmailLookupFold bool

	// Notification channel (fire-and-forget, post-commit).
	AdminWhatsApp    string
	NotifyWebhookURL string
	NotifyWorkers    int

	// AuthRateLimit uses the limiter "<count>-<period>" format, e.g. "10-M".
	AuthRateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("STORAGE_BACKEND", StorageBolt)
	viper.SetDefault("BOLT_PATH", "remesa.db")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "remesa-backend")
	viper.SetDefault("EXCHANGE_RATE", "5.85")
	viper.SetDefault("COMMISSION_RATE", "0.06")
	viper.SetDefault("ADMIN_EMAILS", "")
	viper.SetDefault("EMAIL_LOOKUP_CASE_INSENSITIVE", false)
	viper.SetDefault("ADMIN_WHATSAPP", "")
	viper.SetDefault("NOTIFY_WEBHOOK_URL", "")
	viper.SetDefault("NOTIFY_WORKERS", 4)
	viper.SetDefault("AUTH_RATE_LIMIT", "10-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.StorageBackend = viper.GetString("STORAGE_BACKEND")
	cfg.BoltPath = viper.GetString("BOLT_PATH")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration)
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	exchangeRate, err := decimal.NewFromString(viper.GetString("EXCHANGE_RATE"))
	if err != nil || exchangeRate.LessThanOrEqual(decimal.Zero) {
		exchangeRate = decimal.RequireFromString("5.85")
		log.Printf("Warning: Invalid value for EXCHANGE_RATE. Defaulting to %s.\n", exchangeRate)
	}
	cfg.ExchangeRate = exchangeRate

	commissionRate, err := decimal.NewFromString(viper.GetString("COMMISSION_RATE"))
	if err != nil || commissionRate.IsNegative() {
		commissionRate = decimal.RequireFromString("0.06")
		log.Printf("Warning: Invalid value for COMMISSION_RATE. Defaulting to %s.\n", commissionRate)
	}
	cfg.CommissionRate = commissionRate

	cfg.AdminEmails = splitCSV(viper.GetString("ADMIN_EMAILS"))
	if len(cfg.AdminEmails) == 0 {
		log.Println("Warning: ADMIN_EMAILS not set. No account will receive the admin capability.")
	}
	cfg.EmailLookupFold = viper.GetBool("EMAIL_LOOKUP_CASE_INSENSITIVE")

	cfg.AdminWhatsApp = viper.GetString("ADMIN_WHATSAPP")
	cfg.NotifyWebhookURL = viper.GetString("NOTIFY_WEBHOOK_URL")
	cfg.NotifyWorkers = viper.GetInt("NOTIFY_WORKERS")
	if cfg.NotifyWorkers <= 0 {
		cfg.NotifyWorkers = 4
	}

	cfg.AuthRateLimit = viper.GetString("AUTH_RATE_LIMIT")

	return cfg, nil
}

// splitCSV trims and lowercases a comma-separated list, dropping empties.
func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

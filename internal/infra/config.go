package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	IdentitySecret string

	// Quota policy baseline; a remote policy endpoint may override per field.
	PolicyConfigURL  string
	PolicyRefreshTTL time.Duration
	FreeDailyLimit   int
	FreeMonthlyCap   int
	LaunchBonus      int
	PromoEndDate     string
	QuotaKillSwitch  bool

	// NIC e-invoicing gateway.
	NICBaseURL      string
	NICClientID     string
	NICClientSecret string
	NICUsername     string

	GoogleClientID string
	OIDCIssuer     string

	PaymentWebhookSecret string
	GeoIPDBPath          string
	AllowedOrigins       []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	SweepInterval    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		IdentitySecret: os.Getenv("IDENTITY_SECRET"),

		PolicyConfigURL:  os.Getenv("POLICY_CONFIG_URL"),
		PolicyRefreshTTL: time.Second * time.Duration(getEnvInt("POLICY_REFRESH_TTL_SECONDS", 300)),
		FreeDailyLimit:   getEnvInt("FREE_DAILY_LIMIT", 2),
		FreeMonthlyCap:   getEnvInt("FREE_MONTHLY_CAP", 60),
		LaunchBonus:      getEnvInt("LAUNCH_BONUS", 1),
		PromoEndDate:     os.Getenv("PROMO_END_DATE"),
		QuotaKillSwitch:  getEnvBool("QUOTA_KILL_SWITCH", false),

		NICBaseURL:      getEnv("NIC_BASE_URL", "https://einv-apisandbox.nic.in"),
		NICClientID:     os.Getenv("NIC_CLIENT_ID"),
		NICClientSecret: os.Getenv("NIC_CLIENT_SECRET"),
		NICUsername:     os.Getenv("NIC_USERNAME"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		OIDCIssuer:     getEnv("OIDC_ISSUER", "https://accounts.google.com"),

		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:       splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SweepInterval:    time.Minute * time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.IdentitySecret == "" {
		cfg.IdentitySecret = cfg.JWTSecret
	}

	if cfg.PromoEndDate != "" {
		if _, err := time.ParseInLocation("2006-01-02", cfg.PromoEndDate, time.Local); err != nil {
			return nil, fmt.Errorf("PROMO_END_DATE must be YYYY-MM-DD: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

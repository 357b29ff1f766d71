package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Host kinds. Mobile hosts tolerate higher provider latency, so they get a
// longer bounded-wait budget.
const (
	HostMobile = "mobile"
	HostWeb    = "web"
)

// Config holds the application configuration
type Config struct {
	ProviderURL    string // Identity provider base URL
	ProviderAPIKey string // API key sent with every provider call
	Port           string // Service port
	Host           string // Host kind: "mobile" or "web"

	CallBudget  time.Duration // Bounded-wait budget per provider call
	RetryBudget time.Duration // Shorter budget for the single get-user retry
	CacheTTL    time.Duration // Approval cache TTL

	MasterAdminEmails []string // Emails that always resolve to admin+approved

	SignInMaxAttempts int           // Sign-in attempts per window
	SignInWindow      time.Duration // Sign-in rate-limit window

	DatabaseURL string // Profile store DSN
	RedisAddr   string // Optional: Redis for session blobs / shared rate limits
	SessionDir  string // Directory for the file-backed session blob store

	AuthSharedSecret     string        // Shared secret for admin endpoints
	CSRFSecret           string        // CSRF secret for token generation
	BackendTokenSecret   string        // Secret for signing backend JWT tokens
	BackendTokenIssuer   string        // JWT issuer claim
	BackendTokenAudience string        // JWT audience claim
	BackendTokenTTL      time.Duration // JWT token TTL
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		ProviderURL:          getEnv("PROVIDER_URL", "http://identity-provider:9999"),
		ProviderAPIKey:       getEnv("PROVIDER_API_KEY", ""),
		Port:                 getEnv("PORT", "8889"),
		Host:                 getEnv("HOST_KIND", HostWeb),
		CallBudget:           5 * time.Second,
		RetryBudget:          2 * time.Second,
		CacheTTL:             30 * time.Second,
		SignInMaxAttempts:    5,
		SignInWindow:         15 * time.Minute,
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		SessionDir:           getEnv("SESSION_DIR", ""),
		AuthSharedSecret:     getEnv("AUTH_SHARED_SECRET", ""),
		CSRFSecret:           getEnv("CSRF_SECRET", ""),
		BackendTokenSecret:   getEnv("BACKEND_TOKEN_SECRET", ""),
		BackendTokenIssuer:   getEnv("BACKEND_TOKEN_ISSUER", "identity-hub"),
		BackendTokenAudience: getEnv("BACKEND_TOKEN_AUDIENCE", "app-backend"),
		BackendTokenTTL:      5 * time.Minute,
	}

	if config.Host == HostMobile {
		config.CallBudget = 10 * time.Second
	}

	if emails := os.Getenv("MASTER_ADMIN_EMAILS"); emails != "" {
		for _, e := range strings.Split(emails, ",") {
			if e = strings.TrimSpace(strings.ToLower(e)); e != "" {
				config.MasterAdminEmails = append(config.MasterAdminEmails, e)
			}
		}
	}

	// Parse CALL_BUDGET if provided
	if budgetStr := os.Getenv("CALL_BUDGET"); budgetStr != "" {
		duration, err := time.ParseDuration(budgetStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CALL_BUDGET format: %w", err)
		}
		config.CallBudget = duration
	}

	// Parse CACHE_TTL if provided
	if cacheTTLStr := os.Getenv("CACHE_TTL"); cacheTTLStr != "" {
		duration, err := time.ParseDuration(cacheTTLStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL format: %w", err)
		}
		config.CacheTTL = duration
	}

	// Parse SIGNIN_MAX_ATTEMPTS if provided
	if attemptsStr := os.Getenv("SIGNIN_MAX_ATTEMPTS"); attemptsStr != "" {
		attempts, err := strconv.Atoi(attemptsStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SIGNIN_MAX_ATTEMPTS format: %w", err)
		}
		config.SignInMaxAttempts = attempts
	}

	// Parse SIGNIN_WINDOW if provided
	if windowStr := os.Getenv("SIGNIN_WINDOW"); windowStr != "" {
		duration, err := time.ParseDuration(windowStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SIGNIN_WINDOW format: %w", err)
		}
		config.SignInWindow = duration
	}

	// Parse BACKEND_TOKEN_TTL if provided
	if ttlStr := os.Getenv("BACKEND_TOKEN_TTL"); ttlStr != "" {
		duration, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKEND_TOKEN_TTL format: %w", err)
		}
		config.BackendTokenTTL = duration
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ProviderURL == "" {
		return fmt.Errorf("PROVIDER_URL cannot be empty")
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.Host != HostMobile && c.Host != HostWeb {
		return fmt.Errorf("HOST_KIND must be %q or %q", HostMobile, HostWeb)
	}

	if c.CallBudget <= 0 {
		return fmt.Errorf("CALL_BUDGET must be positive")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.SignInMaxAttempts <= 0 {
		return fmt.Errorf("SIGNIN_MAX_ATTEMPTS must be positive")
	}

	if c.SignInWindow <= 0 {
		return fmt.Errorf("SIGNIN_WINDOW must be positive")
	}

	return nil
}

// IsMasterAdmin reports whether the email is in the configured master-admin
// set. Comparison is case-insensitive.
func (c *Config) IsMasterAdmin(email string) bool {
	email = strings.ToLower(email)
	for _, admin := range c.MasterAdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BradenHooton/loginguard/internal/models"
)

// Store backends
const (
	StoreCookie   = "cookie"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Database       DatabaseConfig
	Server         ServerConfig
	Store          StoreConfig
	Throttle       ThrottleConfig
	Form           FormConfig
	IdentityServer IdentityServerConfig
	Cookie         CookieConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type StoreConfig struct {
	Backend         string
	SigningKey      string
	KeyPrefix       string
	RememberTTL     time.Duration
	CleanupInterval time.Duration
}

type ThrottleConfig struct {
	Threshold         int
	LockoutDuration   time.Duration
	RecordTTL         time.Duration
	RequestsPerMinute int
}

type FormConfig struct {
	IdentifierKind        models.IdentifierKind
	IdentifierField       string
	ServerIdentifierField string
	PasswordField         string
	BrandName             string
	DefaultLocale         string
}

type IdentityServerConfig struct {
	FormAction           string
	LoginURL             string
	AccountURL           string
	RealmName            string
	RegistrationURL      string // registration form action
	ResetCredentialsURL  string
	RegistrationAllowed  bool
	EmailAsUsername      bool
	ResetPasswordAllowed bool
	SocialProviders      []models.SocialProvider
	AllowedRedirectHosts []string
}

type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite string
	CSRFKey  string // 32 bytes; generated per process when empty
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	kind := models.ParseIdentifierKind(getEnv("FORM_IDENTIFIER_KIND", string(models.IdentifierEmail)))

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "loginguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", StoreCookie)),
			SigningKey:      getEnv("STORE_SIGNING_KEY", ""),
			KeyPrefix:       getEnv("STORE_KEY_PREFIX", "lg_"),
			RememberTTL:     getEnvAsDuration("STORE_REMEMBER_TTL", 30*24*time.Hour),
			CleanupInterval: getEnvAsDuration("STORE_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Throttle: ThrottleConfig{
			Threshold:         getEnvAsInt("THROTTLE_THRESHOLD", 5),
			LockoutDuration:   getEnvAsDuration("THROTTLE_LOCKOUT_DURATION", 5*time.Minute),
			RecordTTL:         getEnvAsDuration("THROTTLE_RECORD_TTL", 30*time.Minute),
			RequestsPerMinute: getEnvAsInt("THROTTLE_REQUESTS_PER_MINUTE", 20),
		},
		Form: FormConfig{
			IdentifierKind:        kind,
			IdentifierField:       getEnv("FORM_IDENTIFIER_FIELD", string(kind)),
			ServerIdentifierField: getEnv("FORM_SERVER_IDENTIFIER_FIELD", "username"),
			PasswordField:         getEnv("FORM_PASSWORD_FIELD", "password"),
			BrandName:             getEnv("FORM_BRAND_NAME", "Login"),
			DefaultLocale:         getEnv("FORM_DEFAULT_LOCALE", "ko"),
		},
		IdentityServer: IdentityServerConfig{
			FormAction:           getEnv("IDP_FORM_ACTION", ""),
			LoginURL:             getEnv("IDP_LOGIN_URL", "/login"),
			AccountURL:           getEnv("IDP_ACCOUNT_URL", ""),
			RealmName:            getEnv("IDP_REALM_NAME", ""),
			RegistrationURL:      getEnv("IDP_REGISTRATION_URL", ""),
			ResetCredentialsURL:  getEnv("IDP_RESET_CREDENTIALS_URL", ""),
			RegistrationAllowed:  getEnvAsBool("IDP_REGISTRATION_ALLOWED", false),
			EmailAsUsername:      getEnvAsBool("IDP_REGISTRATION_EMAIL_AS_USERNAME", false),
			ResetPasswordAllowed: getEnvAsBool("IDP_RESET_PASSWORD_ALLOWED", false),
			AllowedRedirectHosts: getEnvAsList("IDP_ALLOWED_REDIRECT_HOSTS"),
		},
		Cookie: CookieConfig{
			Domain:   getEnv("COOKIE_DOMAIN", ""),
			Secure:   getEnvAsBool("COOKIE_SECURE", env == "production"),
			SameSite: getEnv("COOKIE_SAMESITE", "lax"),
			CSRFKey:  getEnv("CSRF_AUTH_KEY", ""),
		},
	}

	providers, err := parseSocialProviders(getEnv("IDP_SOCIAL_PROVIDERS", ""))
	if err != nil {
		return nil, err
	}
	cfg.IdentityServer.SocialProviders = providers

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.IdentityServer.FormAction == "" {
		return fmt.Errorf("IDP_FORM_ACTION is required")
	}
	u, err := url.Parse(c.IdentityServer.FormAction)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("IDP_FORM_ACTION must be an absolute URL")
	}
	if c.IdentityServer.RegistrationAllowed {
		u, err := url.Parse(c.IdentityServer.RegistrationURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("IDP_REGISTRATION_URL must be an absolute URL when registration is allowed")
		}
	}

	if c.Throttle.Threshold < 1 {
		return fmt.Errorf("THROTTLE_THRESHOLD must be at least 1 (got %d)", c.Throttle.Threshold)
	}
	if c.Throttle.LockoutDuration <= 0 {
		return fmt.Errorf("THROTTLE_LOCKOUT_DURATION must be positive")
	}

	if c.Cookie.CSRFKey != "" && len(c.Cookie.CSRFKey) != 32 {
		return fmt.Errorf("CSRF_AUTH_KEY must be exactly 32 bytes (got %d)", len(c.Cookie.CSRFKey))
	}

	switch c.Store.Backend {
	case StoreCookie:
		if c.Store.SigningKey == "" {
			return fmt.Errorf("STORE_SIGNING_KEY is required for the cookie store")
		}
		if err := validateSigningKey(c.Store.SigningKey, c.Server.Env); err != nil {
			return err
		}
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of cookie, memory, postgres (got %q)", c.Store.Backend)
	}

	return nil
}

// validateSigningKey enforces minimum security standards for the cookie signing key
func validateSigningKey(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("STORE_SIGNING_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("STORE_SIGNING_KEY cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// parseSocialProviders reads "id|Display Name|https://login-url" entries separated by commas
func parseSocialProviders(raw string) ([]models.SocialProvider, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var providers []models.SocialProvider
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("IDP_SOCIAL_PROVIDERS entry %q must be id|displayName|loginUrl", entry)
		}
		providers = append(providers, models.SocialProvider{
			ID:          strings.TrimSpace(parts[0]),
			DisplayName: strings.TrimSpace(parts[1]),
			LoginURL:    strings.TrimSpace(parts[2]),
		})
	}
	return providers, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		v := strings.ToLower(strings.TrimSpace(value))
		return v == "1" || v == "true" || v == "yes"
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:8180", // local identity server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8180",
	}
}

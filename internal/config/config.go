package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CallbackPath is where the provider sends the browser back after consent.
const CallbackPath = "/auth/callback"

var (
	ErrMissingSessionSecret    = errors.New("SESSION_SECRET environment variable is required")
	ErrMissingOAuthCredentials = errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables are required")
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	OAuth     OAuthConfig
	Session   SessionConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	MinIO     MinIOConfig
	Site      SiteConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	BaseURL         string // public origin, used to build the OAuth redirect URI
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type OAuthConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	ExchangeTimeout time.Duration // bounds code exchange + ID token verification per callback
	HTTPTimeout     time.Duration // transport timeout of the provider HTTP client
	EnforceState    bool
}

type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Store      string // memory | redis | mongo
	KeyPrefix  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MinIOConfig holds MinIO connection configuration for the bucket-backed site.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// Page is one navigation entry exposed to the front-end.
type Page struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// SiteConfig carries page metadata and the contact details shown on the
// legal pages, plus where the site itself comes from.
type SiteConfig struct {
	StaticDir    string
	DevServerURL string

	Title           string
	Footer          string
	Pages           []Page
	PrivacyEmail    string
	SupportEmail    string
	BusinessName    string
	BusinessAddress string
	BusinessCity    string
	BusinessCountry string
}

// DefaultPages mirrors the navigation of the documentation site.
var DefaultPages = []Page{
	{Name: "Home", Path: "/"},
	{Name: "Profile", Path: "/profile"},
	{Name: "Terms of Service", Path: "/tos"},
	{Name: "Privacy Policy", Path: "/privacy"},
}

// IsProduction reports whether the pre-built site is served and cookies are Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10)
	v.SetDefault("OAUTH_EXCHANGE_TIMEOUT", 15)
	v.SetDefault("OAUTH_HTTP_TIMEOUT", 10)
	v.SetDefault("OAUTH_ENFORCE_STATE", true)
	v.SetDefault("SESSION_COOKIE_NAME", "siteauth.sid")
	v.SetDefault("SESSION_MAX_AGE", 24*60)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_KEY_PREFIX", "session:")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MONGODB_DATABASE", "siteauth")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MINIO_BUCKET", "site")
	v.SetDefault("STATIC_DIR", "dist")
	v.SetDefault("DEV_SERVER_URL", "http://localhost:3001")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("SITE_TITLE", "GCP OAuth")
	v.SetDefault("SITE_FOOTER", "Built with Observable Framework.")
	v.SetDefault("PRIVACY_EMAIL", "privacy@example.com")
	v.SetDefault("SUPPORT_EMAIL", "support@example.com")
	v.SetDefault("BUSINESS_NAME", "Your business name")
	v.SetDefault("BUSINESS_ADDRESS", "Your address")
	v.SetDefault("BUSINESS_CITY", "Your city")
	v.SetDefault("BUSINESS_COUNTRY", "Your country")
	v.SetDefault("LOG_LEVEL", "info")

	port := v.GetString("SERVER_PORT")
	baseURL := strings.TrimRight(v.GetString("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            port,
			Host:            v.GetString("SERVER_HOST"),
			Environment:     v.GetString("SERVER_ENVIRONMENT"),
			BaseURL:         baseURL,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: time.Duration(v.GetInt("SERVER_SHUTDOWN_TIMEOUT")) * time.Second,
		},
		OAuth: OAuthConfig{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:     baseURL + CallbackPath,
			ExchangeTimeout: time.Duration(v.GetInt("OAUTH_EXCHANGE_TIMEOUT")) * time.Second,
			HTTPTimeout:     time.Duration(v.GetInt("OAUTH_HTTP_TIMEOUT")) * time.Second,
			EnforceState:    v.GetBool("OAUTH_ENFORCE_STATE"),
		},
		Session: SessionConfig{
			Secret:     v.GetString("SESSION_SECRET"),
			CookieName: v.GetString("SESSION_COOKIE_NAME"),
			MaxAge:     time.Duration(v.GetInt("SESSION_MAX_AGE")) * time.Minute,
			Store:      strings.ToLower(v.GetString("SESSION_STORE")),
			KeyPrefix:  v.GetString("SESSION_KEY_PREFIX"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Prefix:    v.GetString("MINIO_PREFIX"),
		},
		Site: SiteConfig{
			StaticDir:       v.GetString("STATIC_DIR"),
			DevServerURL:    v.GetString("DEV_SERVER_URL"),
			Title:           v.GetString("SITE_TITLE"),
			Footer:          v.GetString("SITE_FOOTER"),
			Pages:           DefaultPages,
			PrivacyEmail:    v.GetString("PRIVACY_EMAIL"),
			SupportEmail:    v.GetString("SUPPORT_EMAIL"),
			BusinessName:    v.GetString("BUSINESS_NAME"),
			BusinessAddress: v.GetString("BUSINESS_ADDRESS"),
			BusinessCity:    v.GetString("BUSINESS_CITY"),
			BusinessCountry: v.GetString("BUSINESS_COUNTRY"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing secrets and inconsistent store settings. The
// server must not start serving when it fails.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return ErrMissingSessionSecret
	}
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		return ErrMissingOAuthCredentials
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", c.Session.MaxAge)
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Redis.Host == "" {
			return errors.New("SESSION_STORE=redis requires REDIS_HOST")
		}
	case "mongo":
		if c.MongoDB.URI == "" {
			return errors.New("SESSION_STORE=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q (memory|redis|mongo)", c.Session.Store)
	}
	return nil
}

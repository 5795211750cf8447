package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	AI      AIConfig      `mapstructure:"ai"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Site    SiteConfig    `mapstructure:"site"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
// Driver is one of "mysql", "sqlite3" (cgo) or "sqlite" (pure Go).
// MySQL DSNs need parseTime=true and multiStatements=true.
type DBConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// SessionConfig holds cookie session settings.
type SessionConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// OIDCConfig holds OIDC client configuration. Login through an external
// provider is offered only when Enabled is set.
type OIDCConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds the SQLite page cache settings.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AIConfig points at an Ollama-compatible chat endpoint.
type AIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

// ScraperConfig controls outbound page fetching for the news importer.
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ListingURL   string        `mapstructure:"listing_url"`
	LinkPatterns []string      `mapstructure:"link_patterns"`
	Feeds        []string      `mapstructure:"feeds"`
}

// SiteConfig holds public-facing site settings.
type SiteConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
}

// AuthConfig holds local account settings.
type AuthConfig struct {
	ModelPath      string        `mapstructure:"model_path"`
	SeedAdmins     []string      `mapstructure:"seed_admins"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"`
	LoginPerMinute float64       `mapstructure:"login_per_minute"`
	LoginBurst     int           `mapstructure:"login_burst"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig reads configuration from .env, the config file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("db.driver", "sqlite3")
	viper.SetDefault("db.dsn", "file:hub.db?_foreign_keys=on")
	viper.SetDefault("db.migrations_path", "migrations")
	viper.SetDefault("session.lifetime", 24)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("cache.file_path", "cache.db")
	viper.SetDefault("cache.ttl", 15*time.Minute)
	viper.SetDefault("ai.base_url", "http://localhost:11434")
	viper.SetDefault("ai.model", "llama3.1")
	viper.SetDefault("ai.timeout", 120*time.Second)
	viper.SetDefault("ai.max_tokens", 3000)
	viper.SetDefault("scraper.user_agent", "finance-hub-importer/1.0")
	viper.SetDefault("scraper.timeout", 30*time.Second)
	viper.SetDefault("scraper.listing_url", "https://www.banki.ru/news/")
	viper.SetDefault("scraper.link_patterns", []string{"/news/daytheme/", "/news/lenta/"})
	viper.SetDefault("site.name", "M-etod Finance Hub")
	viper.SetDefault("site.base_url", "http://localhost:8080")
	viper.SetDefault("auth.model_path", "auth_model.conf")
	viper.SetDefault("auth.bcrypt_cost", 12)
	viper.SetDefault("auth.reset_token_ttl", time.Hour)
	viper.SetDefault("auth.login_per_minute", 10)
	viper.SetDefault("auth.login_burst", 5)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Set up viper to read from config file
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/finance-hub/")
	viper.AddConfigPath("$HOME/.finance-hub")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	// Set up viper to read from environment variables
	viper.SetEnvPrefix("HUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal the config into the Config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

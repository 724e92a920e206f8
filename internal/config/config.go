package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Cache    CacheConfig
	Commerce CommerceConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// CacheConfig holds catalog caching TTLs
type CacheConfig struct {
	ProductTTL     time.Duration
	ProductListTTL time.Duration
}

// CommerceConfig holds purchase and return policy
type CommerceConfig struct {
	// ReturnWindow is how long after a purchase a return may be requested
	ReturnWindow time.Duration
}

// AuthConfig holds token authentication settings
type AuthConfig struct {
	TokenTTL time.Duration
}

// Load reads configuration from environment variables (and a .env file when
// present) and returns a Config struct
func Load() (*Config, error) {
	// Missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "30s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "storefront")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("DB_AUTO_MIGRATE", false)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_PRODUCT", "300s")
	viper.SetDefault("CACHE_TTL_PRODUCT_LIST", "120s")

	viper.SetDefault("RETURN_WINDOW", "180s")
	viper.SetDefault("AUTH_TOKEN_TTL", "10m")

	durations := map[string]*time.Duration{}
	var (
		readTimeout, writeTimeout, requestTimeout, shutdownTimeout time.Duration
		connMaxLifetime, productTTL, productListTTL                time.Duration
		returnWindow, tokenTTL                                     time.Duration
	)
	durations["SERVER_READ_TIMEOUT"] = &readTimeout
	durations["SERVER_WRITE_TIMEOUT"] = &writeTimeout
	durations["SERVER_REQUEST_TIMEOUT"] = &requestTimeout
	durations["SERVER_SHUTDOWN_TIMEOUT"] = &shutdownTimeout
	durations["DB_CONN_MAX_LIFETIME"] = &connMaxLifetime
	durations["CACHE_TTL_PRODUCT"] = &productTTL
	durations["CACHE_TTL_PRODUCT_LIST"] = &productListTTL
	durations["RETURN_WINDOW"] = &returnWindow
	durations["AUTH_TOKEN_TTL"] = &tokenTTL

	for key, dst := range durations {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	if returnWindow <= 0 {
		return nil, fmt.Errorf("invalid RETURN_WINDOW: must be positive, got %s", returnWindow)
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env:      viper.GetString("ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			RequestTimeout:  requestTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
			MigrationsDir:   viper.GetString("DB_MIGRATIONS_DIR"),
			AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			ProductTTL:     productTTL,
			ProductListTTL: productListTTL,
		},
		Commerce: CommerceConfig{
			ReturnWindow: returnWindow,
		},
		Auth: AuthConfig{
			TokenTTL: tokenTTL,
		},
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

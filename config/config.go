package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pizza-api/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultJWTSecret is the development signing key used when jwt.secret is not configured
const DefaultJWTSecret = "pizza_service_secret_change_me"

// EnvPrefix is stripped from environment variables before they are mapped to config keys
const EnvPrefix = "PIZZA_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	JWT       JWTConfig       `koanf:"jwt"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Admin     AdminConfig     `koanf:"admin"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
	Mode string `koanf:"mode"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// RedisConfig selects the shared revocation set. An empty Addr keeps revocations in process memory.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// MetricsConfig configures the push reporter. An empty URL disables pushing;
// counters are still served on /metrics.
type MetricsConfig struct {
	URL    string        `koanf:"url"`
	Source string        `koanf:"source"`
	UserID string        `koanf:"user_id"`
	APIKey string        `koanf:"api_key"`
	Period time.Duration `koanf:"period"`
}

type RateLimitConfig struct {
	AuthLimit  int64         `koanf:"auth_limit"`
	AuthPeriod time.Duration `koanf:"auth_period"`
}

// AdminConfig seeds a bootstrap admin account when Email is set
type AdminConfig struct {
	Name     string `koanf:"name"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Port: "8080", Mode: "debug"},
		DB:        DBConfig{Path: "pizza.db"},
		JWT:       JWTConfig{Secret: DefaultJWTSecret, TTL: 24 * time.Hour},
		Log:       LogConfig{Level: "info"},
		Metrics:   MetricsConfig{Source: "pizza-api", Period: 10 * time.Second},
		RateLimit: RateLimitConfig{AuthLimit: 20, AuthPeriod: time.Minute},
		Admin:     AdminConfig{Name: "admin"},
	}
}

// Load reads defaults, an optional .env file and PIZZA_* environment variables.
// PIZZA_JWT_SECRET maps to jwt.secret, PIZZA_METRICS_API_KEY to metrics.api_key.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// transformEnvKey turns PIZZA_METRICS_API_KEY into metrics.api_key: the first
// segment is the section, the rest is the field name.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key, value
	}
	return section + "." + field, value
}

// UsesDefaultSecret reports whether tokens would be signed with the built-in development key
func (c *Config) UsesDefaultSecret() bool {
	return c.JWT.Secret == DefaultJWTSecret
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Metrics.URL != "" && c.Metrics.Period <= 0 {
		return errors.New("metrics.period must be positive when metrics.url is set")
	}
	return nil
}

// InitDB opens the sqlite database at path and migrates all models
func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite has a single writer; one connection serializes writes instead of
	// failing them with SQLITE_BUSY, and keeps :memory: a single database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.Franchise{},
		&models.FranchiseAdmin{},
		&models.Store{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

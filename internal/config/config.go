package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// MinSecretLength is the shortest signing secret accepted at startup.
	MinSecretLength = 32

	defaultListenAddr    = ":8080"
	defaultTokenTTL      = time.Hour
	defaultIssuer        = "authgrid"
	defaultCacheMaxItems = 1000
	defaultMaxBodyBytes  = 1 << 20
)

// TTL holds the cache TTL tiers. Read paths pick a tier by how volatile the
// underlying data is.
type TTL struct {
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	VeryLong time.Duration
}

// Config captures every environment input the service consumes.
type Config struct {
	ListenAddr string

	PGDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	CacheTTL      TTL
	CacheMaxItems int

	RatePerSecond  int
	RateBurst      int
	LoginPerMinute int
	LoginBurst     int
	MaxBodyBytes   int64

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads configuration from the environment. The signing secret is the
// only hard requirement; everything else has a sane default.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:    envOr("AUTHGRID_LISTEN_ADDR", defaultListenAddr),
		PGDSN:         os.Getenv("AUTHGRID_PG_DSN"),
		RedisAddr:     os.Getenv("AUTHGRID_REDIS_ADDR"),
		RedisPassword: os.Getenv("AUTHGRID_REDIS_PASSWORD"),
		JWTSecret:     strings.TrimSpace(os.Getenv("AUTHGRID_JWT_SECRET")),
		JWTIssuer:     envOr("AUTHGRID_JWT_ISSUER", defaultIssuer),

		BootstrapAdminEmail:    envOr("AUTHGRID_BOOTSTRAP_EMAIL", "superadmin@system.com"),
		BootstrapAdminPassword: os.Getenv("AUTHGRID_BOOTSTRAP_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("AUTHGRID_JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < MinSecretLength {
		return Config{}, fmt.Errorf("AUTHGRID_JWT_SECRET must be at least %d bytes", MinSecretLength)
	}

	var err error
	if cfg.RedisDB, err = envInt("AUTHGRID_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = envDuration("AUTHGRID_JWT_TTL", defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("AUTHGRID_JWT_TTL must be positive")
	}

	if cfg.CacheTTL, err = loadTTLTiers(); err != nil {
		return Config{}, err
	}
	if cfg.CacheMaxItems, err = envInt("AUTHGRID_CACHE_MAX_ITEMS", defaultCacheMaxItems); err != nil {
		return Config{}, err
	}
	if cfg.CacheMaxItems <= 0 {
		return Config{}, errors.New("AUTHGRID_CACHE_MAX_ITEMS must be positive")
	}

	if cfg.RatePerSecond, err = envInt("AUTHGRID_RATE_PER_SECOND", 50); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = envInt("AUTHGRID_RATE_BURST", 100); err != nil {
		return Config{}, err
	}
	if cfg.LoginPerMinute, err = envInt("AUTHGRID_LOGIN_PER_MINUTE", 10); err != nil {
		return Config{}, err
	}
	if cfg.LoginBurst, err = envInt("AUTHGRID_LOGIN_BURST", 5); err != nil {
		return Config{}, err
	}

	maxBody, err := envInt("AUTHGRID_MAX_BODY_BYTES", defaultMaxBodyBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	return cfg, nil
}

func loadTTLTiers() (TTL, error) {
	tiers := TTL{}
	var err error
	if tiers.Short, err = envSeconds("AUTHGRID_CACHE_TTL_SHORT", 60); err != nil {
		return TTL{}, err
	}
	if tiers.Medium, err = envSeconds("AUTHGRID_CACHE_TTL_MEDIUM", 300); err != nil {
		return TTL{}, err
	}
	if tiers.Long, err = envSeconds("AUTHGRID_CACHE_TTL_LONG", 3600); err != nil {
		return TTL{}, err
	}
	if tiers.VeryLong, err = envSeconds("AUTHGRID_CACHE_TTL_VERY_LONG", 86400); err != nil {
		return TTL{}, err
	}
	return tiers, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func envSeconds(key string, defSeconds int) (time.Duration, error) {
	v, err := envInt(key, defSeconds)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return time.Duration(v) * time.Second, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 1h or 30m: %w", key, err)
	}
	return d, nil
}

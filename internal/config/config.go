package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"

	defaultPort               = "8000"
	defaultDatabaseURL        = "file:videohub.db"
	defaultAccessTokenExpiry  = "1d"
	defaultRefreshTokenExpiry = "10d"
	defaultCookieSameSite     = "Lax"
	defaultCookiePath         = "/"
	defaultLoginMaxAttempts   = "10"
	defaultLoginWindow        = "15m"
	defaultMediaBackend       = "local"

	devAccessTokenSecret  = "dev-access-secret"
	devRefreshTokenSecret = "dev-refresh-secret"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieSameSite     string
	CookiePath         string

	CORSOrigins []string

	// RedisAddr enables login throttling when set.
	RedisAddr        string
	LoginMaxAttempts int
	LoginWindow      time.Duration

	Media MediaConfig
}

type MediaConfig struct {
	Backend    string // local or s3
	LocalDir   string
	PublicBase string
	TempDir    string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is fine; real deployments use the environment
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.Environment = strings.ToLower(strings.TrimSpace(getEnv("ENVIRONMENT", EnvDevelopment)))

	port := strings.TrimSpace(getEnv("PORT", defaultPort))
	if strings.Contains(port, ":") {
		cfg.HTTPAddr = port
	} else {
		cfg.HTTPAddr = ":" + port
	}
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))

	cfg.AccessTokenSecret = strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET"))
	cfg.RefreshTokenSecret = strings.TrimSpace(os.Getenv("REFRESH_TOKEN_SECRET"))
	if !cfg.isProdLike() {
		if cfg.AccessTokenSecret == "" {
			cfg.AccessTokenSecret = devAccessTokenSecret
		}
		if cfg.RefreshTokenSecret == "" {
			cfg.RefreshTokenSecret = devRefreshTokenSecret
		}
	}

	var err error
	cfg.AccessTokenExpiry, err = parseDurationEnv("ACCESS_TOKEN_EXPIRY", defaultAccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenExpiry, err = parseDurationEnv("REFRESH_TOKEN_EXPIRY", defaultRefreshTokenExpiry)
	if err != nil {
		return nil, err
	}
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(getEnv("COOKIE_PATH", defaultCookiePath))

	cfg.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	attempts := strings.TrimSpace(getEnv("LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts))
	cfg.LoginMaxAttempts, err = strconv.Atoi(attempts)
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS value %q: %w", attempts, err)
	}
	cfg.LoginWindow, err = parseDurationEnv("LOGIN_WINDOW", defaultLoginWindow)
	if err != nil {
		return nil, err
	}

	cfg.Media = MediaConfig{
		Backend:     strings.ToLower(strings.TrimSpace(getEnv("MEDIA_BACKEND", defaultMediaBackend))),
		LocalDir:    strings.TrimSpace(os.Getenv("MEDIA_LOCAL_DIR")),
		PublicBase:  strings.TrimSpace(os.Getenv("MEDIA_PUBLIC_BASE")),
		TempDir:     strings.TrimSpace(os.Getenv("MEDIA_TEMP_DIR")),
		S3Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:    strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be set")
	}
	if c.RefreshTokenSecret == "" {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be set")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.isProdLike() && (c.AccessTokenSecret == devAccessTokenSecret || c.RefreshTokenSecret == devRefreshTokenSecret) {
		return fmt.Errorf("in %s token secrets must not use development defaults", c.Environment)
	}
	if c.AccessTokenExpiry <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRY must be > 0")
	}
	if c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRY must be > 0")
	}
	if c.RefreshTokenExpiry < c.AccessTokenExpiry {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRY must not be shorter than ACCESS_TOKEN_EXPIRY")
	}
	if c.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	sameSite := strings.ToLower(c.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !c.SecureCookies() {
		return fmt.Errorf("COOKIE_SAMESITE=None requires secure cookies (ENVIRONMENT other than development)")
	}
	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be > 0")
	}
	if c.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_WINDOW must be > 0")
	}

	switch c.Media.Backend {
	case "local":
	case "s3":
		if c.Media.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set when MEDIA_BACKEND=s3")
		}
		if c.Media.S3Region == "" {
			return fmt.Errorf("S3_REGION must be set when MEDIA_BACKEND=s3")
		}
	default:
		return fmt.Errorf("MEDIA_BACKEND must be local or s3, got %q", c.Media.Backend)
	}
	return nil
}

// SecureCookies reports whether session cookies carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.Environment != EnvDevelopment
}

func (c *Config) isProdLike() bool {
	return c.Environment != EnvDevelopment && c.Environment != "test"
}

// LogValue keeps secrets out of structured logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("environment", c.Environment),
		slog.String("http_addr", c.HTTPAddr),
		slog.Duration("access_token_expiry", c.AccessTokenExpiry),
		slog.Duration("refresh_token_expiry", c.RefreshTokenExpiry),
		slog.Bool("secure_cookies", c.SecureCookies()),
		slog.String("cookie_samesite", c.CookieSameSite),
		slog.Bool("login_throttling", c.RedisAddr != ""),
		slog.String("media_backend", c.Media.Backend),
	)
}

// ParseDuration accepts time.ParseDuration syntax plus a whole or fractional
// day suffix ("10d", "1.5d").
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", value)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(value)
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

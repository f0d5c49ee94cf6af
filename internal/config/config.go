package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file by main.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Owner    OwnerConfig
	Platform PlatformConfig
	LLM      LLMConfig
}

type AppConfig struct {
	Env  string
	Port int

	// FrontendURL is the dashboard origin allowed by CORS.
	FrontendURL string
	// ExtraOrigin mirrors VITE_API_URL when the dashboard is served from the API host.
	ExtraOrigin string

	CookieSecure bool

	// Timezone is the IANA zone used for opening hours.
	Timezone string
}

// DBConfig is empty when the process should run without a database.
type DBConfig struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig is optional; an empty Addr disables caching and the LLM concurrency cap.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// OwnerConfig identifies the bootstrap administrator.
type OwnerConfig struct {
	OpenID   string
	Email    string
	Password string
	Name     string
}

type PlatformConfig struct {
	BaseURL string
	APIKey  string
	AgentID string
	Timeout time.Duration
}

type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxConcurrent int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error
	intVar := func(key string, def int) int {
		n, err := optionalInt(key, def)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return n
	}
	durationVar := func(key string) time.Duration {
		d, err := optionalDuration(key)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return d
	}

	c.App.Env = envOr("APP_ENV", "local")
	c.App.Port = intVar("APP_PORT", 8080)
	c.App.FrontendURL = envOr("FRONTEND_URL", "http://localhost:3100")
	c.App.ExtraOrigin = strings.TrimSpace(os.Getenv("VITE_API_URL"))
	if v := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("COOKIE_SECURE must be a boolean, got %q", v))
		}
		c.App.CookieSecure = b
	} else {
		c.App.CookieSecure = c.App.Env == "production"
	}

	c.App.Timezone = envOr("APP_TIMEZONE", "Europe/Paris")

	c.DB.URL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	c.DB.MaxOpenConns = intVar("DB_MAX_OPEN_CONNS", 0)

	c.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = intVar("REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Zero TTLs are replaced by defaults in Validate.
	c.Auth.AccessTokenTTL = durationVar("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = durationVar("JWT_REFRESH_TTL")

	c.Owner.OpenID = strings.TrimSpace(os.Getenv("OWNER_OPEN_ID"))
	c.Owner.Email = strings.TrimSpace(os.Getenv("OWNER_EMAIL"))
	c.Owner.Password = os.Getenv("OWNER_PASSWORD")
	c.Owner.Name = envOr("OWNER_NAME", "Owner")

	c.Platform.BaseURL = envOr("CALLROUNDED_API_URL", "https://api.callrounded.com/v1")
	c.Platform.APIKey = os.Getenv("CALLROUNDED_API_KEY")
	c.Platform.AgentID = strings.TrimSpace(os.Getenv("CALLROUNDED_AGENT_ID"))
	c.Platform.Timeout = durationVar("CALLROUNDED_TIMEOUT")

	c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	c.LLM.BaseURL = envOr("LLM_BASE_URL", "https://api.openai.com/v1")
	c.LLM.Model = envOr("LLM_MODEL_ID", "gpt-4o-mini")
	c.LLM.MaxConcurrent = intVar("LLM_MAX_CONCURRENT", 2)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate fills defaults in place and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE must be an IANA zone, got %q", c.App.Timezone))
	}

	if c.DB.URL != "" {
		if _, err := DatabaseScheme(c.DB.URL); err != nil {
			errs = append(errs, err)
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if (c.Owner.Email == "") != (c.Owner.Password == "") {
		errs = append(errs, errors.New("OWNER_EMAIL and OWNER_PASSWORD must be set together"))
	}

	if _, err := url.ParseRequestURI(c.Platform.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("CALLROUNDED_API_URL must be an absolute URL, got %q", c.Platform.BaseURL))
	}
	if c.Platform.Timeout <= 0 {
		c.Platform.Timeout = 15 * time.Second
	}

	if c.LLM.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_CONCURRENT must be positive, got %d", c.LLM.MaxConcurrent))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location resolves App.Timezone; an empty or unknown zone yields UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// AllowedOrigins lists the CORS origins for the dashboard.
func (c Config) AllowedOrigins() []string {
	out := []string{strings.TrimRight(c.App.FrontendURL, "/")}
	if c.App.ExtraOrigin != "" {
		if u, err := url.Parse(c.App.ExtraOrigin); err == nil && u.Scheme != "" && u.Host != "" {
			origin := u.Scheme + "://" + u.Host
			if origin != out[0] {
				out = append(out, origin)
			}
		}
	}
	return out
}

// DatabaseScheme reports which driver a DATABASE_URL targets: mysql, postgres or sqlite.
func DatabaseScheme(raw string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql", nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(lower, "sqlite:"), strings.HasPrefix(lower, "file:"):
		return "sqlite", nil
	default:
		return "", fmt.Errorf("DATABASE_URL scheme must be mysql, postgres or sqlite")
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func optionalInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

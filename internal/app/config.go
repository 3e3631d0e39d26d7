package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the API server configuration, loadable from environment
// variables (DESK_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (DESK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AdminPassword string `usage:"Password granting the admin role" flag:"admin-password"`
	LoginPassword string `usage:"Password granting the user role" flag:"login-password"`
	SecureCookies bool   `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookies"`
	AMQPURL       string `usage:"RabbitMQ URL for product events; empty disables publishing" flag:"amqp-url"`
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// RateLimitConfig controls the per-session sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	// The dashboard authenticates with a cookie, so credentials are on by
	// default.
	AllowCredentials bool `default:"true" usage:"Allow credentials (cookies)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and platform defaults, then validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DESK",
		Files:     []string{"config.yaml", "/etc/product-desk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set DESK_DATABASE_URL or DATABASE_URL")
	case c.AdminPassword == "" && c.LoginPassword == "":
		return errors.New("no password configured: set DESK_ADMIN_PASSWORD or DESK_LOGIN_PASSWORD")
	case c.AdminPassword != "" && c.AdminPassword == c.LoginPassword:
		return errors.New("admin and login passwords must differ")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps the DATABASE_URL and PORT variables set by
// hosting platforms onto the DESK_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

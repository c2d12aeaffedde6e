package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/tax"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr   string `default:"" usage:"Redis address or redis:// URL; enables shared rate limits and redemption locks" flag:"redis-addr"`
	Shop        ShopConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// ShopConfig holds store-wide pricing settings.
type ShopConfig struct {
	Currency          string `default:"USD" usage:"ISO 4217 currency code"`
	Locale            string `default:"en-US" usage:"BCP 47 locale for display amounts"`
	TaxEnabled        bool   `default:"false" usage:"Charge sales tax" flag:"tax-enabled"`
	PricesIncludeTax  bool   `default:"false" usage:"Catalog prices already include tax" flag:"prices-include-tax"`
	TaxShipping       bool   `default:"false" usage:"Tax the shipping charge" flag:"tax-shipping"`
	WeightUnit        string `default:"kg" usage:"Standard weight unit for shipping tiers (g, kg, oz, lb)" flag:"weight-unit"`
	StrictWeightTiers bool   `default:"false" usage:"Reject carts whose weight matches no shipping tier" flag:"strict-weight-tiers"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Limit  int64         `default:"100" usage:"Max requests per period"`
	Period time.Duration `default:"1m"  usage:"Rate limit period"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	if _, err := weight.ParseUnit(c.Shop.WeightUnit); err != nil {
		return errors.Wrap(err, "shop weight unit")
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Period <= 0 {
		return errors.New("rate limit and period must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisAddr == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisAddr = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// TaxSettings converts the shop flags to the engine's tax settings.
func (s ShopConfig) TaxSettings() pricing.TaxSettings {
	mode := tax.Exclusive
	if s.PricesIncludeTax {
		mode = tax.Inclusive
	}
	return pricing.TaxSettings{
		Enabled:  s.TaxEnabled,
		Mode:     mode,
		Shipping: s.TaxShipping,
	}
}

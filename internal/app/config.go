package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/hospital-orders/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (HOSPITAL_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (HOSPITAL_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pricing     PricingConfig
	Graceful    GracefulConfig
}

// PricingConfig lists the tax components applied per order kind as
// NAME:RATE entries, e.g. "SGST:9".
type PricingConfig struct {
	PurchaseTaxes []string `default:"GST:18" usage:"Tax components for purchase orders" flag:"purchase-taxes"`
	SalesTaxes    []string `default:"SGST:9,CGST:9" usage:"Tax components for sales orders" flag:"sales-taxes"`
	TransferTaxes []string `usage:"Tax components for stock transfers" flag:"transfer-taxes"`
}

// TaxPolicy parses the configured components.
func (c PricingConfig) TaxPolicy() (order.TaxPolicy, error) {
	policy := order.TaxPolicy{}
	for kind, entries := range map[order.Kind][]string{
		order.KindPurchase: c.PurchaseTaxes,
		order.KindSales:    c.SalesTaxes,
		order.KindTransfer: c.TransferTaxes,
	} {
		components, err := order.ParseTaxComponents(entries)
		if err != nil {
			return nil, errors.Wrapf(err, "%s taxes", kind)
		}
		policy[kind] = components
	}
	return policy, nil
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
		EnvPrefix: "HOSPITAL",
		Files:     []string{"config.yaml", "/etc/hospital/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set HOSPITAL_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL and PORT variables
// to the HOSPITAL_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

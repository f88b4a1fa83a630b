// Package config reads and writes the ledgerline.yaml project file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ledgerline-dev/ledgerline/internal/model"
)

// FileName is the default config file name.
const FileName = "ledgerline.yaml"

// Config represents the top-level ledgerline.yaml configuration.
type Config struct {
	Company  CompanyConfig  `yaml:"company"`
	Tax      TaxConfig      `yaml:"tax"`
	Bank     BankConfig     `yaml:"bank"`
	Currency CurrencyConfig `yaml:"currency,omitempty"`
}

// CompanyConfig identifies the company.
type CompanyConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"` // base currency code, e.g. "USD"
}

// TaxConfig configures tax resolution.
type TaxConfig struct {
	SellerRegion string                  `yaml:"seller_region"`
	APIKey       string                  `yaml:"api_key,omitempty"` // jurisdiction lookup provider key
	Regions      map[string]RegionConfig `yaml:"regions,omitempty"`
}

// RegionConfig configures tax behavior for one region code.
type RegionConfig struct {
	TaxAll            bool `yaml:"tax_all"`
	SalesThresholdMet bool `yaml:"sales_threshold_met"`
}

// BankConfig configures transaction import and reconciliation.
type BankConfig struct {
	ImportDir        string        `yaml:"import_dir"`
	ImportFormat     string        `yaml:"import_format"`
	CategoryCacheTTL time.Duration `yaml:"category_cache_ttl"` // 0 caches for the process lifetime
}

// CurrencyConfig holds static exchange rates keyed "FROM:TO".
type CurrencyConfig struct {
	Rates map[string]string `yaml:"rates,omitempty"`
}

// Load reads a ledgerline.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyName string) *Config {
	return &Config{
		Company: CompanyConfig{
			Name:     companyName,
			Currency: "USD",
		},
		Tax: TaxConfig{
			SellerRegion: "US",
		},
		Bank: BankConfig{
			ImportDir:    ".",
			ImportFormat: "chase",
		},
	}
}

// ModelTax converts the tax section into the company tax configuration.
func (c *Config) ModelTax() model.TaxConfig {
	regions := make(map[string]model.RegionTaxConfig, len(c.Tax.Regions))
	for code, rc := range c.Tax.Regions {
		regions[code] = model.RegionTaxConfig{
			TaxAll:            rc.TaxAll,
			SalesThresholdMet: rc.SalesThresholdMet,
		}
	}
	return model.TaxConfig{
		SellerRegion: c.Tax.SellerRegion,
		Regions:      regions,
	}
}

// ExchangeRates parses the currency section into decimal rates keyed
// "FROM:TO".
func (c *Config) ExchangeRates() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(c.Currency.Rates))
	for pair, raw := range c.Currency.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing rate %s=%q: %w", pair, raw, err)
		}
		rates[pair] = rate
	}
	return rates, nil
}

// Package config loads exchangesim's configuration: a YAML file, with
// environment variable overrides, validated before use. Grounded on the
// teacher's config.Load (godotenv.Load, then YAML, then env overrides,
// then Validate).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is exchangesim's full runtime configuration.
type Config struct {
	// Markets is the set of active market symbols, e.g. "btcusd",
	// "btcusd_perp".
	Markets []string `yaml:"markets"`

	Fees FeesConfig `yaml:"fees"`

	// MarketMonitor configures the oracle.HTTPClient price feed.
	MarketMonitor MarketMonitorConfig `yaml:"market_monitor"`

	Database DatabaseConfig `yaml:"database"`

	// APIPrefix and APIVersion compose the REST mount point, e.g.
	// "/api" + "v1" -> "/api/v1".
	APIPrefix  string `yaml:"api_prefix"`
	APIVersion string `yaml:"api_version"`

	LogLevel string `yaml:"log_level"`
}

// FeesConfig holds default maker/taker fee rates applied to newly created
// portfolios, per spec.md §3's Portfolio fee fields.
type FeesConfig struct {
	SpotMakerFee float64 `yaml:"spot_maker_fee"`
	SpotTakerFee float64 `yaml:"spot_taker_fee"`
	PerpMakerFee float64 `yaml:"perp_maker_fee"`
	PerpTakerFee float64 `yaml:"perp_taker_fee"`
}

// MarketMonitorConfig points the oracle at a market-monitor HTTP service.
type MarketMonitorConfig struct {
	APIPath          string `yaml:"api_path"`
	SubscriptionPath string `yaml:"subscription_path"`
	Exchange         string `yaml:"exchange"`
}

// DatabaseConfig holds Postgres connection settings. When Enabled is
// false, the serve and positions commands use store.Memory instead.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Load reads configuration from a YAML file at path, with environment
// variable overrides, falling back to defaults where neither is set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using defaults and config.yaml")
	} else {
		fmt.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		Markets: []string{"btcusd", "ethusd", "btcusd_perp", "ethusd_perp"},
		Fees: FeesConfig{
			SpotMakerFee: 0.0005,
			SpotTakerFee: 0.001,
			PerpMakerFee: 0.0002,
			PerpTakerFee: 0.0005,
		},
		MarketMonitor: MarketMonitorConfig{
			APIPath:          "http://localhost:8090",
			SubscriptionPath: "/subscriptions",
			Exchange:         "exchangesim",
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "exchangesim",
			Password: "",
			DBName:   "exchangesim",
			SSLMode:  "disable",
		},
		APIPrefix:  "/api",
		APIVersion: "v1",
		LogLevel:   "info",
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("EXCHANGESIM_MARKETS"); val != "" {
		cfg.Markets = strings.Split(val, ",")
	}

	if val := os.Getenv("EXCHANGESIM_SPOT_MAKER_FEE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Fees.SpotMakerFee = f
		}
	}
	if val := os.Getenv("EXCHANGESIM_SPOT_TAKER_FEE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Fees.SpotTakerFee = f
		}
	}
	if val := os.Getenv("EXCHANGESIM_PERP_MAKER_FEE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Fees.PerpMakerFee = f
		}
	}
	if val := os.Getenv("EXCHANGESIM_PERP_TAKER_FEE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Fees.PerpTakerFee = f
		}
	}

	if val := os.Getenv("EXCHANGESIM_MM_API_PATH"); val != "" {
		cfg.MarketMonitor.APIPath = val
	}
	if val := os.Getenv("EXCHANGESIM_MM_SUBSCRIPTION_PATH"); val != "" {
		cfg.MarketMonitor.SubscriptionPath = val
	}
	if val := os.Getenv("EXCHANGESIM_MM_EXCHANGE"); val != "" {
		cfg.MarketMonitor.Exchange = val
	}

	if val := os.Getenv("EXCHANGESIM_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("EXCHANGESIM_API_PREFIX"); val != "" {
		cfg.APIPrefix = val
	}
	if val := os.Getenv("EXCHANGESIM_API_VERSION"); val != "" {
		cfg.APIVersion = val
	}

	if val := os.Getenv("EXCHANGESIM_DB_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Database.Enabled = b
		}
	}
	if val := os.Getenv("EXCHANGESIM_DB_HOST"); val != "" {
		cfg.Database.Host = val
	}
	if val := os.Getenv("EXCHANGESIM_DB_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Database.Port = i
		}
	}
	if val := os.Getenv("EXCHANGESIM_DB_USER"); val != "" {
		cfg.Database.User = val
	}
	if val := os.Getenv("EXCHANGESIM_DB_PASSWORD"); val != "" {
		cfg.Database.Password = val
	}
	if val := os.Getenv("EXCHANGESIM_DB_NAME"); val != "" {
		cfg.Database.DBName = val
	}
	if val := os.Getenv("EXCHANGESIM_DB_SSLMODE"); val != "" {
		cfg.Database.SSLMode = val
	}
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market must be configured")
	}

	for name, fee := range map[string]float64{
		"spot_maker_fee": c.Fees.SpotMakerFee,
		"spot_taker_fee": c.Fees.SpotTakerFee,
		"perp_maker_fee": c.Fees.PerpMakerFee,
		"perp_taker_fee": c.Fees.PerpTakerFee,
	} {
		if fee < 0 || fee > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	if c.MarketMonitor.APIPath == "" {
		return fmt.Errorf("market_monitor.api_path is required")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required when database is enabled")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required when database is enabled")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required when database is enabled")
		}
	}

	return nil
}

// GetDatabaseConnectionString builds a PostgreSQL connection string
// suitable for lib/pq.
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// APIBasePath returns the mounted REST prefix, e.g. "/api/v1".
func (c *Config) APIBasePath() string {
	return strings.TrimSuffix(c.APIPrefix, "/") + "/" + strings.TrimPrefix(c.APIVersion, "/")
}

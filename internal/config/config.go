// Package config loads runtime configuration from flags, environment,
// .env files and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"multichain-token-lab/internal/domain"
)

// EnvPrefix prefixes every environment variable, e.g. MULTICHAIN_POSTGRES_DSN.
const EnvPrefix = "MULTICHAIN"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config keys.
const (
	KeyIndexerEndpoint    = "indexer_endpoint"
	KeyIndexerConcurrency = "indexer_concurrency"
	KeyChains             = "chains"
	KeyPostgresDSN        = "postgres_dsn"
	KeyClickhouseDSN      = "clickhouse_dsn"
	KeyUseMemory          = "use_memory"
	KeyOverridesFile      = "overrides_file"
	KeySortField          = "sort_field"
	KeySortDirection      = "sort_direction"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
	KeyLogOutput          = "log_output"
	KeyMetricsAddr        = "metrics_addr"
	KeyInterval           = "interval"
)

// Config holds the application configuration.
type Config struct {
	// Indexer
	IndexerEndpoint    string
	IndexerConcurrency int
	Chains             []uint64

	// Storage
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool

	OverridesFile string
	SortOrder     domain.SortOrder

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// Serve
	MetricsAddr string
	Interval    time.Duration

	// ConfigFile is the file actually read, empty if none.
	ConfigFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyIndexerConcurrency, 4)
	v.SetDefault(KeySortField, string(domain.SortFieldTotalValuePooledUsd))
	v.SetDefault(KeySortDirection, string(domain.SortDesc))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogOutput, "stderr")
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyInterval, 15*time.Minute)
}

// Load reads configuration in order of precedence:
//  1. Flags in flags that were explicitly set (dashes match underscores)
//  2. Environment variables (MULTICHAIN_*)
//  3. .env.local, then .env
//  4. configFile, or ./multichain.yaml when configFile is empty
//  5. Defaults
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("multichain")
		// Missing default config file is not an error.
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	chains, err := parseChains(v.Get(KeyChains))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		IndexerEndpoint:    v.GetString(KeyIndexerEndpoint),
		IndexerConcurrency: v.GetInt(KeyIndexerConcurrency),
		Chains:             chains,
		PostgresDSN:        v.GetString(KeyPostgresDSN),
		ClickhouseDSN:      v.GetString(KeyClickhouseDSN),
		UseMemory:          v.GetBool(KeyUseMemory),
		OverridesFile:      v.GetString(KeyOverridesFile),
		SortOrder: domain.SortOrder{
			Field:     domain.SortField(v.GetString(KeySortField)),
			Direction: domain.SortDirection(strings.ToLower(v.GetString(KeySortDirection))),
		},
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
		LogOutput:   v.GetString(KeyLogOutput),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		Interval:    v.GetDuration(KeyInterval),
		ConfigFile:  v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Connectivity is not checked.
func (c *Config) Validate() error {
	if c.SortOrder.Field != domain.SortFieldTotalValuePooledUsd {
		return fmt.Errorf("%w: %s %q is not a sortable field", ErrInvalidConfig, KeySortField, c.SortOrder.Field)
	}
	if c.SortOrder.Direction != domain.SortAsc && c.SortOrder.Direction != domain.SortDesc {
		return fmt.Errorf("%w: %s must be asc or desc, got %q", ErrInvalidConfig, KeySortDirection, c.SortOrder.Direction)
	}
	if c.IndexerConcurrency < 1 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyIndexerConcurrency)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyInterval)
	}
	return nil
}

// RequireStorage checks that a storage backend is configured.
func (c *Config) RequireStorage() error {
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("%w: %s is required unless %s is set", ErrInvalidConfig, KeyPostgresDSN, KeyUseMemory)
	}
	return nil
}

// loadEnvFiles loads .env files. godotenv never overwrites variables that
// are already set, so .env.local is loaded first to take precedence.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// parseChains accepts "1,56 137" from the environment or a YAML list.
func parseChains(raw any) ([]uint64, error) {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' })
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		parts = []string{fmt.Sprint(val)}
	}

	chains := make([]uint64, 0, len(parts))
	seen := make(map[uint64]struct{}, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry %q: %v", ErrInvalidConfig, KeyChains, p, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		chains = append(chains, id)
	}
	return chains, nil
}

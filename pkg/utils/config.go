package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultHTTPAddr      = ":3000"
	defaultGRPCAddr      = ":3001"
	defaultProbeInterval = 15 * time.Second
	defaultSessionTTL    = 30 * time.Minute
	defaultLogLevel      = "info"

	defaultCatalogAddr = ":4748"
)

// WebConfig configures cmd/web. Values come from defaults, then the optional
// TOML file named by BOOKCATALOG_CONFIG, then the environment.
type WebConfig struct {
	APIBaseURL    string
	HTTPAddr      string
	GRPCAddr      string // empty disables the health service
	ProbeInterval time.Duration
	SessionTTL    time.Duration
	LogLevel      string
}

type webFile struct {
	APIBaseURL    *string `toml:"api_base_url"`
	HTTPAddr      *string `toml:"http_addr"`
	GRPCAddr      *string `toml:"grpc_addr"`
	ProbeInterval *string `toml:"probe_interval"`
	SessionTTL    *string `toml:"session_ttl"`
	LogLevel      *string `toml:"log_level"`
}

func LoadWebConfig() (WebConfig, error) {
	cfg := WebConfig{
		HTTPAddr:      defaultHTTPAddr,
		GRPCAddr:      defaultGRPCAddr,
		ProbeInterval: defaultProbeInterval,
		SessionTTL:    defaultSessionTTL,
		LogLevel:      defaultLogLevel,
	}

	if path := strings.TrimSpace(os.Getenv("BOOKCATALOG_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return WebConfig{}, err
		}
	}

	if v, ok := os.LookupEnv("BOOKCATALOG_API_BASE_URL"); ok {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("BOOKCATALOG_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	// set-but-empty turns gRPC off
	if v, ok := os.LookupEnv("BOOKCATALOG_GRPC_ADDR"); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("BOOKCATALOG_PROBE_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return WebConfig{}, fmt.Errorf("BOOKCATALOG_PROBE_INTERVAL: %w", err)
		}
		cfg.ProbeInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("BOOKCATALOG_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return WebConfig{}, fmt.Errorf("BOOKCATALOG_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("BOOKCATALOG_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return WebConfig{}, err
	}
	return cfg, nil
}

func (c *WebConfig) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var raw webFile
	if err := toml.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if raw.APIBaseURL != nil {
		c.APIBaseURL = strings.TrimSpace(*raw.APIBaseURL)
	}
	if raw.HTTPAddr != nil && strings.TrimSpace(*raw.HTTPAddr) != "" {
		c.HTTPAddr = strings.TrimSpace(*raw.HTTPAddr)
	}
	if raw.GRPCAddr != nil {
		c.GRPCAddr = strings.TrimSpace(*raw.GRPCAddr)
	}
	if raw.ProbeInterval != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.ProbeInterval))
		if err != nil {
			return fmt.Errorf("config probe_interval: %w", err)
		}
		c.ProbeInterval = d
	}
	if raw.SessionTTL != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.SessionTTL))
		if err != nil {
			return fmt.Errorf("config session_ttl: %w", err)
		}
		c.SessionTTL = d
	}
	if raw.LogLevel != nil && strings.TrimSpace(*raw.LogLevel) != "" {
		c.LogLevel = strings.TrimSpace(*raw.LogLevel)
	}
	return nil
}

func (c WebConfig) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("BOOKCATALOG_API_BASE_URL is required"))
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BOOKCATALOG_API_BASE_URL %q is not an absolute URL", c.APIBaseURL))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, errors.New("probe interval must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CatalogConfig configures cmd/catalog-api. The database path lives in
// database.DefaultConfig.
type CatalogConfig struct {
	HTTPAddr string
	LogLevel string
}

func LoadCatalogConfig() (CatalogConfig, error) {
	cfg := CatalogConfig{HTTPAddr: defaultCatalogAddr, LogLevel: defaultLogLevel}
	if v := strings.TrimSpace(os.Getenv("CATALOG_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return CatalogConfig{}, err
	}
	return cfg, nil
}

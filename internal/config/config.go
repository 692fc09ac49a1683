// Package config loads the stage's configuration: control-plane connection
// options, logging/metrics surface settings, and the rules files to stage at
// startup. Configuration is YAML-based with environment variable overrides,
// following the same load/override/default pipeline regardless of how the
// embedding application starts the stage.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// Stage configuration
// =============================================================================

// Config is the top-level configuration for an embedded stage instance.
type Config struct {
	Stage      StageConfig      `yaml:"stage"`
	Connection ConnectionConfig `yaml:"connection"`
	Rules      RulesConfig      `yaml:"rules"`
	Admin      AdminConfig      `yaml:"admin"`
	Identity   IdentityConfig   `yaml:"identity"`
}

// StageConfig identifies this stage instance to the control plane.
type StageConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// ConnectionConfig defines how the Agent reaches the control plane.
type ConnectionConfig struct {
	// Type selects the transport: "unix", "inet", or "none" (no control plane).
	Type string `yaml:"type"`
	// Address is a filesystem path for "unix", or a hostname/IP for "inet".
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// GRPCAddress, when set, additionally serves the control plane over gRPC
	// (the "RPC slot" reserved by the wire protocol) on this listen address.
	GRPCAddress string `yaml:"grpc_address"`
}

// RulesConfig points at the optional rules files staged at startup.
type RulesConfig struct {
	HousekeepingFile    string `yaml:"housekeeping_file"`
	DifferentiationFile string `yaml:"differentiation_file"`
	EnforcementFile     string `yaml:"enforcement_file"`
}

// AdminConfig configures the optional observability HTTP surface.
type AdminConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ListenAddress     string `yaml:"listen_address"`
	StatsStreamPeriod int    `yaml:"stats_stream_period_ms"`
}

// IdentityConfig configures SPIFFE-based workload authentication for
// IPv4 control-plane connections. Unused for "unix" connections.
type IdentityConfig struct {
	Enabled          bool   `yaml:"enabled"`
	TrustDomain      string `yaml:"trust_domain"`
	WorkloadAPIAddr  string `yaml:"workload_api_addr"`
	AllowedSPIFFEIDs []string `yaml:"allowed_spiffe_ids"`
}

// =============================================================================
// Singleton pattern with environment overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton configuration, lazily loading it
// from CONFIG_PATH (default "stage.yaml") on first use.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "stage.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// LoadConfig loads configuration from a YAML file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies the environment variables named in spec.md §6:
// an optional stage-name and stage-env variable, read once at startup.
func (c *Config) applyEnvOverrides() {
	c.Stage.Name = getEnv("PAIO_STAGE_NAME", c.Stage.Name)
	c.Stage.Env = getEnv("PAIO_STAGE_ENV", c.Stage.Env)

	c.Connection.Type = getEnv("PAIO_CONNECTION_TYPE", c.Connection.Type)
	c.Connection.Address = getEnv("PAIO_CONNECTION_ADDRESS", c.Connection.Address)
	if v := getEnvInt("PAIO_CONNECTION_PORT", 0); v != 0 {
		c.Connection.Port = v
	}
	c.Connection.GRPCAddress = getEnv("PAIO_GRPC_ADDRESS", c.Connection.GRPCAddress)

	c.Admin.Enabled = getEnvBool("PAIO_ADMIN_ENABLED", c.Admin.Enabled)
	c.Admin.ListenAddress = getEnv("PAIO_ADMIN_ADDRESS", c.Admin.ListenAddress)

	c.Identity.Enabled = getEnvBool("PAIO_IDENTITY_ENABLED", c.Identity.Enabled)
	c.Identity.TrustDomain = getEnv("PAIO_TRUST_DOMAIN", c.Identity.TrustDomain)
	c.Identity.WorkloadAPIAddr = getEnv("PAIO_WORKLOAD_API_ADDR", c.Identity.WorkloadAPIAddr)
	if ids := getEnv("PAIO_ALLOWED_SPIFFE_IDS", ""); ids != "" {
		c.Identity.AllowedSPIFFEIDs = splitCSV(ids)
	}
}

// applyDefaults fills in zero-valued fields with compile-time defaults, as
// required by spec.md §6 ("absence yields compile-time defaults").
func (c *Config) applyDefaults() {
	if c.Stage.Name == "" {
		c.Stage.Name = "paio-stage"
	}
	if c.Stage.Env == "" {
		c.Stage.Env = "production"
	}
	if c.Connection.Type == "" {
		c.Connection.Type = "unix"
	}
	if c.Connection.Address == "" {
		c.Connection.Address = "/tmp/paio-control.sock"
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = -1
	}
	if c.Admin.ListenAddress == "" {
		c.Admin.ListenAddress = ":9091"
	}
	if c.Admin.StatsStreamPeriod == 0 {
		c.Admin.StatsStreamPeriod = 1000
	}
	if c.Identity.TrustDomain == "" {
		c.Identity.TrustDomain = "spiffe://paio.local"
	}
}

// =============================================================================
// Helper functions
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// IsProduction reports whether the stage is configured for a production env.
func (c *Config) IsProduction() bool {
	return c.Stage.Env == "production"
}

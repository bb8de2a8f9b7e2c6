package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bind modes for the metadata store connector.
const (
	// BindModeParameterised sends placeholder values as driver arguments.
	BindModeParameterised = "parameterised"

	// BindModeRender substitutes escaped literals into the statement text.
	// Kept for deployments whose override templates rely on literal substitution.
	BindModeRender = "render"
)

// Attribute schema variants.
const (
	// SchemaDirect joins attributes straight to devices (attributes.device_id).
	SchemaDirect = "direct"

	// SchemaTemplate joins devices to a template and the template to attributes.
	SchemaTemplate = "template"
)

// Config is the root configuration structure for the sensor gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metadata MetadataConfig `yaml:"metadata"`
	Storage  StorageConfig  `yaml:"storage"`
}

// GatewayConfig identifies this gateway instance and controls ingest behaviour.
type GatewayConfig struct {
	ID string `yaml:"id"`

	// RequireAuth rejects ingest events whose token does not resolve to a user.
	RequireAuth bool `yaml:"require_auth"`

	// Concurrency is how many ingest events are processed at once.
	Concurrency int `yaml:"concurrency"`

	// QueueSize is how many events may wait for a worker before new ones
	// are dropped.
	QueueSize int `yaml:"queue_size"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	MaxOpenConn int    `yaml:"max_open_conns"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetadataConfig controls sensor metadata resolution and caching.
type MetadataConfig struct {
	// CacheTTL is how long a resolved attribute list stays valid.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// QueryTimeout bounds every individual store round trip.
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// BindMode is "parameterised" or "render".
	BindMode string `yaml:"bind_mode"`

	// Schema selects the default attribute-listing join: "direct" or "template".
	// Ignored when Queries.Attributes is set.
	Schema string `yaml:"schema"`

	// SingleFlight makes concurrent misses for one device share a single resolution.
	// When false, every miss runs its own resolution and the last cache write wins.
	SingleFlight bool `yaml:"single_flight"`

	// MaxFanout caps concurrent sub-queries per stage. 0 means unlimited.
	MaxFanout int `yaml:"max_fanout"`

	// Queries holds optional override templates using :identifier placeholders.
	Queries QueryOverrides `yaml:"queries"`
}

// QueryOverrides replaces the embedded default statements when non-empty.
type QueryOverrides struct {
	Auth        string `yaml:"auth"`
	Attributes  string `yaml:"attributes"`
	Converters  string `yaml:"converters"`
	Calibrators string `yaml:"calibrators"`
	Validators  string `yaml:"validators"`
	Storage     string `yaml:"storage"`
}

// StorageConfig controls persistence of processed device data.
type StorageConfig struct {
	// Enabled selects the upsert path; when false storage reports not supported.
	Enabled    bool   `yaml:"enabled"`
	Table      string `yaml:"table"`
	PrimaryKey string `yaml:"primary_key"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SENSORGW_SECTION_KEY
// For example: SENSORGW_DATABASE_PATH, SENSORGW_METADATA_CACHE_TTL
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ID:          "sensorgw-001",
			RequireAuth: true,
			Concurrency: 16,
			QueueSize:   256,
		},
		Database: DatabaseConfig{
			Path:        "./data/sensorgw.db",
			WALMode:     true,
			BusyTimeout: 5,
			MaxOpenConn: 4,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sensorgw",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metadata: MetadataConfig{
			CacheTTL:     60 * time.Second,
			QueryTimeout: 5 * time.Second,
			BindMode:     BindModeParameterised,
			Schema:       SchemaDirect,
		},
		Storage: StorageConfig{
			Table:      "device_readings",
			PrimaryKey: "device_id",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SENSORGW_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SENSORGW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SENSORGW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENSORGW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENSORGW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SENSORGW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("SENSORGW_METADATA_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SENSORGW_METADATA_CACHE_TTL: %w", err)
		}
		cfg.Metadata.CacheTTL = d
	}
	if v := os.Getenv("SENSORGW_METADATA_QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SENSORGW_METADATA_QUERY_TIMEOUT: %w", err)
		}
		cfg.Metadata.QueryTimeout = d
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ID == "" {
		errs = append(errs, "gateway.id is required")
	}
	if c.Gateway.Concurrency < 0 {
		errs = append(errs, "gateway.concurrency cannot be negative")
	}
	if c.Gateway.QueueSize < 0 {
		errs = append(errs, "gateway.queue_size cannot be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.MaxOpenConn < 0 {
		errs = append(errs, "database.max_open_conns cannot be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Metadata.CacheTTL < 0 {
		errs = append(errs, "metadata.cache_ttl cannot be negative")
	}
	if c.Metadata.QueryTimeout < 0 {
		errs = append(errs, "metadata.query_timeout cannot be negative")
	}
	switch c.Metadata.BindMode {
	case BindModeParameterised, BindModeRender:
	default:
		errs = append(errs, fmt.Sprintf("metadata.bind_mode %q must be %q or %q",
			c.Metadata.BindMode, BindModeParameterised, BindModeRender))
	}
	switch c.Metadata.Schema {
	case SchemaDirect, SchemaTemplate:
	default:
		errs = append(errs, fmt.Sprintf("metadata.schema %q must be %q or %q",
			c.Metadata.Schema, SchemaDirect, SchemaTemplate))
	}
	if c.Metadata.MaxFanout < 0 {
		errs = append(errs, "metadata.max_fanout cannot be negative")
	}

	if c.Storage.Enabled {
		if c.Storage.Table == "" {
			errs = append(errs, "storage.table is required when storage is enabled")
		}
		if c.Storage.PrimaryKey == "" {
			errs = append(errs, "storage.primary_key is required when storage is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

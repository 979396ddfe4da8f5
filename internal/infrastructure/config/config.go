package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Tuya climate bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tuya      TuyaConfig      `yaml:"tuya"`
}

// BridgeConfig identifies this bridge instance on the Gray Logic bus.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// TuyaConfig contains the gateway-facing settings shared by every device.
type TuyaConfig struct {
	// DevicesFile is the YAML file listing the air conditioners.
	DevicesFile string `yaml:"devices_file"`

	// TopicPrefix is the root of the gateway's MQTT topics.
	// Default: "tuya"
	TopicPrefix string `yaml:"topic_prefix"`

	// AckTimeout is how long a write waits for the gateway result, in seconds.
	// Default: 5
	AckTimeout int `yaml:"ack_timeout"`

	// SnapshotTimeout bounds a snapshot request, in seconds.
	// Default: 5
	SnapshotTimeout int `yaml:"snapshot_timeout"`

	// HealthInterval is the health publication period, in seconds.
	// Default: 30
	HealthInterval int `yaml:"health_interval"`

	// HistoryRetentionDays controls pruning of property history. 0 keeps everything.
	// Default: 30
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_TUYA_SECTION_KEY
// For example: GRAYLOGIC_TUYA_DATABASE_PATH, GRAYLOGIC_TUYA_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:   "tuya-bridge-01",
			Name: "Tuya climate bridge",
		},
		Database: DatabaseConfig{
			Path:        "./data/tuyabridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-tuya",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8091,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tuya: TuyaConfig{
			DevicesFile:          "configs/devices.yaml",
			TopicPrefix:          "tuya",
			AckTimeout:           5,
			SnapshotTimeout:      5,
			HealthInterval:       30,
			HistoryRetentionDays: 30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_TUYA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("GRAYLOGIC_TUYA_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_TUYA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_TUYA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := envInt("GRAYLOGIC_TUYA_MQTT_PORT"); v > 0 {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("GRAYLOGIC_TUYA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_TUYA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_TUYA_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := envInt("GRAYLOGIC_TUYA_API_PORT"); v > 0 {
		cfg.API.Port = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_TUYA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_TUYA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Tuya
	if v := os.Getenv("GRAYLOGIC_TUYA_DEVICES_FILE"); v != "" {
		cfg.Tuya.DevicesFile = v
	}
}

// envInt returns the integer value of an environment variable, or 0 if it is
// unset or not a number.
func envInt(name string) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return n
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.InfluxDB.Enabled {
		errs = append(errs, validateInfluxDB(c.InfluxDB)...)
	}

	errs = append(errs, validateLogging(c.Logging)...)
	errs = append(errs, validateTuya(c.Tuya)...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateInfluxDB(c InfluxDBConfig) []string {
	var errs []string
	if c.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Org == "" {
		errs = append(errs, "influxdb.org is required when influxdb is enabled")
	}
	if c.Bucket == "" {
		errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
	}
	return errs
}

func validateLogging(c LoggingConfig) []string {
	var errs []string
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn or error", c.Level))
	}
	switch c.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be json or text", c.Format))
	}
	return errs
}

func validateTuya(c TuyaConfig) []string {
	var errs []string
	if c.DevicesFile == "" {
		errs = append(errs, "tuya.devices_file is required")
	}
	if c.TopicPrefix == "" || strings.ContainsAny(c.TopicPrefix, "+#") {
		errs = append(errs, "tuya.topic_prefix must be a non-empty topic without wildcards")
	}
	if c.AckTimeout < 1 {
		errs = append(errs, "tuya.ack_timeout must be at least 1 second")
	}
	if c.SnapshotTimeout < 1 {
		errs = append(errs, "tuya.snapshot_timeout must be at least 1 second")
	}
	if c.HealthInterval < 1 {
		errs = append(errs, "tuya.health_interval must be at least 1 second")
	}
	if c.HistoryRetentionDays < 0 {
		errs = append(errs, "tuya.history_retention_days must not be negative")
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetAckTimeout returns the gateway write acknowledgement timeout.
func (c *Config) GetAckTimeout() time.Duration {
	return time.Duration(c.Tuya.AckTimeout) * time.Second
}

// GetSnapshotTimeout returns the gateway snapshot request timeout.
func (c *Config) GetSnapshotTimeout() time.Duration {
	return time.Duration(c.Tuya.SnapshotTimeout) * time.Second
}

// GetHealthInterval returns the health publication period.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Tuya.HealthInterval) * time.Second
}

// GetHistoryRetention returns how long property history is kept, or 0 for
// no pruning.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Tuya.HistoryRetentionDays) * 24 * time.Hour
}

package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default metric topic suffixes, appended to each device's mqttTopic.
const (
	DefaultTemperatureTopic = "temperature"
	DefaultHumidityTopic    = "humidity"
	DefaultBatteryTopic     = "battery"
)

// bindKeyLength is the length of a hex-encoded 128-bit bind key.
const bindKeyLength = 32

// Config is the root configuration structure for the bridge.
//
// The file shape follows the sensor bridge's historical config.json, so keys
// are camelCase. JSON files are accepted as-is because JSON is valid YAML.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Devices  []DeviceConfig `yaml:"devices"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig contains the broker URL, the metric topic suffixes and the
// options handed to the broker client.
type MQTTConfig struct {
	// URL is the broker URL, e.g. "mqtt://localhost:1883". Required.
	URL string `yaml:"url"`

	// Metric topic suffixes. Empty values fall back to the defaults.
	TemperatureTopic string `yaml:"temperatureTopic"`
	HumidityTopic    string `yaml:"humidityTopic"`
	BatteryTopic     string `yaml:"batteryTopic"`

	// ClientID identifies the bridge to the broker.
	// Default: "hygrobridge-" + hostname
	ClientID string `yaml:"clientId"`

	// Username and Password for broker authentication (optional).
	// WARNING: Never log Password. Use String() for safe logging.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// KeepAlive is the keepalive interval in seconds. Default: 60
	KeepAlive int `yaml:"keepalive"`

	// Clean requests a clean session. Default: true
	Clean bool `yaml:"clean"`

	// ReconnectPeriod is the delay between reconnect attempts in milliseconds.
	// 0 disables the client's own reconnect. Default: 1000
	ReconnectPeriod int `yaml:"reconnectPeriod"`

	// ConnectTimeout bounds a single connection attempt, in milliseconds.
	// Default: 30000
	ConnectTimeout int `yaml:"connectTimeout"`

	// QoS used for readings and status messages. Default: 0
	QoS int `yaml:"qos"`

	// StatusTopic enables a retained online/offline availability topic
	// with a Last Will. Empty disables it.
	StatusTopic string `yaml:"statusTopic"`
}

// String returns a string representation with password masked.
// Use this for logging to prevent credential exposure.
func (m MQTTConfig) String() string {
	password := ""
	if m.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("MQTTConfig{URL:%q, ClientID:%q, Username:%q, Password:%s, QoS:%d, KeepAlive:%d}",
		m.URL, m.ClientID, m.Username, password, m.QoS, m.KeepAlive)
}

// MarshalJSON implements json.Marshaler to redact password in JSON output.
func (m MQTTConfig) MarshalJSON() ([]byte, error) {
	type redacted MQTTConfig
	safe := redacted(m)
	if safe.Password != "" {
		safe.Password = "[REDACTED]"
	}
	return json.Marshal(safe)
}

// DeviceConfig describes one physical sensor. Immutable once loaded.
type DeviceConfig struct {
	// Address is the sensor's radio address (e.g. "A4:C1:38:12:34:56"). Required.
	Address string `yaml:"address"`

	// Name is the display name used in logs. Default: Address
	Name string `yaml:"name"`

	// MQTTTopic is the topic prefix readings are published under. Required.
	MQTTTopic string `yaml:"mqttTopic"`

	// BindKey decrypts encrypted advertisements (32 hex characters, optional).
	BindKey string `yaml:"bindKey"`
}

// BridgeConfig contains bridge identity settings.
type BridgeConfig struct {
	// ID identifies this bridge instance in stats and status messages.
	ID string `yaml:"id"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains the optional SQLite device status store settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"walMode"`
	BusyTimeout int    `yaml:"busyTimeout"`
}

// InfluxDBConfig contains the optional bridge statistics sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batchSize"`
	FlushInterval int    `yaml:"flushInterval"`

	// StatsInterval is how often bridge counters are written (seconds).
	StatsInterval int `yaml:"statsInterval"`
}

// Load reads configuration from a file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. File values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HYGROBRIDGE_SECTION_KEY
// For example: HYGROBRIDGE_MQTT_URL, HYGROBRIDGE_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the JSON or YAML configuration file
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
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			TemperatureTopic: DefaultTemperatureTopic,
			HumidityTopic:    DefaultHumidityTopic,
			BatteryTopic:     DefaultBatteryTopic,
			KeepAlive:        60,
			Clean:            true,
			ReconnectPeriod:  1000,
			ConnectTimeout:   30000,
			QoS:              0,
		},
		Bridge: BridgeConfig{
			ID: "hygrobridge",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path:        "./data/hygrobridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
			StatsInterval: 60,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HYGROBRIDGE_MQTT_URL"); v != "" {
		cfg.MQTT.URL = v
	}
	if v := os.Getenv("HYGROBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("HYGROBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("HYGROBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HYGROBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("HYGROBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// normalise fills values that fall back to defaults when left empty.
func (c *Config) normalise() {
	if c.MQTT.TemperatureTopic == "" {
		c.MQTT.TemperatureTopic = DefaultTemperatureTopic
	}
	if c.MQTT.HumidityTopic == "" {
		c.MQTT.HumidityTopic = DefaultHumidityTopic
	}
	if c.MQTT.BatteryTopic == "" {
		c.MQTT.BatteryTopic = DefaultBatteryTopic
	}
	if c.MQTT.ClientID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "local"
		}
		c.MQTT.ClientID = "hygrobridge-" + host
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	for i := range c.Devices {
		c.Devices[i].Address = strings.TrimSpace(c.Devices[i].Address)
		if c.Devices[i].Name == "" {
			c.Devices[i].Name = c.Devices[i].Address
		}
		c.Devices[i].MQTTTopic = strings.TrimRight(c.Devices[i].MQTTTopic, "/")
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateMQTT()...)
	errs = append(errs, c.validateDevices()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateStores()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validSchemes lists the broker URL schemes the client understands.
var validSchemes = map[string]bool{
	"mqtt": true, "tcp": true, "mqtts": true, "ssl": true, "tls": true, "ws": true, "wss": true,
}

// validateMQTT validates broker settings.
func (c *Config) validateMQTT() []string {
	var errs []string

	if c.MQTT.URL == "" {
		errs = append(errs, "mqtt.url is required")
	} else if u, err := url.Parse(c.MQTT.URL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Sprintf("mqtt.url %q is invalid", c.MQTT.URL))
	} else if !validSchemes[strings.ToLower(u.Scheme)] {
		errs = append(errs, fmt.Sprintf("mqtt.url scheme %q is not supported", u.Scheme))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive < 0 {
		errs = append(errs, "mqtt.keepalive must not be negative")
	}
	if c.MQTT.ReconnectPeriod < 0 {
		errs = append(errs, "mqtt.reconnectPeriod must not be negative")
	}
	if c.MQTT.ConnectTimeout < 0 {
		errs = append(errs, "mqtt.connectTimeout must not be negative")
	}
	for name, suffix := range map[string]string{
		"temperatureTopic": c.MQTT.TemperatureTopic,
		"humidityTopic":    c.MQTT.HumidityTopic,
		"batteryTopic":     c.MQTT.BatteryTopic,
	} {
		if strings.ContainsAny(suffix, "+#") {
			errs = append(errs, fmt.Sprintf("mqtt.%s must not contain wildcards", name))
		}
	}

	return errs
}

// validateDevices validates device configurations.
func (c *Config) validateDevices() []string {
	var errs []string

	if len(c.Devices) == 0 {
		errs = append(errs, "devices must have at least one entry")
	}

	seen := make(map[string]bool)
	for i, dev := range c.Devices {
		if dev.Address == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].address is required", i))
		} else {
			key := strings.ToLower(dev.Address)
			if seen[key] {
				errs = append(errs, fmt.Sprintf("devices[%d].address %q is duplicate", i, dev.Address))
			}
			seen[key] = true
		}

		if dev.MQTTTopic == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].mqttTopic is required", i))
		} else if strings.ContainsAny(dev.MQTTTopic, "+#") {
			errs = append(errs, fmt.Sprintf("devices[%d].mqttTopic must not contain wildcards", i))
		}

		if dev.BindKey != "" {
			if _, err := hex.DecodeString(dev.BindKey); err != nil || len(dev.BindKey) != bindKeyLength {
				errs = append(errs, fmt.Sprintf("devices[%d].bindKey must be %d hex characters", i, bindKeyLength))
			}
		}
	}

	return errs
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() []string {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level %q is invalid (use debug, info, warn, or error)", c.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid (use json or text)", c.Logging.Format))
	}

	return errs
}

// validateStores validates the optional database and InfluxDB sections.
func (c *Config) validateStores() []string {
	var errs []string

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
		if c.InfluxDB.StatsInterval < 1 {
			errs = append(errs, "influxdb.statsInterval must be at least 1 second")
		}
	}

	return errs
}

// GetKeepAlive returns the MQTT keepalive as a Duration.
func (m MQTTConfig) GetKeepAlive() time.Duration {
	return time.Duration(m.KeepAlive) * time.Second
}

// GetReconnectPeriod returns the MQTT reconnect period as a Duration.
func (m MQTTConfig) GetReconnectPeriod() time.Duration {
	return time.Duration(m.ReconnectPeriod) * time.Millisecond
}

// GetConnectTimeout returns the MQTT connect timeout as a Duration.
func (m MQTTConfig) GetConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeout) * time.Millisecond
}

// GetStatsInterval returns the stats reporting interval as a Duration.
func (i InfluxDBConfig) GetStatsInterval() time.Duration {
	return time.Duration(i.StatsInterval) * time.Second
}

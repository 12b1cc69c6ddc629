package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Search     SearchConfig     `json:"search"`
	Connection ConnectionConfig `json:"connection"`
	NATS       NATSConfig       `json:"nats"`
	Metrics    MetricsConfig    `json:"metrics"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig defines the WebSocket listener settings.
type ServerConfig struct {
	Host            string  `json:"host,omitempty"`
	Port            int     `json:"port"`
	Path            string  `json:"path"`
	ReadBufferSize  int     `json:"read_buffer_size,omitempty"`
	WriteBufferSize int     `json:"write_buffer_size,omitempty"`
	RateLimit       float64 `json:"rate_limit,omitempty"` // client messages per second per connection
	RateBurst       int     `json:"rate_burst,omitempty"`
}

// SearchConfig defines streaming search batching behavior.
type SearchConfig struct {
	BatchSize     int           `json:"batch_size"`    // results per search_batch, 1..100
	BatchTimeout  time.Duration `json:"batch_timeout"` // flush deadline from first buffered result
	MaxConcurrent int           `json:"max_concurrent,omitempty"`
	MaxResults    int           `json:"max_results,omitempty"` // cap on results per query, 0 = unlimited
}

// ConnectionConfig defines per-connection lifecycle settings.
type ConnectionConfig struct {
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	ClientTimeout     time.Duration `json:"client_timeout"`
	OutboundCapacity  int           `json:"outbound_capacity"`
	WriteTimeout      time.Duration `json:"write_timeout,omitempty"`
}

// NATSConfig defines the document update source connection.
type NATSConfig struct {
	Enabled        bool          `json:"enabled"`
	URLs           []string      `json:"urls,omitempty"`
	Subjects       []string      `json:"subjects,omitempty"`
	BufferCapacity int           `json:"buffer_capacity,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	Token          string        `json:"token,omitempty"`
}

// MetricsConfig defines the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig defines structured logging behavior.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range (1-65535)", c.Server.Port)
	}
	if c.Server.Path == "" || !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path %q must start with '/'", c.Server.Path)
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit cannot be negative")
	}

	if c.Search.BatchSize < 1 || c.Search.BatchSize > 100 {
		return fmt.Errorf("search.batch_size %d out of range (1-100)", c.Search.BatchSize)
	}
	if c.Search.BatchTimeout <= 0 {
		return errors.New("search.batch_timeout must be positive")
	}
	if c.Search.MaxConcurrent < 1 {
		return errors.New("search.max_concurrent must be at least 1")
	}
	if c.Search.MaxResults < 0 {
		return errors.New("search.max_results cannot be negative")
	}

	if c.Connection.HeartbeatInterval <= 0 {
		return errors.New("connection.heartbeat_interval must be positive")
	}
	if c.Connection.ClientTimeout <= c.Connection.HeartbeatInterval {
		return fmt.Errorf("connection.client_timeout %s must exceed heartbeat_interval %s",
			c.Connection.ClientTimeout, c.Connection.HeartbeatInterval)
	}
	if c.Connection.OutboundCapacity < 1 {
		return errors.New("connection.outbound_capacity must be at least 1")
	}
	if c.Connection.WriteTimeout <= 0 {
		return errors.New("connection.write_timeout must be positive")
	}

	if c.NATS.Enabled {
		if len(c.NATS.URLs) == 0 {
			return errors.New("nats.urls is required when NATS is enabled")
		}
		if len(c.NATS.Subjects) == 0 {
			return errors.New("nats.subjects is required when NATS is enabled")
		}
		if c.NATS.BufferCapacity < 1 {
			return errors.New("nats.buffer_capacity must be at least 1")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range (1-65535)", c.Metrics.Port)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	return nil
}

// Loader handles configuration loading with layers and overrides.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "LIVESEARCH",
	}
}

// AddLayer adds a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers.
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := l.getDefaults()

	// Load each layer and merge using map-based approach
	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg, err = l.mergeFromMap(cfg, rawConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
	}

	// Apply environment overrides
	l.applyEnvOverrides(cfg)

	// Validate if enabled
	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration.
func (l *Loader) getDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			RateLimit:       100,
			RateBurst:       200,
		},
		Search: SearchConfig{
			BatchSize:     10,
			BatchTimeout:  500 * time.Millisecond,
			MaxConcurrent: 256,
			MaxResults:    0,
		},
		Connection: ConnectionConfig{
			HeartbeatInterval: 10 * time.Second,
			ClientTimeout:     30 * time.Second,
			OutboundCapacity:  100,
			WriteTimeout:      10 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URLs:           []string{"nats://localhost:4222"},
			Subjects:       []string{"search.events.>"},
			BufferCapacity: 1024,
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map.
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	// Use secure file reading with validation
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	// Validate JSON depth to prevent DoS
	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	// Marshal the base config to JSON then to map
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	// Deep merge the maps
	mergedMap := l.deepMergeMaps(baseMap, override)

	// Convert back to Config
	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}

	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := l.getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}

	if val := l.getenv("SEARCH_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.Search.BatchSize = size
		}
	}
	if val := l.getenv("SEARCH_BATCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Search.BatchTimeout = d
		}
	}

	if val := l.getenv("NATS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.NATS.Enabled = enabled
		}
	}
	if val := l.getenv("NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := l.getenv("NATS_SUBJECTS"); val != "" {
		cfg.NATS.Subjects = strings.Split(val, ",")
	}
	if val := l.getenv("NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := l.getenv("NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := l.getenv("NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}

	if val := l.getenv("METRICS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if val := l.getenv("METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}

	if val := l.getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := l.getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

// getenv reads a prefixed environment variable, dropping values that fail
// basic validation.
func (l *Loader) getenv(key string) string {
	full := l.envPrefix + "_" + key
	val := os.Getenv(full)
	if err := validateEnvVar(full, val); err != nil {
		return ""
	}
	return val
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Use secure file writing with validation
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// durationValue parses a JSON duration that may be a string ("500ms") or a
// number (nanoseconds).
func durationValue(v any) (time.Duration, error) {
	switch d := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(d)
	case float64:
		return time.Duration(d), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

// UnmarshalJSON implements custom JSON unmarshaling for SearchConfig so
// batch_timeout accepts both "500ms" and nanosecond numbers.
func (s *SearchConfig) UnmarshalJSON(data []byte) error {
	type Alias SearchConfig
	aux := &struct {
		BatchTimeout any `json:"batch_timeout"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := durationValue(aux.BatchTimeout)
	if err != nil {
		return fmt.Errorf("search.batch_timeout: %w", err)
	}
	s.BatchTimeout = d
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for ConnectionConfig
// duration fields.
func (c *ConnectionConfig) UnmarshalJSON(data []byte) error {
	type Alias ConnectionConfig
	aux := &struct {
		HeartbeatInterval any `json:"heartbeat_interval"`
		ClientTimeout     any `json:"client_timeout"`
		WriteTimeout      any `json:"write_timeout"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if c.HeartbeatInterval, err = durationValue(aux.HeartbeatInterval); err != nil {
		return fmt.Errorf("connection.heartbeat_interval: %w", err)
	}
	if c.ClientTimeout, err = durationValue(aux.ClientTimeout); err != nil {
		return fmt.Errorf("connection.client_timeout: %w", err)
	}
	if c.WriteTimeout, err = durationValue(aux.WriteTimeout); err != nil {
		return fmt.Errorf("connection.write_timeout: %w", err)
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for NATSConfig duration
// fields.
func (n *NATSConfig) UnmarshalJSON(data []byte) error {
	type Alias NATSConfig
	aux := &struct {
		ReconnectWait any `json:"reconnect_wait"`
		*Alias
	}{
		Alias: (*Alias)(n),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := durationValue(aux.ReconnectWait)
	if err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	n.ReconnectWait = d
	return nil
}

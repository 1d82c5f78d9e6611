package rfdecode

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the pipeline configuration loaded from YAML.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Decoders   []DecoderConfig  `yaml:"decoders"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MessageLog MessageLogConfig `yaml:"message_log"`
	Feed       FeedConfig       `yaml:"feed"`
}

// InputConfig describes the external sample source.
type InputConfig struct {
	Path       string `yaml:"path"`        // file path, or "-" for stdin
	Format     string `yaml:"format"`      // "pcm16" (real audio) or "iq8" (unsigned 8-bit I/Q pairs)
	SampleRate int    `yaml:"sample_rate"` // Hz
	CenterFreq uint64 `yaml:"center_freq"` // Hz, tags emitted messages
	ChunkSize  int    `yaml:"chunk_size"`  // samples per delivered buffer (default 4096)
}

// DispatcherConfig tunes buffer routing.
type DispatcherConfig struct {
	QueueSize int `yaml:"queue_size"` // per-decoder queue depth (default 64)
}

// DecoderConfig enables one decoder with optional parameter overrides.
type DecoderConfig struct {
	ID     string                 `yaml:"id"`
	Params map[string]interface{} `yaml:"params,omitempty"`
}

// MQTTConfig contains message publishing settings.
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"` // e.g. tcp://localhost:1883
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"` // default "rfdecode"
	TLS         MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig contains optional TLS settings for the broker connection.
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // default ":9090"
}

// MessageLogConfig controls the on-disk message log.
type MessageLogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"` // zstd-compress the log
}

// FeedConfig controls the websocket message feed.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // default ":8081"
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	switch c.Input.Format {
	case "pcm16", "iq8":
	default:
		return fmt.Errorf("input.format must be pcm16 or iq8, got %q", c.Input.Format)
	}
	if c.Input.SampleRate <= 0 {
		return fmt.Errorf("input.sample_rate must be positive")
	}
	if len(c.Decoders) == 0 {
		return fmt.Errorf("at least one decoder must be configured")
	}
	for _, dc := range c.Decoders {
		if dc.ID == "" {
			return fmt.Errorf("decoder entry with empty id")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MessageLog.Enabled && c.MessageLog.Path == "" {
		return fmt.Errorf("message_log.path is required when message_log is enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Input.ChunkSize <= 0 {
		c.Input.ChunkSize = 4096
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = DefaultQueueSize
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "rfdecode"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Feed.Listen == "" {
		c.Feed.Listen = ":8081"
	}
}

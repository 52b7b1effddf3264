package bench

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"heartbench/waveform"
)

// Config is the bench configuration file.
type Config struct {
	Waveform WaveformConfig `json:"waveform"`
	Link     LinkConfig     `json:"link"`
	Monitor  MonitorConfig  `json:"monitor"`
}

// WaveformConfig selects the fitting method and the actuator envelope.
type WaveformConfig struct {
	Method         string            `json:"method"`
	SampleInterval float64           `json:"sample_interval"` // seconds
	Limits         waveform.Limits   `json:"limits"`
	Mapping        *waveform.Mapping `json:"mapping,omitempty"` // set for normalized waveforms
}

// LinkConfig describes the controller connection and the streaming policy.
type LinkConfig struct {
	Transport          string  `json:"transport"`         // "serial" or "tcp"
	Device             string  `json:"device,omitempty"`  // serial device path
	Baud               int     `json:"baud,omitempty"`    // serial baud rate
	Address            string  `json:"address,omitempty"` // tcp host:port
	TickPeriodMS       float64 `json:"tick_period_ms"`
	HandshakeTimeoutMS int     `json:"handshake_timeout_ms"`
	AckTimeoutMS       int     `json:"ack_timeout_ms"`
	RetryLimit         int     `json:"retry_limit"`
	RetryBackoffMS     int     `json:"retry_backoff_ms"`
}

// MonitorConfig wires the optional telemetry consumers. Empty fields
// disable the corresponding consumer.
type MonitorConfig struct {
	MQTTBroker  string `json:"mqtt_broker,omitempty"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
	WebAddr     string `json:"web_addr,omitempty"`
	RingSize    int    `json:"ring_size,omitempty"`
	RecordPath  string `json:"record_path,omitempty"`
}

const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["waveform", "link"],
  "properties": {
    "waveform": {
      "type": "object",
      "required": ["method", "limits"],
      "properties": {
        "method": {"enum": ["Lagrange", "CubicSpline"]},
        "sample_interval": {"type": "number", "exclusiveMinimum": 0},
        "limits": {
          "type": "object",
          "required": ["min_position", "max_position"],
          "properties": {
            "min_position": {"type": "number"},
            "max_position": {"type": "number"},
            "max_velocity": {"type": "number", "minimum": 0},
            "max_accel": {"type": "number", "minimum": 0}
          }
        },
        "mapping": {
          "type": "object",
          "required": ["frequency", "zero_pos", "limit_pos"],
          "properties": {
            "frequency": {"type": "number", "exclusiveMinimum": 0},
            "scale": {"type": "number"},
            "offset": {"type": "number"},
            "zero_pos": {"type": "number"},
            "limit_pos": {"type": "number"}
          }
        }
      }
    },
    "link": {
      "type": "object",
      "required": ["transport"],
      "properties": {
        "transport": {"enum": ["serial", "tcp"]},
        "device": {"type": "string"},
        "baud": {"type": "integer", "minimum": 1200},
        "address": {"type": "string"},
        "tick_period_ms": {"type": "number", "exclusiveMinimum": 0},
        "handshake_timeout_ms": {"type": "integer", "minimum": 1},
        "ack_timeout_ms": {"type": "integer", "minimum": 1},
        "retry_limit": {"type": "integer", "minimum": 0},
        "retry_backoff_ms": {"type": "integer", "minimum": 1}
      }
    },
    "monitor": {
      "type": "object",
      "properties": {
        "mqtt_broker": {"type": "string"},
        "topic_prefix": {"type": "string"},
        "web_addr": {"type": "string"},
        "ring_size": {"type": "integer", "minimum": 1},
        "record_path": {"type": "string"}
      }
    }
  }
}`

var compiledConfigSchema = jsonschema.MustCompileString("bench.schema.json", configSchema)

// LoadConfig parses and schema-validates a JSON configuration, then applies
// defaults for omitted fields.
func LoadConfig(jsonData []byte) (*Config, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := compiledConfigSchema.Validate(doc); err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

// LoadConfigFile reads a configuration file from disk.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *Config) {
	if config.Waveform.SampleInterval == 0 {
		config.Waveform.SampleInterval = 0.01 // 10 ms display grid
	}

	if config.Link.Baud == 0 {
		config.Link.Baud = 115200
	}
	if config.Link.TickPeriodMS == 0 {
		config.Link.TickPeriodMS = 10.0
	}
	if config.Link.HandshakeTimeoutMS == 0 {
		config.Link.HandshakeTimeoutMS = 2000
	}
	if config.Link.AckTimeoutMS == 0 {
		config.Link.AckTimeoutMS = 250
	}
	if config.Link.RetryLimit == 0 {
		config.Link.RetryLimit = 3
	}
	if config.Link.RetryBackoffMS == 0 {
		config.Link.RetryBackoffMS = 20
	}

	if config.Monitor.TopicPrefix == "" {
		config.Monitor.TopicPrefix = "heartbench"
	}
	if config.Monitor.RingSize == 0 {
		config.Monitor.RingSize = 4096
	}
}

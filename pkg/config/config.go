// Package config loads the stream daemon's YAML configuration file,
// mirroring the section layout of original_source/include/config.h's
// DaemonConfig.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type NatsConfig struct {
	URL                   string `yaml:"url"`
	AutoReconnect         bool   `yaml:"auto_reconnect"`
	ReconnectIntervalSecs int    `yaml:"reconnect_interval_seconds"`
	ConnectionTimeoutMs   int    `yaml:"connection_timeout_ms"`
}

type ControlConfig struct {
	BindAddress      string `yaml:"bind_address"`
	Port             int    `yaml:"port"`
	MaxMessageSizeMB int    `yaml:"max_message_size_mb"`
	TLSDomain        string `yaml:"tls_domain"`
}

type DefaultStreamConfig struct {
	Width               int      `yaml:"width"`
	Height              int      `yaml:"height"`
	FPS                 int      `yaml:"fps"`
	ConfidenceThreshold float32  `yaml:"confidence_threshold"`
	ClassFilter         []string `yaml:"class_filter"`
}

type AcceleratorConfig struct {
	DeviceID      string `yaml:"device_id"`
	BatchSize     int    `yaml:"batch_size"`
	PostProcessSo string `yaml:"post_process_so"`
	FunctionName  string `yaml:"function_name"`
}

type LogConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	EnableColor   bool   `yaml:"enable_color"`
	EnableTimestamp bool `yaml:"enable_timestamp"`
}

type PerformanceConfig struct {
	MaxStreams    int  `yaml:"max_streams"`
	BufferSize    int  `yaml:"buffer_size"`
	DropFrames    bool `yaml:"drop_frames"`
	RTSPLatencyMs int  `yaml:"rtsp_latency_ms"`
	RTSPTimeoutUs int  `yaml:"rtsp_timeout_us"`
	RTSPRetry     int  `yaml:"rtsp_retry"`
}

type ModelStorageConfig struct {
	ModelsDir string `yaml:"models_dir"`
}

// DaemonConfig is the top-level YAML document shape.
type DaemonConfig struct {
	Nats        NatsConfig          `yaml:"nats"`
	Control     ControlConfig       `yaml:"control"`
	Stream      DefaultStreamConfig `yaml:"stream"`
	Accelerator AcceleratorConfig   `yaml:"accelerator"`
	Log         LogConfig           `yaml:"log"`
	Performance PerformanceConfig   `yaml:"performance"`
	Models      ModelStorageConfig  `yaml:"models"`
}

// Default mirrors DaemonConfig::GetDefault()'s field defaults.
func Default() DaemonConfig {
	return DaemonConfig{
		Nats: NatsConfig{
			URL:                   "nats://localhost:4222",
			AutoReconnect:         true,
			ReconnectIntervalSecs: 5,
			ConnectionTimeoutMs:   5000,
		},
		Control: ControlConfig{
			BindAddress:      "0.0.0.0",
			Port:              50051,
			MaxMessageSizeMB: 4,
		},
		Stream: DefaultStreamConfig{
			Width:               1920,
			Height:              1080,
			FPS:                 30,
			ConfidenceThreshold: 0.5,
		},
		Accelerator: AcceleratorConfig{
			BatchSize:     1,
			PostProcessSo: "/usr/lib/hailo-post-processes/libyolo_hailortpp_post.so",
			FunctionName:  "yolov8",
		},
		Log: LogConfig{
			Level:           "info",
			EnableColor:     true,
			EnableTimestamp: true,
		},
		Performance: PerformanceConfig{
			MaxStreams:    4,
			BufferSize:    1,
			DropFrames:    true,
			RTSPTimeoutUs: 10_000_000,
			RTSPRetry:     3,
		},
		Models: ModelStorageConfig{
			ModelsDir: "/var/lib/stream-daemon/models",
		},
	}
}

// LoadFromString parses yamlContent over the defaults — any field absent
// from the document keeps its default value.
func LoadFromString(yamlContent []byte) (DaemonConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(yamlContent, &cfg); err != nil {
		return DaemonConfig{}, fmt.Errorf("invalid daemon config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

// LoadFromFile reads path and parses it as YAML.
func LoadFromFile(path string) (DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return LoadFromString(data)
}

// Validate mirrors DaemonConfig::Validate's sanity checks.
func (c DaemonConfig) Validate() error {
	if c.Performance.MaxStreams <= 0 {
		return fmt.Errorf("performance.max_streams must be > 0, got %d", c.Performance.MaxStreams)
	}
	if c.Stream.Width <= 0 || c.Stream.Height <= 0 {
		return fmt.Errorf("stream.width/height must be > 0, got %dx%d", c.Stream.Width, c.Stream.Height)
	}
	if c.Stream.ConfidenceThreshold < 0 || c.Stream.ConfidenceThreshold > 1 {
		return fmt.Errorf("stream.confidence_threshold must be in [0,1], got %v", c.Stream.ConfidenceThreshold)
	}
	if c.Accelerator.BatchSize <= 0 {
		return fmt.Errorf("accelerator.batch_size must be > 0, got %d", c.Accelerator.BatchSize)
	}
	return nil
}

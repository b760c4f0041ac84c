// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Load layers a YAML file and COINSUM_ environment variables on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/coinsum/internal/domain/valuetable"
)

// Device names accepted by the device key.
const (
	DeviceCPU = "cpu"
	DeviceGPU = "gpu"
)

// ClassConfig is one row of the class to value table.
type ClassConfig struct {
	Index int    `koanf:"index"`
	Label string `koanf:"label"`
	Value int    `koanf:"value"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Device is where the model runs: cpu or gpu.
	Device string `koanf:"device"`

	// HalfPrecision enables reduced precision inference on gpu.
	HalfPrecision bool `koanf:"half_precision"`

	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	IoUThreshold        float64 `koanf:"iou_threshold"`
	ClassAgnosticNMS    bool    `koanf:"class_agnostic_nms"`

	// MaxDetections caps the survivors per frame; 0 disables the cap.
	MaxDetections int `koanf:"max_detections"`

	// InputResolution is the square model input size. It is aligned up to
	// a multiple of Stride.
	InputResolution int `koanf:"input_resolution"`
	Stride          int `koanf:"stride"`

	// FrameQueueSize bounds the per-stream frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// MaxStreams caps concurrently running streams.
	MaxStreams int `koanf:"max_streams"`

	// DedupeSize is how many recent frame ids are remembered to reject
	// resubmissions; 0 remembers every id.
	DedupeSize int `koanf:"dedupe_size"`

	// Currency is appended to rendered totals, e.g. "16_yen".
	Currency string `koanf:"currency"`

	// Classes is the class to value table. Empty means the default yen table.
	Classes []ClassConfig `koanf:"classes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Device:              DeviceCPU,
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.4,
		MaxDetections:       300,
		InputResolution:     640,
		Stride:              32,
		FrameQueueSize:      8,
		MaxStreams:          16,
		DedupeSize:          4096,
		Currency:            "yen",
	}
}

// Validate checks ranges and normalises derived values in place.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	c.Device = strings.ToLower(strings.TrimSpace(c.Device))
	if c.Device != DeviceCPU && c.Device != DeviceGPU {
		return fmt.Errorf("%w: device %q must be cpu or gpu", ErrInvalidConfig, c.Device)
	}
	if !inUnit(c.ConfidenceThreshold) {
		return fmt.Errorf("%w: confidence_threshold %v outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if !inUnit(c.IoUThreshold) {
		return fmt.Errorf("%w: iou_threshold %v outside [0,1]", ErrInvalidConfig, c.IoUThreshold)
	}
	if c.MaxDetections < 0 {
		return fmt.Errorf("%w: max_detections must not be negative", ErrInvalidConfig)
	}
	if c.Stride <= 0 || c.InputResolution <= 0 {
		return fmt.Errorf("%w: input_resolution and stride must be positive", ErrInvalidConfig)
	}
	c.InputResolution = AlignToStride(c.InputResolution, c.Stride)
	if c.FrameQueueSize <= 0 {
		return fmt.Errorf("%w: frame_queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxStreams <= 0 {
		return fmt.Errorf("%w: max_streams must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	}
	if len(c.Classes) == 0 {
		c.Classes = defaultClasses()
	}
	if _, err := c.ClassTable(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ClassTable builds the immutable value table from Classes.
func (c *Config) ClassTable() (*valuetable.Table, error) {
	entries := make([]valuetable.Entry, len(c.Classes))
	for i, cl := range c.Classes {
		entries[i] = valuetable.Entry{Index: cl.Index, Label: cl.Label, Value: cl.Value}
	}
	return valuetable.New(entries)
}

// AlignToStride rounds size up to the nearest multiple of stride.
func AlignToStride(size, stride int) int {
	return int(math.Ceil(float64(size)/float64(stride))) * stride
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func defaultClasses() []ClassConfig {
	def := valuetable.Default()
	out := make([]ClassConfig, len(def))
	for i, e := range def {
		out[i] = ClassConfig{Index: e.Index, Label: e.Label, Value: e.Value}
	}
	return out
}

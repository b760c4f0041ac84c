package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/coinsum/internal/domain/model"
)

// Device is where the external model executes.
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// ParseDevice maps a configuration value to a Device.
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceCPU, "":
		return DeviceCPU, nil
	case DeviceGPU:
		return DeviceGPU, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}

// ExecutionContext describes the model runtime a controller drives.
type ExecutionContext struct {
	Device Device
	Half   bool
}

// GPU reports whether the model runs on an accelerator.
func (e ExecutionContext) GPU() bool { return e.Device == DeviceGPU }

// Model produces raw detections for a preprocessed frame.
type Model interface {
	Infer(ctx context.Context, f model.Frame) ([]model.RawDetection, error)
}

// Reinitializer is implemented by models that keep shape-dependent buffers.
// The controller calls it before inference when the input shape changes on a
// GPU context, and once before the first frame.
type Reinitializer interface {
	Reinitialize(ctx context.Context, shape model.Shape) error
}

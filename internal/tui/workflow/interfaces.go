package workflow

import (
	"context"

	"github.com/alkime/voiceprompt/internal/audio"
)

// DeviceSelector grants capture access and records the chosen device.
type DeviceSelector interface {
	RequestPermission(ctx context.Context) ([]audio.Device, error)
	SelectDevice(id string) error
}

// Recorder is the capture state machine driven by the recording phase.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
	State() audio.State
	Recording() *audio.Recording
	StopReason() error
}

// Runner drives a recording through the remote pipeline.
type Runner interface {
	Run(ctx context.Context, rec *audio.Recording) error
}

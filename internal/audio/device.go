package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/voiceprompt/pkg/collections"
)

// Sentinel errors reported by the device manager.
var (
	ErrPermissionDenied  = errors.New("capture permission denied")
	ErrNoDeviceAvailable = errors.New("no capture device available")
	ErrUnknownDevice     = errors.New("unknown capture device")
	ErrDeviceBusy        = errors.New("capture device already streaming")
	ErrNotOpen           = errors.New("capture access not granted yet")
)

// Device is an input device as reported by the platform.
type Device struct {
	ID        string
	Label     string
	IsDefault bool
	// Formats are the device's native formats. Capture streams convert to the
	// requested Format, so these are informational.
	Formats []NativeFormat
}

// NativeFormat is one layout a device produces without conversion.
type NativeFormat struct {
	SampleSizeBytes int
	Channels        int
	SampleRate      int
}

func (f NativeFormat) String() string {
	return fmt.Sprintf("%dbit/%dHz/%dch", f.SampleSizeBytes*8, f.SampleRate, f.Channels)
}

// Platform opens capture access to the host audio system.
type Platform interface {
	// Open requests capture access. Implementations return an error wrapping
	// ErrPermissionDenied when the host refuses access.
	Open(ctx context.Context) (Session, error)
}

// Session is an open handle on the host audio system.
type Session interface {
	// Devices lists the capture devices currently visible.
	Devices(ctx context.Context) ([]Device, error)

	// OpenStream allocates a capture stream on the given device. onData is
	// invoked from the backend's audio thread with S16LE PCM; the slice is
	// only valid for the duration of the call.
	OpenStream(deviceID string, format Format, onData func(pcm []byte)) (Stream, error)

	Close() error
}

// Stream is an allocated capture stream.
type Stream interface {
	Start() error
	// Stop halts capture. No onData calls happen after Stop returns.
	Stop() error
	// Close releases the hardware. Safe to call more than once.
	Close()
}

// Manager requests capture permission, enumerates input devices and tracks
// the user's device selection. It owns the platform session and hands out at
// most one capture stream at a time.
type Manager struct {
	platform Platform

	mu        sync.Mutex
	session   Session
	devices   []Device
	selected  string
	streaming bool
}

// NewManager creates a device manager over the given platform.
func NewManager(platform Platform) *Manager {
	return &Manager{platform: platform}
}

// RequestPermission asks the platform for capture access and enumerates the
// available input devices. The first successful call opens a session that
// stays open until Close.
func (m *Manager) RequestPermission(ctx context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.session
	opened := false

	if session == nil {
		s, err := m.platform.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture session: %w", err)
		}
		session = s
		opened = true
	}

	// release anything we opened on the way out if enumeration fails
	discard := func() {
		if !opened {
			return
		}
		if err := session.Close(); err != nil {
			slog.Warn("failed to close capture session", "error", err)
		}
	}

	devices, err := session.Devices(ctx)
	if err == nil && len(devices) == 0 {
		err = ErrNoDeviceAvailable
	}

	if err != nil {
		discard()
		// a previous enumeration no longer describes the hardware
		m.devices = nil
		m.selected = ""

		if errors.Is(err, ErrNoDeviceAvailable) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	m.session = session
	m.devices = devices

	if _, ok := m.lookup(m.selected); !ok {
		m.selected = ""
	}

	slog.Debug("capture devices enumerated", "count", len(devices))

	return append([]Device(nil), devices...), nil
}

// Devices returns the devices from the last successful enumeration.
func (m *Manager) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Device(nil), m.devices...)
}

// SelectDevice records the device later capture calls use.
func (m *Manager) SelectDevice(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}

	m.selected = id

	return nil
}

// SelectDefault selects the platform default device, or the first device if
// none is flagged as default.
func (m *Manager) SelectDefault() (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.devices) == 0 {
		return Device{}, ErrNoDeviceAvailable
	}

	dev, ok := collections.Find(m.devices, func(d Device) bool { return d.IsDefault })
	if !ok {
		dev = m.devices[0]
	}

	m.selected = dev.ID

	return dev, nil
}

// Selected returns the currently selected device.
func (m *Manager) Selected() (Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selected == "" {
		return Device{}, false
	}

	return m.lookup(m.selected)
}

// OpenStream opens a capture stream on the selected device. Only one stream
// may be open at a time; the returned stream's Close frees the slot.
func (m *Manager) OpenStream(format Format, onData func(pcm []byte)) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNotOpen
	}

	if m.selected == "" {
		return nil, ErrNoDeviceSelected
	}

	if m.streaming {
		return nil, ErrDeviceBusy
	}

	stream, err := m.session.OpenStream(m.selected, format, onData)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}

	m.streaming = true

	return &managedStream{Stream: stream, release: m.releaseStream}, nil
}

// Close releases the platform session. Devices must be re-enumerated with
// RequestPermission before capturing again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	err := m.session.Close()
	m.session = nil
	m.devices = nil
	m.selected = ""

	if err != nil {
		return fmt.Errorf("failed to close capture session: %w", err)
	}

	return nil
}

func (m *Manager) releaseStream() {
	m.mu.Lock()
	m.streaming = false
	m.mu.Unlock()
}

func (m *Manager) lookup(id string) (Device, bool) {
	return collections.Find(m.devices, func(d Device) bool { return d.ID == id })
}

// managedStream frees the manager's stream slot once the hardware is released.
type managedStream struct {
	Stream
	release func()
	once    sync.Once
}

func (s *managedStream) Close() {
	s.once.Do(func() {
		s.Stream.Close()
		s.release()
	})
}

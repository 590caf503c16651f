package audio

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alkime/voiceprompt/pkg/collections"
	"github.com/gen2brain/malgo"
)

// MalgoPlatform captures through miniaudio.
type MalgoPlatform struct{}

// NewMalgoPlatform returns the miniaudio-backed platform.
func NewMalgoPlatform() *MalgoPlatform {
	return &MalgoPlatform{}
}

// Open initializes a miniaudio context. On systems that gate microphone
// access (macOS, some sandboxed Linux setups) a refusal surfaces here or on
// the first enumeration.
func (p *MalgoPlatform) Open(_ context.Context) (Session, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("malgo audio device log", "msg", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, classifyMalgoErr("failed to initialize malgo context", err)
	}

	return &malgoSession{mgCtx: mgCtx, ids: map[string]malgo.DeviceID{}}, nil
}

type malgoSession struct {
	mu    sync.Mutex
	mgCtx *malgo.AllocatedContext
	ids   map[string]malgo.DeviceID
}

func (s *malgoSession) Devices(_ context.Context) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgCtx == nil {
		return nil, ErrNotOpen
	}

	infos, err := s.mgCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, classifyMalgoErr("failed to get capture devices", err)
	}

	devices := collections.Apply(infos, malgoDeviceInfoToDevice)
	for i, info := range infos {
		s.ids[devices[i].ID] = info.ID
	}

	return devices, nil
}

func (s *malgoSession) OpenStream(deviceID string, format Format, onData func(pcm []byte)) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgCtx == nil {
		return nil, ErrNotOpen
	}

	id, ok := s.ids[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = malgo.FormatS16
	devCnf.Capture.Channels = uint32(format.Channels) //nolint:gosec // validated by Format
	devCnf.Capture.DeviceID = id.Pointer()
	devCnf.SampleRate = uint32(format.SampleRate) //nolint:gosec // validated by Format

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			onData(samples)
		},
	}

	mgDevice, err := malgo.InitDevice(s.mgCtx.Context, devCnf, callbacks)
	if err != nil {
		return nil, classifyMalgoErr("failed to initialize malgo device", err)
	}

	return &malgoStream{mgDevice: mgDevice}, nil
}

func (s *malgoSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgCtx == nil {
		return nil
	}

	err := s.mgCtx.Uninit()
	s.mgCtx.Free()
	s.mgCtx = nil

	if err != nil {
		return fmt.Errorf("failed to uninitialize malgo context: %w", err)
	}

	return nil
}

type malgoStream struct {
	mu       sync.Mutex
	mgDevice *malgo.Device
}

func (s *malgoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgDevice == nil {
		return fmt.Errorf("device nil. has the stream been closed?")
	}

	if s.mgDevice.IsStarted() {
		// noop
		return nil
	}

	if err := s.mgDevice.Start(); err != nil {
		return classifyMalgoErr("failed to start malgo device", err)
	}

	return nil
}

// Stop blocks until miniaudio has delivered its last callback.
func (s *malgoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgDevice == nil || !s.mgDevice.IsStarted() {
		// noop
		return nil
	}

	if err := s.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (s *malgoStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mgDevice == nil {
		return
	}

	s.mgDevice.Uninit()
	s.mgDevice = nil
}

func malgoDeviceInfoToDevice(mdi malgo.DeviceInfo) Device {
	// only the first FormatCount entries are filled in
	native := mdi.Formats[:min(int(mdi.FormatCount), len(mdi.Formats))]
	formats := collections.Apply(native, func(mf malgo.DataFormat) NativeFormat {
		return NativeFormat{
			SampleSizeBytes: malgo.SampleSizeInBytes(mf.Format),
			Channels:        int(mf.Channels),
			SampleRate:      int(mf.SampleRate),
		}
	})

	id := mdi.ID
	key := hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
	if key == "" {
		key = "default"
	}

	return Device{
		ID:        key,
		Label:     mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

// classifyMalgoErr maps miniaudio's access-denied results onto
// ErrPermissionDenied. malgo reports results as plain errors, so the match
// is on the miniaudio message text.
func classifyMalgoErr(msg string, err error) error {
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "access denied") || strings.Contains(text, "permission") {
		return fmt.Errorf("%s: %w: %w", msg, ErrPermissionDenied, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

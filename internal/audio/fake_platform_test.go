package audio_test

import (
	"context"
	"errors"
	"sync"

	"github.com/alkime/voiceprompt/internal/audio"
)

// fakePlatform is an in-memory capture backend.
type fakePlatform struct {
	mu        sync.Mutex
	openErr   error
	devices   []audio.Device
	listErr   error
	streamErr error
	sessions  []*fakeSession
}

func (p *fakePlatform) Open(_ context.Context) (audio.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openErr != nil {
		return nil, p.openErr
	}

	s := &fakeSession{platform: p}
	p.sessions = append(p.sessions, s)

	return s, nil
}

func (p *fakePlatform) lastSession() *fakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.sessions) == 0 {
		return nil
	}

	return p.sessions[len(p.sessions)-1]
}

type fakeSession struct {
	platform *fakePlatform

	mu      sync.Mutex
	closed  bool
	streams []*fakeStream
}

func (s *fakeSession) Devices(_ context.Context) ([]audio.Device, error) {
	if s.platform.listErr != nil {
		return nil, s.platform.listErr
	}

	return s.platform.devices, nil
}

func (s *fakeSession) OpenStream(deviceID string, format audio.Format, onData func([]byte)) (audio.Stream, error) {
	if s.platform.streamErr != nil {
		return nil, s.platform.streamErr
	}

	st := &fakeStream{deviceID: deviceID, format: format, onData: onData}

	s.mu.Lock()
	s.streams = append(s.streams, st)
	s.mu.Unlock()

	return st, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *fakeSession) lastStream() *fakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.streams) == 0 {
		return nil
	}

	return s.streams[len(s.streams)-1]
}

// fakeStream delivers PCM to the recorder when the test calls feed.
type fakeStream struct {
	deviceID string
	format   audio.Format
	onData   func([]byte)
	stopErr  error

	mu      sync.Mutex
	started bool
	stopped bool
	closes  int
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true

	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	return s.stopErr
}

func (s *fakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
}

func (s *fakeStream) released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes > 0
}

func (s *fakeStream) feed(pcm []byte) {
	s.onData(pcm)
}

var errAccess = errors.New("miniaudio: access denied")

func twoMics() []audio.Device {
	return []audio.Device{
		{ID: "mic-a", Label: "Built-in Microphone"},
		{ID: "mic-b", Label: "USB Headset", IsDefault: true},
	}
}

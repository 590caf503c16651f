package workflow

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	intervl, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		intervl: 100 * time.Millisecond,
		timeout: 3 * time.Second,
	}
}

func (o outputChecker) check(t *testing.T, tm *teatest.TestModel, checkFunc func(buf []byte) bool) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), checkFunc,
		teatest.WithCheckInterval(o.intervl),
		teatest.WithDuration(o.timeout))
}

func (o outputChecker) checkString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	o.check(t, tm, func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	})
}

// checkAll waits until every substring has shown up in one frame. The
// renderer only repaints changed lines, so checks that consume the same
// frame must be combined.
func (o outputChecker) checkAll(t *testing.T, tm *teatest.TestModel, substrs ...string) {
	t.Helper()
	o.check(t, tm, func(buf []byte) bool {
		for _, s := range substrs {
			if !bytes.Contains(buf, []byte(s)) {
				return false
			}
		}
		return true
	})
}

// mockSelector implements DeviceSelector for testing.
type mockSelector struct {
	mu       sync.Mutex
	devices  []audio.Device
	errs     []error // returned by successive RequestPermission calls
	calls    int
	selected string
}

func (m *mockSelector) RequestPermission(_ context.Context) ([]audio.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	return m.devices, nil
}

func (m *mockSelector) SelectDevice(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selected = id
	return nil
}

func (m *mockSelector) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.selected
}

// mockRecorder implements Recorder for testing. Stop produces next.
type mockRecorder struct {
	mu       sync.Mutex
	state    audio.State
	rec      *audio.Recording
	next     *audio.Recording
	reason   error
	startErr error
	starts   int
}

func (m *mockRecorder) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}

	m.starts++
	m.state = audio.StateRecording
	m.rec = nil
	m.reason = nil

	return nil
}

func (m *mockRecorder) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finishLocked(nil)
	return nil
}

// autoStop ends the capture as a limit would.
func (m *mockRecorder) autoStop(reason error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finishLocked(reason)
}

func (m *mockRecorder) finishLocked(reason error) {
	if m.state != audio.StateRecording {
		return
	}

	m.state = audio.StateReady
	m.rec = m.next
	m.reason = reason
}

func (m *mockRecorder) State() audio.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *mockRecorder) Recording() *audio.Recording {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rec
}

func (m *mockRecorder) StopReason() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reason
}

// mockCappedDial implements uictl.CappedDial[int64] for testing.
type mockCappedDial struct {
	current, max int64
}

func (m *mockCappedDial) Read() int64         { return m.current }
func (m *mockCappedDial) Cap() (int64, int64) { return m.current, m.max }

// mockLevels implements uictl.Levels[int16] for testing.
type mockLevels struct {
	samples []int16
}

func (m *mockLevels) Read() []int16 { return m.samples }

func testRecording() *audio.Recording {
	return audio.NewRecording([]byte("ID3 fake mp3"), audio.MimeTypeMP3, 2*time.Second)
}

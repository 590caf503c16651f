package audio_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone returns n mono S16LE samples of a constant value.
func tone(n int, v int16) []byte {
	var buf bytes.Buffer
	for range n {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// newArmedRecorder returns a recorder over a fake platform with a device
// already selected.
func newArmedRecorder(t *testing.T, config audio.RecorderConfig) (*audio.Recorder, *fakePlatform) {
	t.Helper()

	platform := &fakePlatform{devices: twoMics()}
	mgr := audio.NewManager(platform)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err := mgr.RequestPermission(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.SelectDevice("mic-a"))

	rec, err := audio.NewRecorder(mgr, config)
	require.NoError(t, err)

	return rec, platform
}

func TestNewRecorder_InvalidConfig(t *testing.T) {
	t.Parallel()

	mgr := audio.NewManager(&fakePlatform{})

	_, err := audio.NewRecorder(nil, audio.RecorderConfig{})
	require.Error(t, err)

	_, err = audio.NewRecorder(mgr, audio.RecorderConfig{Format: audio.Format{SampleRate: 16000, Channels: 3}})
	require.Error(t, err)

	_, err = audio.NewRecorder(mgr, audio.RecorderConfig{MaxBytes: -1})
	require.Error(t, err)
}

func TestRecorder_StartWithoutDevice(t *testing.T) {
	t.Parallel()

	mgr := audio.NewManager(&fakePlatform{devices: twoMics()})
	rec, err := audio.NewRecorder(mgr, audio.RecorderConfig{})
	require.NoError(t, err)

	require.ErrorIs(t, rec.Arm(), audio.ErrNoDeviceSelected)
	require.ErrorIs(t, rec.Start(context.Background()), audio.ErrNoDeviceSelected)
	assert.Equal(t, audio.StateIdle, rec.State())
}

func TestRecorder_CaptureLifecycle(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{MimeType: audio.MimeTypeWAV})

	assert.Equal(t, audio.StateIdle, rec.State())
	require.NoError(t, rec.Arm())
	assert.Equal(t, audio.StateArmed, rec.State())

	require.NoError(t, rec.Start(context.Background()))
	assert.Equal(t, audio.StateRecording, rec.State())
	require.ErrorIs(t, rec.Start(context.Background()), audio.ErrAlreadyRecording)

	stream := platform.lastSession().lastStream()
	require.NotNil(t, stream)
	assert.Equal(t, "mic-a", stream.deviceID)

	pcm := tone(1600, 1000) // 100ms
	stream.feed(pcm[:1600])
	stream.feed(pcm[1600:])

	require.NoError(t, rec.Stop())
	assert.Equal(t, audio.StateReady, rec.State())
	assert.True(t, stream.released())
	assert.NoError(t, rec.StopReason())

	recording := rec.Recording()
	require.NotNil(t, recording)
	assert.Equal(t, audio.MimeTypeWAV, recording.MimeType())
	assert.Equal(t, 44+len(pcm), recording.Len())
	assert.Equal(t, pcm, recording.Data()[44:])
	assert.Equal(t, 100*time.Millisecond, recording.DurationHint())
	assert.Equal(t, "recording.wav", recording.Filename())
	assert.Equal(t, int64(len(pcm)), rec.BytesCaptured())
	assert.NotEmpty(t, rec.Levels(16))
}

func TestRecorder_StopWithoutAudioReleasesDevice(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{})

	require.NoError(t, rec.Start(context.Background()))
	stream := platform.lastSession().lastStream()

	require.NoError(t, rec.Stop())

	assert.True(t, stream.released())
	assert.Equal(t, audio.StateReady, rec.State())
	require.NotNil(t, rec.Recording())
	assert.True(t, rec.Recording().Empty())

	// the stream slot is free again
	require.NoError(t, rec.Start(context.Background()))
	require.NoError(t, rec.Stop())
}

func TestRecorder_StopReleasesEvenWhenStreamStopFails(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{MimeType: audio.MimeTypeWAV})

	require.NoError(t, rec.Start(context.Background()))
	stream := platform.lastSession().lastStream()
	stream.stopErr = errors.New("device unplugged")
	stream.feed(tone(10, 1))

	err := rec.Stop()
	require.ErrorContains(t, err, "device unplugged")

	assert.True(t, stream.released())
	assert.Equal(t, audio.StateReady, rec.State())
	assert.Equal(t, 44+20, rec.Recording().Len())
}

func TestRecorder_StopOutsideRecordingIsNoop(t *testing.T) {
	t.Parallel()

	rec, _ := newArmedRecorder(t, audio.RecorderConfig{})

	require.NoError(t, rec.Stop())
	assert.Equal(t, audio.StateIdle, rec.State())
	assert.Nil(t, rec.Recording())
}

func TestRecorder_UnsupportedFormatOpensNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config audio.RecorderConfig
	}{
		{
			name:   "unknown mime",
			config: audio.RecorderConfig{MimeType: "audio/ogg"},
		},
		{
			name:   "mp3 at odd rate",
			config: audio.RecorderConfig{Format: audio.Format{SampleRate: 17000, Channels: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, platform := newArmedRecorder(t, tt.config)

			err := rec.Start(context.Background())
			require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
			assert.Nil(t, platform.lastSession().lastStream())
			assert.NotEqual(t, audio.StateRecording, rec.State())
			assert.Nil(t, rec.Recording())
		})
	}
}

func TestRecorder_NewCaptureDiscardsPrevious(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{MimeType: audio.MimeTypeWAV})

	require.NoError(t, rec.Start(context.Background()))
	platform.lastSession().lastStream().feed(tone(100, 5))
	require.NoError(t, rec.Stop())

	first := rec.Recording()
	require.NotNil(t, first)

	require.NoError(t, rec.Arm())
	assert.Nil(t, rec.Recording())

	require.NoError(t, rec.Start(context.Background()))
	platform.lastSession().lastStream().feed(tone(10, 7))
	require.NoError(t, rec.Stop())

	second := rec.Recording()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 44+200, first.Len(), "earlier recording is untouched")
	assert.Equal(t, 44+20, second.Len())
}

func TestRecorder_MaxBytesStopsCapture(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{
		MimeType: audio.MimeTypeWAV,
		MaxBytes: 100,
	})

	require.NoError(t, rec.Start(context.Background()))
	stream := platform.lastSession().lastStream()
	stream.feed(tone(80, 3))

	require.Eventually(t, func() bool {
		return rec.State() == audio.StateReady
	}, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, rec.StopReason(), audio.ErrMaxBytesReached)
	assert.True(t, stream.released())
	assert.Equal(t, 44+160, rec.Recording().Len())
	assert.Equal(t, int64(100), rec.MaxBytes())
}

func TestRecorder_MaxDurationStopsCapture(t *testing.T) {
	t.Parallel()

	rec, _ := newArmedRecorder(t, audio.RecorderConfig{
		ChunkInterval: 10 * time.Millisecond,
		MaxDuration:   50 * time.Millisecond,
	})

	require.NoError(t, rec.Start(context.Background()))

	require.Eventually(t, func() bool {
		return rec.State() == audio.StateReady
	}, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, rec.StopReason(), audio.ErrMaxDurationReached)
}

func TestRecorder_ContextCancelStopsCapture(t *testing.T) {
	t.Parallel()

	rec, platform := newArmedRecorder(t, audio.RecorderConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rec.Start(ctx))
	stream := platform.lastSession().lastStream()

	cancel()

	require.Eventually(t, func() bool {
		return rec.State() == audio.StateReady
	}, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, rec.StopReason(), context.Canceled)
	assert.True(t, stream.released())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", audio.StateIdle.String())
	assert.Equal(t, "ready", audio.StateReady.String())
	assert.Equal(t, "state(9)", audio.State(9).String())
}

func TestRecorder_CapturesConfiguredFormatWhateverTheDeviceNativeFormat(t *testing.T) {
	t.Parallel()

	platform := &fakePlatform{devices: []audio.Device{{
		ID:      "mic-float",
		Label:   "Studio Interface",
		Formats: []audio.NativeFormat{{SampleSizeBytes: 4, Channels: 2, SampleRate: 48000}},
	}}}
	mgr := audio.NewManager(platform)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err := mgr.RequestPermission(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.SelectDevice("mic-float"))

	rec, err := audio.NewRecorder(mgr, audio.RecorderConfig{MimeType: audio.MimeTypeWAV})
	require.NoError(t, err)

	require.NoError(t, rec.Start(context.Background()))

	// the stream is asked for the configured layout; the backend converts
	stream := platform.lastSession().lastStream()
	require.NotNil(t, stream)
	assert.Equal(t, audio.DefaultFormat(), stream.format)

	stream.feed(tone(160, 500))
	require.NoError(t, rec.Stop())
	assert.Equal(t, 44+320, rec.Recording().Len())
}

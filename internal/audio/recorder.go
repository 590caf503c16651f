package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/voiceprompt/pkg/channels"
)

// Sentinel errors reported by the recorder.
var (
	ErrNoDeviceSelected   = errors.New("no capture device selected")
	ErrUnsupportedFormat  = errors.New("unsupported recording format")
	ErrAlreadyRecording   = errors.New("recording already in progress")
	ErrMaxDurationReached = errors.New("max duration reached")
	ErrMaxBytesReached    = errors.New("max bytes reached")
)

const (
	DefaultChunkInterval = 250 * time.Millisecond

	// dataSendTimeout bounds how long the audio thread waits on a stalled collector.
	dataSendTimeout = time.Second
)

// State is the recorder's position in its capture lifecycle.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StreamOpener is the slice of the device manager the recorder needs.
type StreamOpener interface {
	Selected() (Device, bool)
	OpenStream(format Format, onData func(pcm []byte)) (Stream, error)
}

// RecorderConfig configures capture and finalization.
type RecorderConfig struct {
	Format   Format
	MimeType string

	// ChunkInterval is how often buffered PCM is sealed into a chunk.
	ChunkInterval time.Duration

	// MaxDuration and MaxBytes end a capture automatically. Zero disables.
	MaxDuration time.Duration
	MaxBytes    int64

	// Encoders defaults to DefaultEncoders.
	Encoders Encoders
}

// WithDefaults returns a config with default values applied to zero fields.
func (c RecorderConfig) WithDefaults() RecorderConfig {
	if c.Format == (Format{}) {
		c.Format = DefaultFormat()
	}

	if c.MimeType == "" {
		c.MimeType = MimeTypeMP3
	}

	if c.ChunkInterval <= 0 {
		c.ChunkInterval = DefaultChunkInterval
	}

	if c.Encoders == nil {
		c.Encoders = DefaultEncoders()
	}

	return c
}

// Recorder owns the capture state machine: Idle -> Armed -> Recording ->
// Ready. It holds the capture stream exclusively between Start and Stop and
// produces one immutable Recording per capture.
type Recorder struct {
	source StreamOpener
	config RecorderConfig

	mu       sync.Mutex
	state    State
	active   *capture
	current  *Recording
	stopped  error // why the last capture ended, nil for a user stop
	levels   *LevelWindow
	captured atomic.Int64
}

// NewRecorder creates a recorder capturing from source.
func NewRecorder(source StreamOpener, config RecorderConfig) (*Recorder, error) {
	if source == nil {
		return nil, errors.New("stream source cannot be nil")
	}

	config = config.WithDefaults()

	if err := config.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture format: %w", err)
	}

	if config.MaxDuration < 0 || config.MaxBytes < 0 {
		return nil, errors.New("capture limits cannot be negative")
	}

	return &Recorder{
		source: source,
		config: config,
		levels: NewLevelWindow(config.Format.SampleRate * config.Format.Channels),
	}, nil
}

// Arm moves Idle or Ready to Armed. It requires a selected device. Arming
// from Ready discards the previous recording.
func (r *Recorder) Arm() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.armLocked()
}

func (r *Recorder) armLocked() error {
	switch r.state {
	case StateArmed:
		return nil
	case StateRecording:
		return ErrAlreadyRecording
	case StateIdle, StateReady:
	}

	if _, ok := r.source.Selected(); !ok {
		return ErrNoDeviceSelected
	}

	if r.state == StateReady {
		r.current = nil
		r.stopped = nil
	}

	r.state = StateArmed

	return nil
}

// Start opens the capture stream and begins accumulating audio. The
// configured encoding is validated before the stream is opened so an
// unsupported format never leaves a partial artifact. Cancelling ctx ends the
// capture as if Stop had been called.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.armLocked(); err != nil {
		return err
	}

	enc, ok := r.config.Encoders.Lookup(r.config.MimeType)
	if !ok || !enc.Supports(r.config.Format) {
		return fmt.Errorf("%w: %s as %s", ErrUnsupportedFormat, r.config.Format, r.config.MimeType)
	}

	c := &capture{
		dataC:   make(chan []byte, 64),
		limitC:  make(chan error, 1),
		done:    make(chan struct{}),
		started: time.Now(),
	}

	stream, err := r.source.OpenStream(r.config.Format, c.onData)
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	c.stream = stream
	r.captured.Store(0)
	r.levels = NewLevelWindow(r.config.Format.SampleRate * r.config.Format.Channels)
	r.active = c
	r.state = StateRecording

	c.wg.Go(func() { r.collect(c) })
	go r.watch(ctx, c)

	slog.Info("recording started", "format", r.config.Format.String(), "mime", r.config.MimeType)

	return nil
}

// Stop finalizes the capture into a Recording and releases the stream and
// hardware handle, even if nothing was captured. Stop outside of Recording
// is a no-op. The recorder always ends in Ready; a non-nil error means the
// stream did not stop cleanly or the audio could not be encoded.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return nil
	}

	return r.finishLocked(nil)
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Recording returns the artifact of the last finished capture, or nil.
func (r *Recorder) Recording() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// StopReason reports why the last capture ended on its own (a limit or
// context cancellation). It is nil after a user-initiated Stop.
func (r *Recorder) StopReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stopped
}

// BytesCaptured returns the PCM bytes accumulated by the current or last capture.
func (r *Recorder) BytesCaptured() int64 {
	return r.captured.Load()
}

// MaxBytes returns the configured byte cap, zero when uncapped.
func (r *Recorder) MaxBytes() int64 {
	return r.config.MaxBytes
}

// Levels returns up to n of the most recent samples for metering.
func (r *Recorder) Levels(n int) []int16 {
	r.mu.Lock()
	levels := r.levels
	r.mu.Unlock()

	return levels.Recent(n)
}

// finishLocked tears down the active capture. Callers hold r.mu.
func (r *Recorder) finishLocked(reason error) error {
	c := r.active
	r.active = nil

	var errs []error

	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop capture stream: %w", err))
	}

	// release the hardware no matter what happened above
	c.stream.Close()

	c.closed.Store(true)
	close(c.dataC)
	c.wg.Wait()
	close(c.done)

	c.seal()
	pcm := bytes.Join(c.chunks, nil)

	rec, err := r.finalize(pcm)
	if err != nil {
		errs = append(errs, err)
	}

	r.current = rec
	r.stopped = reason
	r.state = StateReady

	slog.Info("recording stopped",
		"chunks", len(c.chunks),
		"pcmBytes", len(pcm),
		"reason", reason)

	return errors.Join(errs...)
}

func (r *Recorder) finalize(pcm []byte) (*Recording, error) {
	duration := time.Duration(len(pcm)) * time.Second / time.Duration(r.config.Format.BytesPerSecond())

	if len(pcm) == 0 {
		return NewRecording(nil, r.config.MimeType, 0), nil
	}

	enc, ok := r.config.Encoders.Lookup(r.config.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.config.MimeType)
	}

	data, err := enc.Encode(pcm, r.config.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recording: %w", err)
	}

	return &Recording{data: data, mimeType: enc.MimeType(), durationHint: duration}, nil
}

// collect drains the audio thread's packets, sealing a chunk every interval.
func (r *Recorder) collect(c *capture) {
	ticker := time.NewTicker(r.config.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case pcm, ok := <-c.dataC:
			if !ok {
				return
			}

			c.pending = append(c.pending, pcm...)
			r.levels.Write(pcm)

			total := r.captured.Add(int64(len(pcm)))
			if r.config.MaxBytes > 0 && total >= r.config.MaxBytes {
				c.signal(ErrMaxBytesReached)
			}

		case <-ticker.C:
			c.seal()

			if r.config.MaxDuration > 0 && time.Since(c.started) >= r.config.MaxDuration {
				c.signal(ErrMaxDurationReached)
			}
		}
	}
}

// watch ends the capture when a limit trips or ctx is cancelled.
func (r *Recorder) watch(ctx context.Context, c *capture) {
	var reason error

	select {
	case reason = <-c.limitC:
	case <-ctx.Done():
		reason = ctx.Err()
	case <-c.done:
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != c {
		return
	}

	if err := r.finishLocked(reason); err != nil {
		slog.Error("failed to finish recording", "error", err)
	}
}

// capture is the per-Start bookkeeping for one recording.
type capture struct {
	stream  Stream
	dataC   chan []byte
	limitC  chan error
	done    chan struct{}
	closed  atomic.Bool
	started time.Time
	wg      sync.WaitGroup

	// touched only by the collector, then by finishLocked after wg.Wait
	chunks  [][]byte
	pending []byte
}

// onData runs on the audio thread. The backend reuses its buffer, so the
// packet is copied before it leaves the callback.
func (c *capture) onData(pcm []byte) {
	if c.closed.Load() || len(pcm) == 0 {
		return
	}

	if err := channels.SendWithTimeout(c.dataC, bytes.Clone(pcm), dataSendTimeout); err != nil {
		slog.Debug("dropped capture packet", "bytes", len(pcm), "error", err)
	}
}

func (c *capture) seal() {
	if len(c.pending) == 0 {
		return
	}

	c.chunks = append(c.chunks, c.pending)
	c.pending = nil
}

func (c *capture) signal(reason error) {
	_ = channels.SendNonBlock(c.limitC, reason)
}

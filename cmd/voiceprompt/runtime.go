package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/config"
	"github.com/alkime/voiceprompt/internal/keyring"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/remote/direct"
	"github.com/alkime/voiceprompt/internal/remote/httpapi"
	"github.com/alkime/voiceprompt/internal/server"
	"github.com/alkime/voiceprompt/pkg/channels"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/option"
)

const (
	// snapshotSendTimeout bounds how long a run waits on a slow presenter.
	snapshotSendTimeout = 100 * time.Millisecond

	// levelSamples is ~50ms of audio at 16kHz for the waveform.
	levelSamples = 800
)

// runtime is the wired application: capture hardware, orchestrator and the
// snapshot fan-out to presenters.
type runtime struct {
	cfg      *config.Config
	devices  *audio.Manager
	recorder *audio.Recorder
	store    *pipeline.Store
	orch     *pipeline.Orchestrator

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// presenter subscribes one consumer of run snapshots.
type presenter func(b *channels.Broadcaster[pipeline.Snapshot]) error

// latestOnly suits views that render current state: a slow reader skips
// intermediate snapshots but always sees the newest.
func latestOnly(ch chan pipeline.Snapshot) presenter {
	return func(b *channels.Broadcaster[pipeline.Snapshot]) error {
		return b.SubscribeLatest(ch)
	}
}

// everySnapshot suits logs: each snapshot is waited on briefly before it is
// dropped.
func everySnapshot(ch chan<- pipeline.Snapshot) presenter {
	return func(b *channels.Broadcaster[pipeline.Snapshot]) error {
		return b.SubscribeWithTimeout(ch, snapshotSendTimeout)
	}
}

// newRuntime wires everything and starts the status server when configured.
func newRuntime(parent context.Context, cfg *config.Config, presenters ...presenter) (*runtime, error) {
	ctx, cancel := context.WithCancel(parent)

	rt := &runtime{cfg: cfg, cancel: cancel}

	remoteClient, err := newRemote(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	rt.devices = audio.NewManager(audio.NewMalgoPlatform())

	rt.recorder, err = audio.NewRecorder(rt.devices, cfg.RecorderConfig())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	observer, err := fanOut(ctx, presenters)
	if err != nil {
		cancel()
		return nil, err
	}

	rt.store = pipeline.NewStore(observer)

	rt.orch, err = pipeline.NewOrchestrator(remoteClient, rt.store)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if cfg.StatusAddr != "" {
		srv := server.New(cfg, slog.Default(), rt.store)
		rt.wg.Go(func() {
			if err := srv.Run(ctx); err != nil {
				slog.Error("status server stopped", "error", err)
			}
		})
	}

	slog.Debug("runtime ready", "provider", cfg.Provider, "format", cfg.Format().String(), "mime", cfg.MimeType)

	return rt, nil
}

// Close stops any capture in progress and releases the hardware.
func (rt *runtime) Close() {
	if err := rt.recorder.Stop(); err != nil {
		slog.Warn("failed to stop recorder", "error", err)
	}

	if err := rt.devices.Close(); err != nil {
		slog.Warn("failed to close capture devices", "error", err)
	}

	rt.cancel()
	rt.wg.Wait()
}

// byteDial reports captured bytes against the configured cap.
type byteDial struct {
	recorder *audio.Recorder
}

func (d byteDial) Read() int64 { return d.recorder.BytesCaptured() }

func (d byteDial) Cap() (int64, int64) { return d.Read(), d.recorder.MaxBytes() }

func newRemote(cfg *config.Config) (pipeline.RemoteClient, error) {
	switch cfg.Provider {
	case config.ProviderDirect:
		openaiKey, openaiSrc := keyring.Lookup(keyring.OpenAI, envValue(cfg, keyring.OpenAI))
		anthropicKey, anthropicSrc := keyring.Lookup(keyring.Anthropic, envValue(cfg, keyring.Anthropic))
		slog.Debug("resolved provider keys", "openai", openaiSrc, "anthropic", anthropicSrc)

		return direct.New(direct.Config{
			OpenAIAPIKey:     openaiKey,
			AnthropicAPIKey:  anthropicKey,
			OpenAIOptions:    []option.RequestOption{option.WithRequestTimeout(cfg.RequestTimeout)},
			AnthropicOptions: []anthropicoption.RequestOption{anthropicoption.WithRequestTimeout(cfg.RequestTimeout)},
		}), nil
	default:
		client, err := httpapi.New(cfg.APIBaseURL, httpapi.WithTimeout(cfg.RequestTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}

		return client, nil
	}
}

// fanOut returns an observer broadcasting snapshots to presenters.
func fanOut(ctx context.Context, presenters []presenter) (pipeline.Observer, error) {
	if len(presenters) == 0 {
		return nil, nil //nolint:nilnil // no presenters, nothing to observe
	}

	b := channels.NewBroadcaster[pipeline.Snapshot]()
	for _, subscribe := range presenters {
		if err := subscribe(b); err != nil {
			return nil, fmt.Errorf("failed to subscribe presenter: %w", err)
		}
	}

	input, err := b.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start snapshot broadcaster: %w", err)
	}

	return pipeline.ObserverFunc(func(snap pipeline.Snapshot) {
		if err := channels.SendWithTimeout(input, snap, snapshotSendTimeout); err != nil {
			slog.Debug("dropped run snapshot", "seq", snap.Seq, "error", err)
		}
	}), nil
}

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/logger"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/pkg/channels"
)

// drainIdle is how long to wait for trailing snapshots after a run returns.
const drainIdle = 250 * time.Millisecond

// RecordCmd records for a fixed time and runs the pipeline headless,
// logging every snapshot.
type RecordCmd struct {
	Duration  time.Duration `flag:"" default:"5s" help:"How long to record"`
	Device    string        `flag:"" optional:"" help:"Capture device ID (see 'voiceprompt devices'); default device when empty"`
	SpeechOut string        `flag:"" optional:"" type:"path" help:"Write the synthesized speech to this file"`
}

// Run executes the record command.
func (c *RecordCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger.Setup(cfg, os.Stdout)

	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snaps := make(chan pipeline.Snapshot, 16)

	rt, err := newRuntime(ctx, cfg, everySnapshot(snaps))
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := selectDevice(ctx, rt.devices, c.Device); err != nil {
		return err
	}

	rec, err := c.capture(ctx, rt.recorder)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	wg := sync.WaitGroup{}
	wg.Go(func() {
		for {
			select {
			case snap := <-snaps:
				logSnapshot(snap)
			case <-done:
				return
			}
		}
	})

	runErr := rt.orch.Run(ctx, rec)

	close(done)
	wg.Wait()

	for _, snap := range channels.ReceiveAll(snaps, drainIdle, 0) {
		logSnapshot(snap)
	}

	if runErr != nil {
		return fmt.Errorf("pipeline run failed: %w", runErr)
	}

	final := rt.store.Snapshot()
	logResults(final.Results)

	if c.SpeechOut != "" && final.Results.Speech != nil {
		if err := writeSpeech(c.SpeechOut, final.Results.Speech.AudioBase64); err != nil {
			return err
		}
		slog.Info("speech written", "path", c.SpeechOut)
	}

	return nil
}

// capture records until the duration elapses or a limit trips.
func (c *RecordCmd) capture(ctx context.Context, recorder *audio.Recorder) (*audio.Recording, error) {
	recCtx, cancel := context.WithTimeout(ctx, c.Duration)
	defer cancel()

	if err := recorder.Start(recCtx); err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}

	slog.Info("recording", "duration", c.Duration)

	// the recorder stops itself when recCtx ends or a limit trips
	for recorder.State() == audio.StateRecording {
		select {
		case <-recCtx.Done():
			if err := recorder.Stop(); err != nil {
				return nil, fmt.Errorf("failed to stop recording: %w", err)
			}
		case <-time.After(50 * time.Millisecond):
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if reason := recorder.StopReason(); reason != nil && !errors.Is(reason, context.DeadlineExceeded) {
		slog.Warn("recording stopped early", "reason", reason)
	}

	rec := recorder.Recording()
	if rec == nil || rec.Empty() {
		return nil, errors.New("nothing was captured")
	}

	slog.Info("recording ready", "bytes", rec.Len(), "mime", rec.MimeType(), "duration", rec.DurationHint())

	return rec, nil
}

func selectDevice(ctx context.Context, devices *audio.Manager, id string) error {
	if _, err := devices.RequestPermission(ctx); err != nil {
		return fmt.Errorf("failed to access capture devices: %w", err)
	}

	if id != "" {
		return devices.SelectDevice(id)
	}

	dev, err := devices.SelectDefault()
	if err != nil {
		return err
	}

	slog.Info("using capture device", "id", dev.ID, "label", dev.Label)

	return nil
}

func logSnapshot(snap pipeline.Snapshot) {
	if snap.Failed() {
		slog.Error("pipeline failed",
			"seq", snap.Seq,
			"stage", snap.Run.Err.Stage.String(),
			"progress", snap.Run.Progress,
			"error", snap.Error)

		return
	}

	slog.Info("pipeline update",
		"seq", snap.Seq,
		"stage", snap.Run.Stage.String(),
		"progress", snap.Run.Progress,
		"results", snap.Results.Count())
}

func logResults(res pipeline.Results) {
	attrs := []any{}

	if res.Transcript != nil {
		attrs = append(attrs, "transcript", res.Transcript.Text)
	}

	if res.Image != nil {
		image := res.Image.URL
		if strings.HasPrefix(image, "data:") {
			image = "inline"
		}
		attrs = append(attrs, "image", image)
	}

	if res.Analysis != nil {
		attrs = append(attrs,
			"similarity", res.Analysis.SimilarityScore,
			"description", res.Analysis.Description)
	}

	slog.Info("pipeline results", attrs...)
}

func writeSpeech(path, b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("failed to decode speech: %w", err)
	}

	//nolint:gosec // user-chosen output file
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write speech: %w", err)
	}

	return nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/alkime/voiceprompt/internal/audio"
)

// Progress checkpoints of a run.
const (
	progressTranscribed = 20
	progressGenerating  = 40
	progressImageReady  = 60
	progressAnalyzed    = 80
	progressDone        = 100
)

// Orchestrator drives one recording through transcription, image
// generation, similarity analysis and speech synthesis, in that order. Each
// stage waits for the previous one. The first failure ends the run.
type Orchestrator struct {
	remote  RemoteClient
	store   *Store
	running atomic.Bool
}

// NewOrchestrator creates an orchestrator writing into store.
func NewOrchestrator(remote RemoteClient, store *Store) (*Orchestrator, error) {
	if remote == nil {
		return nil, errors.New("remote client cannot be nil")
	}

	if store == nil {
		store = NewStore(nil)
	}

	return &Orchestrator{remote: remote, store: store}, nil
}

// Store returns the store the orchestrator writes to.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run processes rec. It returns ErrNoRecording for a nil recording and
// ErrAlreadyRunning while another run is active; neither touches the store.
// A stage failure is returned as a *StageError after the store has recorded
// it.
//
// ctx is passed to every remote call. There is no way to abandon a run
// from the recorder side; ctx only ends with the process.
func (o *Orchestrator) Run(ctx context.Context, rec *audio.Recording) error {
	if rec == nil {
		return ErrNoRecording
	}

	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	o.store.reset()

	log := slog.With("recordingBytes", rec.Len(), "mime", rec.MimeType())
	log.Info("pipeline run started")

	transcript, err := o.remote.Transcribe(ctx, rec)
	if err != nil {
		return o.fail(log, StageTranscribing, err)
	}

	o.store.update(func(run *Run, res *Results) {
		res.Transcript = &TranscriptResult{Text: transcript}
		run.Progress = progressTranscribed
	})

	o.store.update(func(run *Run, _ *Results) {
		run.Stage = StageGeneratingImage
		run.Progress = progressGenerating
	})

	imageURL, err := o.remote.GenerateImage(ctx, transcript)
	if err != nil {
		return o.fail(log, StageGeneratingImage, err)
	}

	o.store.update(func(run *Run, res *Results) {
		res.Image = &ImageResult{URL: imageURL}
		run.Stage = StageAnalyzing
		run.Progress = progressImageReady
	})

	analysis, err := o.remote.AnalyzeSimilarity(ctx, transcript, imageURL)
	if err != nil {
		return o.fail(log, StageAnalyzing, err)
	}

	if analysis.Description == "" {
		log.Info("empty image description, skipping speech synthesis")

		o.store.update(func(run *Run, res *Results) {
			res.Analysis = &analysis
			run.Progress = progressAnalyzed
		})
		o.complete(log, nil)

		return nil
	}

	o.store.update(func(run *Run, res *Results) {
		res.Analysis = &analysis
		run.Stage = StageSynthesizing
		run.Progress = progressAnalyzed
	})

	speech, err := o.remote.Synthesize(ctx, analysis.Description)
	if err != nil {
		return o.fail(log, StageSynthesizing, err)
	}

	o.complete(log, &SpeechResult{AudioBase64: speech})

	return nil
}

func (o *Orchestrator) complete(log *slog.Logger, speech *SpeechResult) {
	o.store.update(func(run *Run, res *Results) {
		if speech != nil {
			res.Speech = speech
		}
		run.Stage = StageCompleted
		run.Progress = progressDone
	})

	log.Info("pipeline run completed")
}

func (o *Orchestrator) fail(log *slog.Logger, stage Stage, err error) error {
	stageErr := newStageError(stage, err)

	o.store.update(func(run *Run, _ *Results) {
		run.Stage = StageFailed
		run.Err = stageErr
	})

	log.Error("pipeline stage failed", "stage", stage.String(), "message", stageErr.Message, "error", err)

	return stageErr
}

package pipeline_test

import (
	"context"
	"sync"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/pipeline"
)

// fakeRemote records the stages it is asked to run.
type fakeRemote struct {
	transcript string
	imageURL   string
	analysis   pipeline.AnalysisResult
	speech     string

	transcribeErr error
	generateErr   error
	analyzeErr    error
	synthesizeErr error

	// block, when set, holds Transcribe until closed.
	block   chan struct{}
	entered chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) Transcribe(_ context.Context, _ *audio.Recording) (string, error) {
	f.record("transcribe")

	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}

	return f.transcript, f.transcribeErr
}

func (f *fakeRemote) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.record("generate:" + prompt)
	return f.imageURL, f.generateErr
}

func (f *fakeRemote) AnalyzeSimilarity(_ context.Context, prompt, imageURL string) (pipeline.AnalysisResult, error) {
	f.record("analyze:" + prompt + "|" + imageURL)
	return f.analysis, f.analyzeErr
}

func (f *fakeRemote) Synthesize(_ context.Context, text string) (string, error) {
	f.record("synthesize:" + text)
	return f.speech, f.synthesizeErr
}

func foxRemote() *fakeRemote {
	return &fakeRemote{
		transcript: "a red fox in a forest",
		imageURL:   "https://images.example/fox.png",
		analysis: pipeline.AnalysisResult{
			SimilarityScore: 82.5,
			Description:     "a red fox standing among trees",
		},
		speech: "SUQzBAAAAAAA",
	}
}

// snapshotRecorder collects every published snapshot.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []pipeline.Snapshot
}

func (r *snapshotRecorder) Observe(snap pipeline.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snaps = append(r.snaps, snap)
}

func (r *snapshotRecorder) Snapshots() []pipeline.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]pipeline.Snapshot(nil), r.snaps...)
}

func testRecording() *audio.Recording {
	return audio.NewRecording([]byte{0xff, 0xfb, 0x90}, audio.MimeTypeMP3, 0)
}

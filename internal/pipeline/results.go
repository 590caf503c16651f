package pipeline

import "encoding/json"

type TranscriptResult struct {
	Text string `json:"text"`
}

// ImageResult holds a reference to the generated image. The URL may be a
// data: URL when the service returns inline image bytes.
type ImageResult struct {
	URL string `json:"url"`
}

type AnalysisResult struct {
	SimilarityScore float64 `json:"similarityScore"`
	Description     string  `json:"description"`
}

type SpeechResult struct {
	AudioBase64 string `json:"audioBase64"`
}

// Results accumulates stage outputs. Populated fields always form a prefix
// of the stage order.
type Results struct {
	Transcript *TranscriptResult `json:"transcript,omitempty"`
	Image      *ImageResult      `json:"image,omitempty"`
	Analysis   *AnalysisResult   `json:"analysis,omitempty"`
	Speech     *SpeechResult     `json:"speech,omitempty"`
}

// Count returns how many stage results are populated.
func (r Results) Count() int {
	n := 0
	for _, set := range []bool{r.Transcript != nil, r.Image != nil, r.Analysis != nil, r.Speech != nil} {
		if set {
			n++
		}
	}

	return n
}

func (r Results) clone() Results {
	return Results{
		Transcript: clonePtr(r.Transcript),
		Image:      clonePtr(r.Image),
		Analysis:   clonePtr(r.Analysis),
		Speech:     clonePtr(r.Speech),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}

// Run is the state of the current pipeline run.
type Run struct {
	Stage    Stage       `json:"stage"`
	Progress int         `json:"progress"`
	Err      *StageError `json:"-"`
}

// MarshalJSON adds failedStage, the stage named by Err, to failed runs.
func (r Run) MarshalJSON() ([]byte, error) {
	type plain Run

	out := struct {
		plain
		FailedStage *Stage `json:"failedStage,omitempty"`
	}{plain: plain(r)}

	if r.Err != nil {
		stage := r.Err.Stage
		out.FailedStage = &stage
	}

	return json.Marshal(out) //nolint:wrapcheck // plain data
}

// Snapshot is a point-in-time copy of the run and its results.
type Snapshot struct {
	Run     Run     `json:"run"`
	Error   string  `json:"error,omitempty"`
	Results Results `json:"results"`
	// Seq increases with every published change.
	Seq uint64 `json:"seq"`
}

// Failed reports whether the snapshot is a failed run.
func (s Snapshot) Failed() bool {
	return s.Run.Stage == StageFailed
}

// Progresses extracts the progress values from a sequence of snapshots.
func Progresses(snaps []Snapshot) []int {
	out := make([]int, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Run.Progress)
	}

	return out
}

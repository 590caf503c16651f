package pipeline

import (
	"context"

	"github.com/alkime/voiceprompt/internal/audio"
)

// RemoteClient is the boundary to the four AI services a run drives.
type RemoteClient interface {
	// Transcribe converts the recording to text.
	Transcribe(ctx context.Context, rec *audio.Recording) (string, error)
	// GenerateImage returns a reference (URL) to an image for the prompt.
	GenerateImage(ctx context.Context, prompt string) (string, error)
	// AnalyzeSimilarity scores how well the image matches the prompt (0-100)
	// and describes the image.
	AnalyzeSimilarity(ctx context.Context, prompt, imageURL string) (AnalysisResult, error)
	// Synthesize speaks text, returning base64-encoded audio.
	Synthesize(ctx context.Context, text string) (string, error)
}

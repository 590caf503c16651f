package pipeline

import "fmt"

// Stage is the position of a pipeline run.
type Stage int

const (
	StageIdle Stage = iota
	StageTranscribing
	StageGeneratingImage
	StageAnalyzing
	StageSynthesizing
	StageCompleted
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:            "idle",
	StageTranscribing:    "transcribing",
	StageGeneratingImage: "generating_image",
	StageAnalyzing:       "analyzing",
	StageSynthesizing:    "synthesizing",
	StageCompleted:       "completed",
	StageFailed:          "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}

	return fmt.Sprintf("stage(%d)", int(s))
}

// Label is the human readable form used in notifications.
func (s Stage) Label() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageTranscribing:
		return "Transcription"
	case StageGeneratingImage:
		return "Image generation"
	case StageAnalyzing:
		return "Image analysis"
	case StageSynthesizing:
		return "Speech synthesis"
	case StageCompleted:
		return "Completed"
	case StageFailed:
		return "Failed"
	default:
		return s.String()
	}
}

// Terminal reports whether a run in this stage is at rest.
func (s Stage) Terminal() bool {
	return s == StageIdle || s == StageCompleted || s == StageFailed
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

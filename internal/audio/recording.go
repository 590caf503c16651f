package audio

import (
	"bytes"
	"io"
	"time"
)

// Recording is an immutable encoded audio artifact. It is produced when a
// capture stops and is never mutated afterwards; a new capture produces a new
// Recording.
type Recording struct {
	data         []byte
	mimeType     string
	durationHint time.Duration
}

// NewRecording wraps an already-encoded artifact. The data is copied.
func NewRecording(data []byte, mimeType string, durationHint time.Duration) *Recording {
	return &Recording{
		data:         bytes.Clone(data),
		mimeType:     mimeType,
		durationHint: durationHint,
	}
}

// Data returns a copy of the encoded bytes.
func (r *Recording) Data() []byte { return bytes.Clone(r.data) }

// Reader streams the encoded bytes without copying them.
func (r *Recording) Reader() io.Reader { return bytes.NewReader(r.data) }

func (r *Recording) Len() int { return len(r.data) }

func (r *Recording) MimeType() string { return r.mimeType }

// DurationHint is the captured duration derived from the PCM byte count.
func (r *Recording) DurationHint() time.Duration { return r.durationHint }

// Empty reports whether no audio was captured.
func (r *Recording) Empty() bool { return len(r.data) == 0 }

// Filename is the name used when uploading the artifact.
func (r *Recording) Filename() string {
	return "recording" + extensionFor(r.mimeType)
}

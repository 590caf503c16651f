package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"mime"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

const (
	MimeTypeMP3 = "audio/mpeg"
	MimeTypeWAV = "audio/wav"

	// defaultBatchBytes is 4KB = 2048 mono samples = 128ms @ 16kHz.
	defaultBatchBytes = 4096
)

// Encoder turns captured PCM into an uploadable audio container.
type Encoder interface {
	MimeType() string
	Supports(f Format) bool
	Encode(pcm []byte, f Format) ([]byte, error)
}

// Encoders maps MIME types to encoders.
type Encoders map[string]Encoder

// DefaultEncoders returns the MP3 and WAV encoders.
func DefaultEncoders() Encoders {
	return Encoders{
		MimeTypeMP3: mp3Encoder{batchBytes: defaultBatchBytes},
		MimeTypeWAV: wavEncoder{},
	}
}

// Lookup finds the encoder for mimeType, ignoring any parameters.
func (e Encoders) Lookup(mimeType string) (Encoder, bool) {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, false
	}

	enc, ok := e[base]

	return enc, ok
}

// extensionFor returns the file extension used when uploading a recording.
func extensionFor(mimeType string) string {
	switch mimeType {
	case MimeTypeMP3:
		return ".mp3"
	case MimeTypeWAV:
		return ".wav"
	}

	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}

// mp3Encoder batch-encodes PCM with shine-mp3.
type mp3Encoder struct {
	batchBytes int
}

func (mp3Encoder) MimeType() string { return MimeTypeMP3 }

func (mp3Encoder) Supports(f Format) bool { return supportsMP3(f) }

func (e mp3Encoder) Encode(pcm []byte, f Format) ([]byte, error) {
	if !supportsMP3(f) {
		return nil, fmt.Errorf("%w: mp3 cannot encode %s", ErrUnsupportedFormat, f)
	}

	// shine-mp3 Write() has a bug for mono (always increments by
	// samples_per_pass * 2), so mono input is encoded as L=R stereo.
	enc := mp3encoder.NewEncoder(f.SampleRate, 2)

	var out bytes.Buffer

	batch := e.batchBytes
	if batch <= 0 {
		batch = defaultBatchBytes
	}
	// keep batches aligned to whole frames
	frame := f.Channels * bytesPerSample
	batch -= batch % frame

	for start := 0; start < len(pcm); start += batch {
		end := min(start+batch, len(pcm))

		samples, err := pcmToInt16(pcm[start:end])
		if err != nil {
			return nil, err
		}

		if f.Channels == 1 {
			samples = monoToStereo(samples)
		}

		if err := enc.Write(&out, samples); err != nil {
			return nil, fmt.Errorf("failed to encode audio to MP3: %w", err)
		}
	}

	slog.Debug("encoded recording", "mime", MimeTypeMP3, "pcmBytes", len(pcm), "mp3Bytes", out.Len())

	return out.Bytes(), nil
}

// wavEncoder wraps PCM in a canonical 44-byte RIFF header.
type wavEncoder struct{}

func (wavEncoder) MimeType() string { return MimeTypeWAV }

func (wavEncoder) Supports(f Format) bool { return f.Validate() == nil }

func (wavEncoder) Encode(pcm []byte, f Format) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	dataLen := uint32(len(pcm)) //nolint:gosec // recordings are capped well below 4GB
	blockAlign := uint16(f.Channels * bytesPerSample) //nolint:gosec // 1 or 2 channels

	header := []any{
		[]byte("RIFF"),
		36 + dataLen,
		[]byte("WAVE"),
		[]byte("fmt "),
		uint32(16),
		uint16(1), // PCM
		uint16(f.Channels), //nolint:gosec // validated above
		uint32(f.SampleRate), //nolint:gosec // validated above
		uint32(f.BytesPerSecond()), //nolint:gosec // validated above
		blockAlign,
		uint16(bytesPerSample * 8),
		[]byte("data"),
		dataLen,
	}

	for _, field := range header {
		if err := binary.Write(&buf, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("failed to write WAV header: %w", err)
		}
	}

	buf.Write(pcm)

	return buf.Bytes(), nil
}

// pcmToInt16 converts S16LE bytes to samples.
func pcmToInt16(data []byte) ([]int16, error) {
	if len(data)%bytesPerSample != 0 {
		return nil, errors.New("PCM data has a trailing partial sample")
	}

	samples := make([]int16, len(data)/bytesPerSample)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to read PCM samples: %w", err)
	}

	return samples, nil
}

func monoToStereo(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)
	for i, sample := range mono {
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}
	return stereo
}

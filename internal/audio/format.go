package audio

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// DefaultSampleRate is 16kHz, the native sample rate for Whisper.
	DefaultSampleRate = 16_000
	// DefaultChannels is mono.
	DefaultChannels = 1

	bytesPerSample = 2 // S16LE
)

// Format describes the PCM layout captured from the device. Samples are
// always signed 16-bit little-endian.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is 16kHz mono.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// Validate returns an error if the format is malformed.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}

	return nil
}

// BytesPerSecond is the PCM data rate for the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * bytesPerSample
}

func (f Format) String() string {
	return fmt.Sprintf("s16le/%dHz/%dch", f.SampleRate, f.Channels)
}

// mp3SampleRates are the MPEG-1/2/2.5 rates the shine encoder accepts.
var mp3SampleRates = []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000}

func supportsMP3(f Format) bool {
	return f.Validate() == nil && slices.Contains(mp3SampleRates, f.SampleRate)
}

package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoders_Lookup(t *testing.T) {
	t.Parallel()

	encs := audio.DefaultEncoders()

	enc, ok := encs.Lookup("audio/mpeg")
	require.True(t, ok)
	assert.Equal(t, audio.MimeTypeMP3, enc.MimeType())

	enc, ok = encs.Lookup("audio/wav; codecs=1")
	require.True(t, ok)
	assert.Equal(t, audio.MimeTypeWAV, enc.MimeType())

	_, ok = encs.Lookup("audio/webm")
	assert.False(t, ok)

	_, ok = encs.Lookup(";;")
	assert.False(t, ok)
}

func TestWAVEncoder_Header(t *testing.T) {
	t.Parallel()

	enc, _ := audio.DefaultEncoders().Lookup(audio.MimeTypeWAV)
	pcm := tone(8, 42)

	out, err := enc.Encode(pcm, audio.DefaultFormat())
	require.NoError(t, err)
	require.Len(t, out, 44+len(pcm))

	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:24]), "channels")
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(out[24:28]), "sample rate")
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(out[28:32]), "byte rate")
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, pcm, out[44:])
}

func TestMP3Encoder(t *testing.T) {
	t.Parallel()

	enc, _ := audio.DefaultEncoders().Lookup(audio.MimeTypeMP3)

	t.Run("encodes a second of mono", func(t *testing.T) {
		t.Parallel()

		out, err := enc.Encode(tone(16000, 500), audio.DefaultFormat())
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})

	t.Run("rejects rates outside mpeg", func(t *testing.T) {
		t.Parallel()

		f := audio.Format{SampleRate: 17000, Channels: 1}
		assert.False(t, enc.Supports(f))

		_, err := enc.Encode(tone(10, 1), f)
		require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
	})

	t.Run("rejects partial samples", func(t *testing.T) {
		t.Parallel()

		_, err := enc.Encode([]byte{1, 2, 3}, audio.DefaultFormat())
		require.Error(t, err)
	})
}

func TestFormat_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.DefaultFormat().Validate())
	require.Error(t, audio.Format{SampleRate: 0, Channels: 1}.Validate())
	require.Error(t, audio.Format{SampleRate: 16000, Channels: 0}.Validate())
	assert.Equal(t, "s16le/16000Hz/1ch", audio.DefaultFormat().String())
}

func TestRecording_IsImmutable(t *testing.T) {
	t.Parallel()

	src := []byte{1, 2, 3}
	rec := audio.NewRecording(src, audio.MimeTypeMP3, 0)
	src[0] = 9

	data := rec.Data()
	assert.Equal(t, byte(1), data[0])

	data[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, rec.Data())
	assert.Equal(t, "recording.mp3", rec.Filename())
	assert.False(t, rec.Empty())
}

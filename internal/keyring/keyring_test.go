package keyring_test

import (
	"testing"

	"github.com/alkime/voiceprompt/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

//nolint:paralleltest // the mock provider is process global
func TestKeychainLifecycle(t *testing.T) {
	gokeyring.MockInit()

	secret, src := keyring.Lookup(keyring.OpenAI, "")
	assert.Empty(t, secret)
	assert.Equal(t, keyring.SourceNone, src)

	require.NoError(t, keyring.Set(keyring.OpenAI, "sk-stored"))

	secret, src = keyring.Lookup(keyring.OpenAI, "")
	assert.Equal(t, "sk-stored", secret)
	assert.Equal(t, keyring.SourceKeychain, src)

	secret, src = keyring.Lookup(keyring.OpenAI, "sk-env")
	assert.Equal(t, "sk-env", secret, "env wins over the keychain")
	assert.Equal(t, keyring.SourceEnv, src)

	require.NoError(t, keyring.Delete(keyring.OpenAI))
	require.NoError(t, keyring.Delete(keyring.OpenAI), "deleting twice is fine")

	_, err := keyring.Get(keyring.OpenAI)
	require.Error(t, err)
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    keyring.Key
		wantErr bool
	}{
		{name: "anthropic", want: keyring.Anthropic},
		{name: "openai", want: keyring.OpenAI},
		{name: "openai-api-key", want: keyring.OpenAI},
		{name: "gemini", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := keyring.ParseKey(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, keyring.ErrUnknownService)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "environment", keyring.SourceEnv.String())
	assert.Equal(t, "keychain", keyring.SourceKeychain.String())
	assert.Equal(t, "not set", keyring.SourceNone.String())
}

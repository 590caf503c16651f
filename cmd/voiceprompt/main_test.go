package main

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/voiceprompt/internal/config"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/remote/direct"
	"github.com/alkime/voiceprompt/internal/remote/httpapi"
	"github.com/alkime/voiceprompt/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobals_FlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VOICEPROMPT_PROVIDER", config.ProviderHTTP)
	t.Setenv("VOICEPROMPT_API_BASE_URL", "http://env.example:8000")

	g := &Globals{APIBaseURL: "http://flag.example:9000", LogLevel: "debug"}

	cfg, err := g.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderHTTP, cfg.Provider)
	assert.Equal(t, "http://flag.example:9000", cfg.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestGlobals_InvalidOverrideFailsValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	g := &Globals{Provider: "carrier-pigeon"}

	_, err := g.loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestNewRemote_SelectsProvider(t *testing.T) {
	cfg := &config.Config{
		Provider:       config.ProviderHTTP,
		APIBaseURL:     "http://localhost:8000",
		RequestTimeout: time.Minute,
	}

	client, err := newRemote(cfg)
	require.NoError(t, err)
	assert.IsType(t, &httpapi.Client{}, client)

	cfg.Provider = config.ProviderDirect
	cfg.OpenAIAPIKey = "sk-test"
	cfg.AnthropicAPIKey = "sk-ant-test"

	client, err = newRemote(cfg)
	require.NoError(t, err)
	assert.IsType(t, &direct.Client{}, client)
}

func TestFanOut_DeliversToEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := make(chan pipeline.Snapshot, 4)
	b := make(chan pipeline.Snapshot, 4)

	observer, err := fanOut(ctx, []presenter{latestOnly(a), everySnapshot(b)})
	require.NoError(t, err)

	observer.Observe(pipeline.Snapshot{Seq: 1})
	observer.Observe(pipeline.Snapshot{Seq: 2})

	for _, ch := range []chan pipeline.Snapshot{a, b} {
		got := channels.ReceiveAll(ch, 200*time.Millisecond, 2)
		require.Len(t, got, 2)
		assert.Equal(t, []uint64{1, 2}, []uint64{got[0].Seq, got[1].Seq})
	}
}

func TestFanOut_LatestOnlyKeepsNewest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := make(chan pipeline.Snapshot, 1)

	observer, err := fanOut(ctx, []presenter{latestOnly(view)})
	require.NoError(t, err)

	for seq := uint64(1); seq <= 3; seq++ {
		observer.Observe(pipeline.Snapshot{Seq: seq})
	}

	require.Eventually(t, func() bool {
		select {
		case snap := <-view:
			return snap.Seq == 3
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestFanOut_NoSubscribers(t *testing.T) {
	observer, err := fanOut(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, observer)
}

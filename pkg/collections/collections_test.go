package collections_test

import (
	"testing"

	"github.com/alkime/voiceprompt/pkg/collections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type device struct {
	id        string
	isDefault bool
}

func TestApply(t *testing.T) {
	devices := []device{{id: "mic-a"}, {id: "mic-b", isDefault: true}}

	ids := collections.Apply(devices, func(d device) string { return d.id })

	require.Equal(t, []string{"mic-a", "mic-b"}, ids)
	require.Empty(t, collections.Apply([]device{}, func(d device) string { return d.id }))
}

func TestFind(t *testing.T) {
	devices := []device{{id: "mic-a"}, {id: "mic-b", isDefault: true}, {id: "mic-c", isDefault: true}}

	got, ok := collections.Find(devices, func(d device) bool { return d.isDefault })
	require.True(t, ok)
	assert.Equal(t, "mic-b", got.id)

	_, ok = collections.Find(devices, func(d device) bool { return d.id == "missing" })
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	devices := []device{{id: "mic-a"}, {id: "mic-b", isDefault: true}, {id: "mic-c", isDefault: true}}

	defaults := collections.Filter(devices, func(d device) bool { return d.isDefault })

	assert.Equal(t, []device{{id: "mic-b", isDefault: true}, {id: "mic-c", isDefault: true}}, defaults)
	assert.Nil(t, collections.Filter(devices, func(device) bool { return false }))
}

package style_test

import (
	"testing"

	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want lipgloss.Style
	}{
		{"exact match", 100, style.Success},
		{"good boundary", style.ScoreGood, style.Success},
		{"fair", 55, style.Warning},
		{"fair boundary", style.ScoreFair, style.Warning},
		{"poor", 12.5, style.Error},
		{"zero", 0, style.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, style.Score(tt.pct))
		})
	}
}

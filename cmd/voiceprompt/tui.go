package main

import (
	"context"
	"fmt"
	"io"

	"github.com/alkime/voiceprompt/internal/logger"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/tui"
	"github.com/alkime/voiceprompt/internal/tui/workflow"
	"github.com/alkime/voiceprompt/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// TUICmd is the default command that runs the TUI.
type TUICmd struct{}

// Run executes the TUI command.
func (c *TUICmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	// the TUI owns the terminal; logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := logger.OpenFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()

		logOut = f
	}
	logger.Setup(cfg, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan pipeline.Snapshot, 16)

	rt, err := newRuntime(ctx, cfg, latestOnly(updates))
	if err != nil {
		return err
	}
	defer rt.Close()

	model := tui.New(tui.Config{
		Context: ctx,
		Cancel:  cancel,
		Devices: rt.devices,
		Recording: workflow.RecordingControls{
			Recorder: rt.recorder,
			Bytes:    byteDial{recorder: rt.recorder},
			Levels: uictl.LevelsFunc[int16](func() []int16 {
				return rt.recorder.Levels(levelSamples)
			}),
		},
		Pipeline: workflow.PipelineControls{
			Runner:     rt.orch,
			Recordings: rt.recorder,
			Store:      rt.store,
			Updates:    updates,
		},
	})

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	fmt.Println("\nfinished. bye!")

	return nil
}

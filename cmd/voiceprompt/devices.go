package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/logger"
	"github.com/alkime/voiceprompt/pkg/collections"
)

// DevicesCmd lists available capture devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger.Setup(cfg, os.Stdout)

	slog.Info("Enumerating capture devices...")

	manager := audio.NewManager(audio.NewMalgoPlatform())
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Warn("failed to close capture devices", "error", err)
		}
	}()

	devices, err := manager.RequestPermission(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Capture Device",
			"id", dev.ID,
			"name", dev.Label,
			"isDefault", dev.IsDefault,
			"formatCount", len(dev.Formats),
			"nativeFormats", collections.Apply(dev.Formats, audio.NativeFormat.String),
		)
	}

	return nil
}

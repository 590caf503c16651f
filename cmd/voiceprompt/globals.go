package main

import (
	"fmt"

	"github.com/alkime/voiceprompt/internal/config"
)

// Globals are flags shared by every command. Set values override the
// environment.
type Globals struct {
	Provider   string `flag:"" optional:"" help:"Remote provider: http (backend service) or direct (OpenAI and Anthropic)"`
	APIBaseURL string `flag:"" name:"api-base-url" optional:"" help:"Backend service base URL for the http provider"`
	StatusAddr string `flag:"" optional:"" help:"Serve read-only run status on this address, e.g. :8080"`
	LogLevel   string `flag:"" optional:"" help:"Log level: debug, info, warn, error"`
}

// loadConfig reads the environment, applies flag overrides and validates.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if g.Provider != "" {
		cfg.Provider = g.Provider
	}

	if g.APIBaseURL != "" {
		cfg.APIBaseURL = g.APIBaseURL
	}

	if g.StatusAddr != "" {
		cfg.StatusAddr = g.StatusAddr
	}

	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/voiceprompt/internal/config"
	"github.com/alkime/voiceprompt/internal/keyring"
)

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey    SetKeyCmd    `cmd:"" help:"Store an API key in system keychain"`
	DeleteKey DeleteKeyCmd `cmd:"" help:"Remove an API key from system keychain"`
	ListKeys  ListKeysCmd  `cmd:"" name:"list-keys" help:"Show which API keys are configured and where from"`
}

type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	key, err := keyring.ParseKey(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(key, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", key.Service())

	return nil
}

type DeleteKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
}

func (c *DeleteKeyCmd) Run() error {
	key, err := keyring.ParseKey(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Delete(key); err != nil {
		return err //nolint:wrapcheck // already wrapped by keyring
	}

	fmt.Printf("%s API key removed from keychain\n", key.Service())

	return nil
}

// ListKeysCmd reports where each key would be read from. Keys are only
// needed by the direct provider.
type ListKeysCmd struct{}

func (c *ListKeysCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	missing := false

	for _, key := range keyring.Keys() {
		_, src := keyring.Lookup(key, envValue(cfg, key))
		fmt.Printf("%s: %s\n", key.Service(), src)

		missing = missing || src == keyring.SourceNone
	}

	if missing {
		fmt.Println("\nRun 'voiceprompt config set-key <service> <key>' to configure.")
	}

	return nil
}

// envValue is the key's value from the environment, if any.
func envValue(cfg *config.Config, key keyring.Key) string {
	switch key {
	case keyring.OpenAI:
		return cfg.OpenAIAPIKey
	case keyring.Anthropic:
		return cfg.AnthropicAPIKey
	default:
		return ""
	}
}

// Package keyring stores provider API keys in the system keychain and
// resolves them against values from the environment.
package keyring

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const serviceName = "voiceprompt"

// ErrUnknownService is returned for service names without a keychain entry.
var ErrUnknownService = errors.New("unknown service")

// Key names a keychain entry.
type Key string

const (
	OpenAI    Key = "openai-api-key"
	Anthropic Key = "anthropic-api-key"
)

// Keys lists every entry the direct provider reads.
func Keys() []Key {
	return []Key{OpenAI, Anthropic}
}

// Service is the short name used on the command line.
func (k Key) Service() string {
	switch k {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	default:
		return string(k)
	}
}

// ParseKey maps a service name ("openai") or entry name to a Key.
func ParseKey(name string) (Key, error) {
	for _, k := range Keys() {
		if name == k.Service() || name == string(k) {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownService, name)
}

// Source says where a resolved key came from.
type Source int

const (
	SourceNone Source = iota
	SourceEnv
	SourceKeychain
)

func (s Source) String() string {
	switch s {
	case SourceEnv:
		return "environment"
	case SourceKeychain:
		return "keychain"
	default:
		return "not set"
	}
}

// Lookup prefers envValue and falls back to the keychain.
func Lookup(k Key, envValue string) (string, Source) {
	if envValue != "" {
		return envValue, SourceEnv
	}

	secret, err := Get(k)
	if err != nil {
		slog.Debug("keychain lookup failed", "key", k.Service(), "error", err)
		return "", SourceNone
	}

	return secret, SourceKeychain
}

func Get(k Key) (string, error) {
	value, err := keyring.Get(serviceName, string(k))
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keychain: %w", k.Service(), err)
	}

	return value, nil
}

func Set(k Key, value string) error {
	if err := keyring.Set(serviceName, string(k), value); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", k.Service(), err)
	}

	return nil
}

// Delete removes a stored key. Removing an absent key is not an error.
func Delete(k Key) error {
	err := keyring.Delete(serviceName, string(k))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keychain: %w", k.Service(), err)
	}

	return nil
}

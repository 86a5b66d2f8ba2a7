package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// CredentialEnv is consulted before the OS keyring.
	CredentialEnv = "OPENROUTER_API_KEY"

	keyringService = "heddle"
	keyringUser    = "openrouter_api_key"
)

// APIKey resolves the provider credential: environment first, then the OS
// keyring.
func APIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(CredentialEnv)); key != "" {
		return key, nil
	}
	key, err := keyring.Get(keyringService, keyringUser)
	if err == nil {
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key: set %s or store one with 'heddle auth set'", CredentialEnv)
}

// KeySource reports where APIKey would find the credential: "env",
// "keyring", or "" when absent. Used by doctor and auth show.
func KeySource() string {
	if strings.TrimSpace(os.Getenv(CredentialEnv)) != "" {
		return "env"
	}
	if key, err := keyring.Get(keyringService, keyringUser); err == nil && strings.TrimSpace(key) != "" {
		return "keyring"
	}
	return ""
}

// StoreAPIKey writes the credential to the OS keyring.
func StoreAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("refusing to store an empty API key")
	}
	return keyring.Set(keyringService, keyringUser, key)
}

// DeleteAPIKey removes the keyring credential. Missing entries are not an
// error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MaskKey renders a credential for display, keeping only the edges.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

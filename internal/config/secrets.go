package config

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "uniguide"
	tokenKey    = "remote_token"
)

// ErrNoSecret is returned when the secret store has no entry for a key.
var ErrNoSecret = errors.New("secret not found")

// SecretStore holds values that must not be written to the config file.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// keyringSecrets stores secrets in the OS keyring, falling back to an
// encrypted file where no native keyring exists.
type keyringSecrets struct{}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/uniguide/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("uniguide-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (keyringSecrets) Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoSecret
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (keyringSecrets) Set(key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (keyringSecrets) Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// SetToken stores the remote bearer token in the OS keyring.
func SetToken(token string) error {
	return keyringSecrets{}.Set(tokenKey, token)
}

// DeleteToken removes the stored remote bearer token, if any.
func DeleteToken() error {
	return keyringSecrets{}.Delete(tokenKey)
}

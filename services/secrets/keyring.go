package secrets

import (
	"fmt"

	"github.com/99designs/keyring"

	"github.com/inboxkeep/mailclerk/interfaces"
)

const serviceName = "mailclerk"

// keyringStore backs SecretStore with the OS keychain, falling back to an
// encrypted file when no system backend is available (headless machines, CI).
type keyringStore struct {
	ring keyring.Keyring
}

func NewKeyringStore() (interfaces.SecretStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailclerk/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailclerk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &keyringStore{ring: ring}, nil
}

func (s *keyringStore) Store(key, secret string) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("storing secret: %w", err)
	}
	return nil
}

func (s *keyringStore) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(item.Data), nil
}

func (s *keyringStore) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting secret: %w", err)
	}
	return nil
}

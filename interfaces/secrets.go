package interfaces

// SecretStore is the OS-level secret storage collaborator (system keychain
// with a file fallback). The core never persists secrets anywhere else.
type SecretStore interface {
	Store(key, secret string) error
	Get(key string) (string, error)
	Delete(key string) error
}

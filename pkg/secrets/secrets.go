package secrets

import (
	"context"
	"sync"

	"forum-session-demo/backend/pkg/logger"
)

// Manager provides access to secrets from various sources. The forum API
// key and the text-generation key go through here so deployments can keep
// them out of the process environment.
type Manager interface {
	// GetSecret retrieves a secret by key.
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret, returning defaultValue when
	// it cannot be found.
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

var (
	defaultManager Manager
	managerOnce    sync.Once
)

// Init initializes the default secrets manager.
func Init(log *logger.Logger) error {
	var err error
	managerOnce.Do(func() {
		manager, initErr := NewVaultManager(log)
		if initErr != nil {
			err = initErr
			return
		}
		defaultManager = manager
	})
	return err
}

// GetSecret retrieves a secret from the default manager.
func GetSecret(ctx context.Context, key string) (string, error) {
	if defaultManager == nil {
		return "", ErrManagerNotInitialized
	}
	return defaultManager.GetSecret(ctx, key)
}

// GetSecretWithDefault retrieves a secret with a default value if not found.
func GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if defaultManager == nil {
		return defaultValue
	}
	return defaultManager.GetSecretWithDefault(ctx, key, defaultValue)
}

// SetManager replaces the default manager (primarily used for testing).
func SetManager(manager Manager) {
	defaultManager = manager
}

// Error represents a secrets management error.
type Error string

func (e Error) Error() string {
	return string(e)
}

// ErrManagerNotInitialized is returned when Init has not been called.
var ErrManagerNotInitialized = Error("secrets manager not initialized")

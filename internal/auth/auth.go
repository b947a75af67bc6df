// Package auth resolves bearer tokens to payment owners. Two variants
// exist behind the Authenticator interface: a database-native one with
// local credentials, and one that trusts a hosted identity provider.
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"paydue/internal/config"
	"paydue/internal/log"
)

// Owner is the resolved identity a request acts on behalf of.
type Owner struct {
	ID    string
	Email string
	Name  string
}

// Authenticator turns a bearer token into an Owner or ErrUnauthenticated.
type Authenticator interface {
	CurrentOwner(ctx context.Context, token string) (Owner, error)
	SignOut(ctx context.Context, token string) error
}

// User is a stored credential record for the local variant.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists local credential records.
type UserStore interface {
	CreateUser(ctx context.Context, user User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}

// New builds the Authenticator selected by AUTH_BACKEND.
func New(cfg *config.Config, users UserStore, sessions *Sessions, logger *log.Logger) (Authenticator, error) {
	switch cfg.AuthBackend {
	case "local":
		logger.Info("using local auth backend")
		return NewLocal([]byte(cfg.JWTSecret), cfg.TokenTTL, users, sessions), nil
	case "provider":
		pemBytes := []byte(cfg.ProviderPublicKey)
		if cfg.ProviderPublicKeyFile != "" {
			data, err := os.ReadFile(cfg.ProviderPublicKeyFile)
			if err != nil {
				return nil, fmt.Errorf("reading provider public key file: %w", err)
			}
			pemBytes = data
		}
		logger.Info("using provider auth backend", "issuer", cfg.ProviderIssuer)
		return NewProvider(pemBytes, cfg.ProviderIssuer, sessions)
	default:
		return nil, fmt.Errorf("unknown auth backend: %s", cfg.AuthBackend)
	}
}

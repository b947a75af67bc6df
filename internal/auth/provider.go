package auth

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"paydue/internal/core"
)

type providerClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Provider trusts tokens minted by a hosted identity provider. It only
// verifies signatures offline; the provider owns the session itself, so
// sign-out just notifies local subscribers.
type Provider struct {
	publicKey *rsa.PublicKey
	issuer    string
	sessions  *Sessions
}

func NewProvider(publicKeyPEM []byte, issuer string, sessions *Sessions) (*Provider, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing provider public key: %w", err)
	}
	return &Provider{publicKey: key, issuer: issuer, sessions: sessions}, nil
}

func (p *Provider) CurrentOwner(ctx context.Context, tokenString string) (Owner, error) {
	claims := &providerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return p.publicKey, nil
	}, jwt.WithIssuer(p.issuer))
	if err != nil || !token.Valid {
		return Owner{}, fmt.Errorf("%w: invalid token", core.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return Owner{}, fmt.Errorf("%w: token missing subject", core.ErrUnauthenticated)
	}

	return Owner{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

func (p *Provider) SignOut(ctx context.Context, tokenString string) error {
	owner, err := p.CurrentOwner(ctx, tokenString)
	if err != nil {
		return err
	}
	p.sessions.emit(EventSignOut, owner.ID)
	return nil
}

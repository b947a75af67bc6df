package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"paydue/internal/core"
)

type localClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Local is the database-native Authenticator: bcrypt credentials,
// HS256 tokens, sign-out tracked in an in-memory revocation set.
type Local struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
	sessions *Sessions

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewLocal(secret []byte, tokenTTL time.Duration, users UserStore, sessions *Sessions) *Local {
	return &Local{
		secret:   secret,
		tokenTTL: tokenTTL,
		users:    users,
		sessions: sessions,
		revoked:  make(map[string]time.Time),
	}
}

// Register creates a credential record and signs the new owner in.
func (l *Local) Register(ctx context.Context, email, name, password string) (Owner, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Owner{}, "", fmt.Errorf("%w: a valid email is required", core.ErrValidation)
	}
	if len(password) < 8 {
		return Owner{}, "", fmt.Errorf("%w: password must be at least 8 characters", core.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Owner{}, "", fmt.Errorf("hashing password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.users.CreateUser(ctx, user); err != nil {
		return Owner{}, "", err
	}

	return l.signIn(user)
}

// Login verifies credentials and issues a fresh token.
func (l *Local) Login(ctx context.Context, email, password string) (Owner, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := l.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Owner{}, "", fmt.Errorf("%w: invalid credentials", core.ErrUnauthenticated)
		}
		return Owner{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Owner{}, "", fmt.Errorf("%w: invalid credentials", core.ErrUnauthenticated)
	}

	return l.signIn(user)
}

func (l *Local) signIn(user User) (Owner, string, error) {
	now := time.Now()
	claims := localClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return Owner{}, "", fmt.Errorf("signing token: %w", err)
	}

	owner := Owner{ID: user.ID, Email: user.Email, Name: user.Name}
	l.sessions.emit(EventSignIn, owner.ID)
	return owner, signed, nil
}

func (l *Local) CurrentOwner(ctx context.Context, tokenString string) (Owner, error) {
	claims, err := l.parse(tokenString)
	if err != nil {
		return Owner{}, err
	}

	l.mu.Lock()
	_, revoked := l.revoked[claims.ID]
	l.mu.Unlock()
	if revoked {
		return Owner{}, fmt.Errorf("%w: token revoked", core.ErrUnauthenticated)
	}

	return Owner{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// SignOut revokes the presented token for the rest of its lifetime.
func (l *Local) SignOut(ctx context.Context, tokenString string) error {
	claims, err := l.parse(tokenString)
	if err != nil {
		return err
	}

	expiry := time.Now().Add(l.tokenTTL)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	l.mu.Lock()
	now := time.Now()
	for id, exp := range l.revoked {
		if exp.Before(now) {
			delete(l.revoked, id)
		}
	}
	l.revoked[claims.ID] = expiry
	l.mu.Unlock()

	l.sessions.emit(EventSignOut, claims.Subject)
	return nil
}

func (l *Local) parse(tokenString string) (*localClaims, error) {
	claims := &localClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return l.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", core.ErrUnauthenticated)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: token missing subject", core.ErrUnauthenticated)
	}
	return claims, nil
}

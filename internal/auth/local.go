package auth

import (
	"context"
	"strings"

	"ecoquest-service/internal/infra/local"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore persists local sign-in records. *local.Store satisfies it.
type CredentialStore interface {
	SetCredential(ctx context.Context, email string, cred local.Credential) error
	Credential(ctx context.Context, email string) (local.Credential, bool, error)
}

// LocalAuthenticator is the sign-up/sign-in fallback when no external auth
// provider is configured. Passwords are stored bcrypt-hashed in the local
// store.
type LocalAuthenticator struct {
	store CredentialStore
}

func NewLocalAuthenticator(store CredentialStore) *LocalAuthenticator {
	return &LocalAuthenticator{store: store}
}

// SignUp registers a new email and returns its identity.
func (a *LocalAuthenticator) SignUp(ctx context.Context, email, password, role string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	if _, exists, err := a.store.Credential(ctx, email); err != nil {
		return Identity{}, err
	} else if exists {
		return Identity{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}
	if role == "" {
		role = "student"
	}
	cred := local.Credential{UserID: uuid.NewString(), PasswordHash: hash, Role: role}
	if err := a.store.SetCredential(ctx, email, cred); err != nil {
		return Identity{}, err
	}
	return Identity{ID: cred.UserID, Email: email, Role: role}, nil
}

// SignIn checks a password against the stored hash.
func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cred, exists, err := a.store.Credential(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if !exists {
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: cred.UserID, Email: email, Role: cred.Role}, nil
}

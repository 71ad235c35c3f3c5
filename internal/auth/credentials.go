package auth

import (
	"context"
	"strings"
	"sync"
)

// Credential is the users×roles join row used for login. The password hash
// is opaque to everything except VerifyPassword.
type Credential struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
	Role         string // role name, e.g. "Doctor" or "Administrador"
	RoleID       int64
}

// CredentialStore looks up login credentials. Implemented by store/pg and by
// StaticCredentials for tests and demo runs.
type CredentialStore interface {
	// FindByUsername returns ErrNotFound when the username is unknown.
	FindByUsername(ctx context.Context, username string) (Credential, error)
}

// Service authenticates users against stored bcrypt hashes.
type Service struct {
	store CredentialStore
}

// NewService constructs a Service over a credential store.
func NewService(store CredentialStore) *Service {
	return &Service{store: store}
}

// Authenticate verifies the username/password pair. Unknown users and wrong
// passwords both come back as ErrUnauthorized so the API cannot be used to
// enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Credential, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Credential{}, ErrUnauthorized
	}
	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return Credential{}, ErrUnauthorized
	}
	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return Credential{}, ErrUnauthorized
	}
	return cred, nil
}

// StaticCredentials is an in-memory CredentialStore.
type StaticCredentials struct {
	mu    sync.RWMutex
	byKey map[string]Credential
}

// NewStaticCredentials builds a store from the given credentials.
func NewStaticCredentials(creds ...Credential) *StaticCredentials {
	s := &StaticCredentials{byKey: make(map[string]Credential, len(creds))}
	for _, c := range creds {
		s.byKey[strings.ToLower(c.Username)] = c
	}
	return s
}

// Add registers or replaces a credential.
func (s *StaticCredentials) Add(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[strings.ToLower(c.Username)] = c
}

func (s *StaticCredentials) FindByUsername(ctx context.Context, username string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[strings.ToLower(username)]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

var _ CredentialStore = (*StaticCredentials)(nil)

package backendapi

import (
	"sync"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

// CredentialStore holds the bearer tokens issued by the marketplace backend.
// The backend also sets httponly session cookies; those live in the shared
// cookie jar, this store only covers the Authorization header material.
type CredentialStore struct {
	mu         sync.RWMutex
	userToken  string
	ownerToken string
}

// NewCredentialStore creates an empty credential store
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// SetToken stores the access token for a role. Empty tokens are ignored.
func (s *CredentialStore) SetToken(role entities.Role, token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch role {
	case entities.RoleOwner:
		s.ownerToken = token
	default:
		s.userToken = token
	}
}

// Token returns the bearer token to attach to outgoing requests. The owner
// token takes precedence when both roles are logged in.
func (s *CredentialStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ownerToken != "" {
		return s.ownerToken
	}
	return s.userToken
}

// ActiveRole returns the role whose token is currently attached to requests.
func (s *CredentialStore) ActiveRole() entities.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ownerToken != "" {
		return entities.RoleOwner
	}
	return entities.RoleUser
}

// Clear removes all stored credential material
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userToken = ""
	s.ownerToken = ""
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"dripmate/models"

	"go.uber.org/zap"
)

const (
	TokenKey = "token"
	UserKey  = "user"
)

// SessionStore holds the bearer token and the cached profile. A missing token
// is the only thing that means "logged out".
type SessionStore struct {
	backend Backend
	logger  *zap.Logger
}

func NewSessionStore(backend Backend, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{backend: backend, logger: logger}
}

// Token reports the stored token. An unreadable backend counts as logged out.
func (s *SessionStore) Token() (string, bool) {
	token, ok, err := s.backend.GetItem(TokenKey)
	if err != nil {
		s.logger.Warn("Failed to read session token", zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *SessionStore) SetToken(token string) error {
	if token == "" {
		return s.ClearToken()
	}
	return s.backend.SetItem(TokenKey, token)
}

func (s *SessionStore) ClearToken() error {
	return s.backend.RemoveItem(TokenKey)
}

func (s *SessionStore) CachedUser() (*models.Profile, bool) {
	raw, ok, err := s.backend.GetItem(UserKey)
	if err != nil {
		s.logger.Warn("Failed to read cached user", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var profile models.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		s.logger.Warn("Dropping undecodable cached user", zap.Error(err))
		return nil, false
	}
	return &profile, true
}

func (s *SessionStore) SetCachedUser(profile models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}
	return s.backend.SetItem(UserKey, string(data))
}

func (s *SessionStore) ClearCachedUser() error {
	return s.backend.RemoveItem(UserKey)
}

// Clear drops the token and the cached user together.
func (s *SessionStore) Clear() error {
	return errors.Join(s.ClearToken(), s.ClearCachedUser())
}

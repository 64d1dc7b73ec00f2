package controllers

import (
	"context"
	"sync"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"go.uber.org/zap"
)

type ProfileState struct {
	Status
	Profile *models.Profile `json:"profile,omitempty"`
}

type ProfileView struct {
	api     services.DripMateProvider
	session *storage.SessionStore
	logger  *zap.Logger

	mu    sync.Mutex
	state ProfileState
}

// NewProfileView starts from the cached user so the page has something to
// show before Load returns.
func NewProfileView(api services.DripMateProvider, session *storage.SessionStore, logger *zap.Logger) *ProfileView {
	v := &ProfileView{api: api, session: session, logger: logger}
	if user, ok := session.CachedUser(); ok {
		v.state.Profile = user
	}
	return v
}

func (v *ProfileView) State() ProfileState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ProfileView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state.begin()
	v.mu.Unlock()

	profile, err := v.api.GetProfile(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state.fail(err, v.session, v.logger)
		if services.IsUnauthorized(err) {
			v.state.Profile = nil
		}
		return err
	}
	v.state.Loading = false
	v.state.Profile = &profile
	if err := v.session.SetCachedUser(profile); err != nil {
		v.logger.Warn("Failed to cache profile", zap.Error(err))
	}
	return nil
}

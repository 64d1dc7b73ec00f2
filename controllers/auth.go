package controllers

import (
	"context"
	"strings"
	"sync"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"go.uber.org/zap"
)

type AuthState struct {
	Status
	User *models.Profile `json:"user,omitempty"`
}

type AuthView struct {
	api     services.DripMateProvider
	session *storage.SessionStore
	logger  *zap.Logger

	mu    sync.Mutex
	state AuthState
}

func NewAuthView(api services.DripMateProvider, session *storage.SessionStore, logger *zap.Logger) *AuthView {
	v := &AuthView{api: api, session: session, logger: logger}
	if user, ok := session.CachedUser(); ok {
		v.state.User = user
	}
	return v
}

func (v *AuthView) State() AuthState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *AuthView) Login(ctx context.Context, in models.LoginIn) error {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return v.reject("Please enter your email and password")
	}
	v.start()
	if _, err := v.api.Login(ctx, in); err != nil {
		return v.authFailed(err)
	}
	v.finish(ctx)
	return nil
}

func (v *AuthView) Signup(ctx context.Context, in models.SignupIn) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return v.reject("Please fill in your name, email and password")
	}
	v.start()
	if _, err := v.api.Signup(ctx, in); err != nil {
		return v.authFailed(err)
	}
	v.finish(ctx)
	return nil
}

func (v *AuthView) Logout() error {
	err := v.api.Logout()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = AuthState{Status: Status{Redirect: LoginPath}}
	if err != nil {
		v.logger.Error("Failed to clear session on logout", zap.Error(err))
	}
	return err
}

func (v *AuthView) reject(message string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Status = Status{Error: message}
	return validationFailure(message)
}

func (v *AuthView) start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.begin()
}

// authFailed keeps the message inline; a rejected login must not bounce the
// user back to the page they are already on.
func (v *AuthView) authFailed(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Loading = false
	v.state.Error = services.ErrorMessage(err)
	return err
}

// finish follows a successful login or signup with a profile fetch so the
// cached user carries the counts. A failed fetch keeps whatever the auth
// response cached.
func (v *AuthView) finish(ctx context.Context) {
	profile, err := v.api.GetProfile(ctx)
	if err == nil {
		if cacheErr := v.session.SetCachedUser(profile); cacheErr != nil {
			v.logger.Warn("Failed to cache profile", zap.Error(cacheErr))
		}
	} else {
		v.logger.Warn("Profile fetch after login failed", zap.Error(err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Loading = false
	v.state.Redirect = HomePath
	if user, ok := v.session.CachedUser(); ok {
		v.state.User = user
	}
}

package controllers

import (
	"context"
	"sync"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"go.uber.org/zap"
)

type SavedState struct {
	Status
	Favorites []models.FavoriteFit `json:"favorites"`
}

// SavedView lists the favorites kept by the backend.
type SavedView struct {
	api     services.DripMateProvider
	session *storage.SessionStore
	logger  *zap.Logger

	mu    sync.Mutex
	state SavedState
}

func NewSavedView(api services.DripMateProvider, session *storage.SessionStore, logger *zap.Logger) *SavedView {
	return &SavedView{
		api:     api,
		session: session,
		logger:  logger,
		state:   SavedState{Favorites: []models.FavoriteFit{}},
	}
}

func (v *SavedView) State() SavedState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.state
	state.Favorites = append([]models.FavoriteFit{}, v.state.Favorites...)
	return state
}

func (v *SavedView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state.begin()
	v.mu.Unlock()

	favorites, err := v.api.ListFavorites(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state.fail(err, v.session, v.logger)
		return err
	}
	v.state.Loading = false
	v.state.Favorites = favorites
	return nil
}

func (v *SavedView) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return nil
	}
	if err := v.api.DeleteFavorite(ctx, id); err != nil {
		v.mu.Lock()
		v.state.fail(err, v.session, v.logger)
		v.mu.Unlock()
		return err
	}
	return v.Load(ctx)
}

// FitsView is the device-local list of saved fits.
type FitsView struct {
	prefs *storage.PreferenceStore
}

func NewFitsView(prefs *storage.PreferenceStore) *FitsView {
	return &FitsView{prefs: prefs}
}

func (v *FitsView) List() ([]models.FavoriteFit, error) {
	return v.prefs.Fits()
}

func (v *FitsView) Delete(id int64, confirmed bool) error {
	if !confirmed {
		return nil
	}
	return v.prefs.RemoveFit(id)
}

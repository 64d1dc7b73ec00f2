package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"dripmate/models"

	"go.uber.org/zap"
)

const (
	WardrobeKey     = "dripmate_wardrobe"
	FitsKey         = "dripmate_fits"
	SelectedItemKey = "dripmate_selected_item"
	ThemeKey        = "theme"
)

// PreferenceStore keeps UI state that should survive restarts but carries no
// credentials. Each key is read and written on its own.
type PreferenceStore struct {
	backend Backend
	logger  *zap.Logger
}

func NewPreferenceStore(backend Backend, logger *zap.Logger) *PreferenceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceStore{backend: backend, logger: logger}
}

// readJSON decodes key into T. A missing or undecodable value yields fallback;
// only backend failures are returned as errors.
func readJSON[T any](p *PreferenceStore, key string, fallback T) (T, error) {
	raw, ok, err := p.backend.GetItem(key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		p.logger.Warn("Ignoring undecodable preference", zap.String("key", key), zap.Error(err))
		return fallback, nil
	}
	return value, nil
}

func (p *PreferenceStore) writeJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.backend.SetItem(key, string(data))
}

func (p *PreferenceStore) Wardrobe() ([]models.WardrobeItem, error) {
	items, err := readJSON(p, WardrobeKey, []models.WardrobeItem{})
	if items == nil {
		items = []models.WardrobeItem{}
	}
	return items, err
}

func (p *PreferenceStore) SetWardrobe(items []models.WardrobeItem) error {
	if items == nil {
		items = []models.WardrobeItem{}
	}
	return p.writeJSON(WardrobeKey, items)
}

func (p *PreferenceStore) Fits() ([]models.FavoriteFit, error) {
	fits, err := readJSON(p, FitsKey, []models.FavoriteFit{})
	if fits == nil {
		fits = []models.FavoriteFit{}
	}
	return fits, err
}

func (p *PreferenceStore) SetFits(fits []models.FavoriteFit) error {
	if fits == nil {
		fits = []models.FavoriteFit{}
	}
	return p.writeJSON(FitsKey, fits)
}

// AddFit stores fit ahead of the existing ones, newest first.
func (p *PreferenceStore) AddFit(fit models.FavoriteFit) error {
	fits, err := p.Fits()
	if err != nil {
		return err
	}
	return p.SetFits(append([]models.FavoriteFit{fit}, fits...))
}

func (p *PreferenceStore) RemoveFit(id int64) error {
	fits, err := p.Fits()
	if err != nil {
		return err
	}
	kept := make([]models.FavoriteFit, 0, len(fits))
	for _, fit := range fits {
		if fit.ID != id {
			kept = append(kept, fit)
		}
	}
	return p.SetFits(kept)
}

func (p *PreferenceStore) SelectedItem() (*models.WardrobeItem, error) {
	return readJSON[*models.WardrobeItem](p, SelectedItemKey, nil)
}

// SetSelectedItem with nil forgets the selection.
func (p *PreferenceStore) SetSelectedItem(item *models.WardrobeItem) error {
	if item == nil {
		return p.backend.RemoveItem(SelectedItemKey)
	}
	return p.writeJSON(SelectedItemKey, item)
}

// Theme is stored as the bare string, not JSON.
func (p *PreferenceStore) Theme() (models.Theme, error) {
	raw, ok, err := p.backend.GetItem(ThemeKey)
	if err != nil {
		return models.DefaultTheme, err
	}
	if !ok {
		return models.DefaultTheme, nil
	}
	theme, err := models.ParseTheme(raw)
	if err != nil {
		p.logger.Warn("Ignoring unknown theme", zap.String("theme", raw))
		return models.DefaultTheme, nil
	}
	return theme, nil
}

func (p *PreferenceStore) SetTheme(theme models.Theme) error {
	if _, err := models.ParseTheme(string(theme)); err != nil {
		return err
	}
	return p.backend.SetItem(ThemeKey, string(theme))
}

// ClearAll wipes the wardrobe and fits caches. Theme, selection and the
// session are left alone.
func (p *PreferenceStore) ClearAll() error {
	return errors.Join(
		p.backend.RemoveItem(WardrobeKey),
		p.backend.RemoveItem(FitsKey),
	)
}

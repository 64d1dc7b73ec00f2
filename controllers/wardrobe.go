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

type WardrobeState struct {
	Status
	Items    []models.WardrobeItem `json:"items"`
	Form     models.WardrobeItem   `json:"form"`
	Selected *models.WardrobeItem  `json:"selected,omitempty"`
}

type WardrobeView struct {
	api      services.DripMateProvider
	analyzer services.ImageAnalyzer
	prefs    *storage.PreferenceStore
	session  *storage.SessionStore
	logger   *zap.Logger

	mu    sync.Mutex
	state WardrobeState
}

func emptyItemForm() models.WardrobeItem {
	return models.WardrobeItem{Category: models.CategoryClothing}
}

// NewWardrobeView shows the cached list until Load replaces it. analyzer may
// be nil, in which case images go straight to the API.
func NewWardrobeView(api services.DripMateProvider, analyzer services.ImageAnalyzer, prefs *storage.PreferenceStore, session *storage.SessionStore, logger *zap.Logger) *WardrobeView {
	if analyzer == nil {
		analyzer = api
	}
	v := &WardrobeView{api: api, analyzer: analyzer, prefs: prefs, session: session, logger: logger}
	cached, err := prefs.Wardrobe()
	if err != nil {
		logger.Warn("Failed to read cached wardrobe", zap.Error(err))
	}
	selected, err := prefs.SelectedItem()
	if err != nil {
		logger.Warn("Failed to read selected item", zap.Error(err))
	}
	v.state = WardrobeState{Items: cached, Form: emptyItemForm(), Selected: selected}
	return v
}

func (v *WardrobeView) State() WardrobeState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.state
	state.Items = append([]models.WardrobeItem{}, v.state.Items...)
	return state
}

// Load refetches the wardrobe and mirrors it into the local cache.
func (v *WardrobeView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state.begin()
	v.mu.Unlock()

	items, err := v.api.ListWardrobe(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state.fail(err, v.session, v.logger)
		return err
	}
	v.state.Loading = false
	v.state.Items = items
	if err := v.prefs.SetWardrobe(items); err != nil {
		v.logger.Warn("Failed to cache wardrobe", zap.Error(err))
	}
	return nil
}

// Add creates the item, then refetches; the list shown is always the
// backend's.
func (v *WardrobeView) Add(ctx context.Context, item models.WardrobeItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		v.mu.Lock()
		v.state.Form = item
		v.state.Error = "Please give the item a name"
		v.mu.Unlock()
		return validationFailure("Please give the item a name")
	}
	if item.Category == "" {
		item.Category = models.CategoryClothing
	}
	v.mu.Lock()
	v.state.Form = item
	v.state.begin()
	v.mu.Unlock()

	if _, err := v.api.AddWardrobeItem(ctx, item); err != nil {
		v.mu.Lock()
		v.state.fail(err, v.session, v.logger)
		v.mu.Unlock()
		return err
	}
	v.mu.Lock()
	v.state.Form = emptyItemForm()
	v.mu.Unlock()
	return v.Load(ctx)
}

// Delete does nothing unless confirmed.
func (v *WardrobeView) Delete(ctx context.Context, id uint, confirmed bool) error {
	if !confirmed {
		return nil
	}
	v.mu.Lock()
	v.state.begin()
	v.mu.Unlock()

	if err := v.api.DeleteWardrobeItem(ctx, id); err != nil {
		v.mu.Lock()
		v.state.fail(err, v.session, v.logger)
		v.mu.Unlock()
		return err
	}
	v.mu.Lock()
	if v.state.Selected != nil && v.state.Selected.ID == id {
		v.state.Selected = nil
		if err := v.prefs.SetSelectedItem(nil); err != nil {
			v.logger.Warn("Failed to clear selected item", zap.Error(err))
		}
	}
	v.mu.Unlock()
	return v.Load(ctx)
}

// Analyze fills the add form from a photo. Fields the analysis leaves empty
// keep what the form already had.
func (v *WardrobeView) Analyze(ctx context.Context, upload models.ImageUpload) (models.WardrobeItem, error) {
	attrs, err := v.analyzer.AnalyzeImage(ctx, upload)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.logger.Info("Image analysis failed", zap.Error(err))
		v.state.fail(err, v.session, v.logger)
		return v.state.Form, err
	}
	v.state.Form = mergeAnalysis(v.state.Form, attrs)
	v.state.Error = ""
	return v.state.Form, nil
}

func mergeAnalysis(form models.WardrobeItem, attrs models.ItemAttributes) models.WardrobeItem {
	if category := models.Category(strings.ToLower(attrs.Category)); category.Valid() {
		form.Category = category
	}
	if attrs.Name != "" {
		form.Name = attrs.Name
	}
	if attrs.Color != "" {
		form.Color = attrs.Color
	}
	if attrs.Season != "" {
		form.Season = attrs.Season
	}
	var notes []string
	for _, part := range []string{attrs.Pattern, attrs.Style} {
		if part != "" {
			notes = append(notes, part)
		}
	}
	if len(notes) > 0 {
		form.Notes = strings.Join(notes, ", ")
	}
	return form
}

// Select remembers item for the suggestion form. nil clears the selection.
func (v *WardrobeView) Select(item *models.WardrobeItem) error {
	if err := v.prefs.SetSelectedItem(item); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Selected = item
	return nil
}

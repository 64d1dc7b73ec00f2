package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dripmate/languageutil"
	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"go.uber.org/zap"
)

var ErrSuggestionPending = errors.New("a suggestion is already in progress")

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type GarmentLine struct {
	Label  string `json:"label"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// OutfitCard is one outfit as the chat renders it.
type OutfitCard struct {
	OutfitID int           `json:"outfit_id"`
	Title    string        `json:"title"`
	Garments []GarmentLine `json:"garments"`
	Summary  string        `json:"summary"`
}

type ChatMessage struct {
	Sender       string               `json:"sender"`
	Text         string               `json:"text,omitempty"`
	Error        string               `json:"error,omitempty"`
	DetectedItem *models.DetectedItem `json:"detected_item,omitempty"`
	Outfits      []models.Outfit      `json:"outfits,omitempty"`
}

type ChatState struct {
	Status
	Form     models.OutfitRequest `json:"form"`
	FormOpen bool                 `json:"form_open"`
	Messages []ChatMessage        `json:"messages"`
	Notice   string               `json:"notice,omitempty"`
}

// ChatView drives the suggestion form and its transcript. Only one suggestion
// request runs at a time; Reset drops the result of any request still running.
type ChatView struct {
	api     services.DripMateProvider
	prefs   *storage.PreferenceStore
	session *storage.SessionStore
	logger  *zap.Logger
	now     func() time.Time

	inFlight   atomic.Bool
	generation atomic.Uint64

	mu    sync.Mutex
	state ChatState
	// form of the request that produced the outfits on screen
	lastForm models.OutfitRequest
}

func NewChatView(api services.DripMateProvider, prefs *storage.PreferenceStore, session *storage.SessionStore, logger *zap.Logger) *ChatView {
	v := &ChatView{
		api:     api,
		prefs:   prefs,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
	v.state = ChatState{Form: v.seedForm(), FormOpen: true, Messages: []ChatMessage{}}
	return v
}

func (v *ChatView) seedForm() models.OutfitRequest {
	form := models.DefaultOutfitRequest()
	item, err := v.prefs.SelectedItem()
	if err != nil {
		v.logger.Warn("Failed to read selected item", zap.Error(err))
	}
	if item != nil {
		form.Item = item.Label()
	}
	return form
}

func (v *ChatView) State() ChatState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.state
	state.Messages = append([]ChatMessage(nil), v.state.Messages...)
	return state
}

func (v *ChatView) Pending() bool {
	return v.inFlight.Load()
}

// Submit asks for outfit ideas. A second call while one is running returns
// ErrSuggestionPending without contacting the backend.
func (v *ChatView) Submit(ctx context.Context, form models.OutfitRequest) (models.SuggestionResult, error) {
	if strings.TrimSpace(form.Item) == "" || strings.TrimSpace(form.Vibe) == "" || form.Gender == "" {
		failure := models.SuggestionFailure{Error: "Please enter an item, a vibe and a gender"}
		v.mu.Lock()
		v.state.Form = form
		v.state.Error = failure.Error
		v.mu.Unlock()
		return failure, nil
	}
	if !v.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSuggestionPending
	}
	defer v.inFlight.Store(false)

	gen := v.generation.Load()
	v.mu.Lock()
	v.state.Form = form
	v.state.begin()
	v.state.Notice = ""
	v.state.Messages = append(v.state.Messages, ChatMessage{
		Sender: SenderUser,
		Text:   "Getting suggestions for: " + form.Item,
	})
	v.mu.Unlock()

	result := v.api.GetOutfitSuggestion(ctx, form)
	v.apply(gen, form, result)
	return result, nil
}

// SubmitImage asks for ideas around a photographed item.
func (v *ChatView) SubmitImage(ctx context.Context, upload models.ImageUpload, prompt string, useWardrobe bool) (models.SuggestionResult, error) {
	if len(upload.Data) == 0 {
		failure := models.SuggestionFailure{Error: "Please choose an image"}
		v.mu.Lock()
		v.state.Error = failure.Error
		v.mu.Unlock()
		return failure, nil
	}
	if !v.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSuggestionPending
	}
	defer v.inFlight.Store(false)

	gen := v.generation.Load()
	form := models.DefaultOutfitRequest()
	form.Vibe = prompt
	form.UseWardrobeOnly = useWardrobe
	v.mu.Lock()
	v.state.begin()
	v.state.Notice = ""
	v.state.Messages = append(v.state.Messages, ChatMessage{
		Sender: SenderUser,
		Text:   "Getting suggestions for: " + uploadLabel(upload),
	})
	v.mu.Unlock()

	result := v.api.GetOutfitFromImage(ctx, upload, prompt, useWardrobe)
	if success, ok := result.(models.SuggestionSuccess); ok && success.DetectedItem != nil {
		form.Item = success.DetectedItem.Name
	}
	v.apply(gen, form, result)
	return result, nil
}

func uploadLabel(upload models.ImageUpload) string {
	if upload.FileName == "" {
		return "your photo"
	}
	return upload.FileName
}

func (v *ChatView) apply(gen uint64, form models.OutfitRequest, result models.SuggestionResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation.Load() != gen {
		v.logger.Debug("Dropping superseded suggestion")
		return
	}
	v.state.Loading = false
	switch r := result.(type) {
	case models.SuggestionSuccess:
		v.lastForm = form
		v.state.FormOpen = false
		v.state.Messages = append(v.state.Messages, ChatMessage{
			Sender:       SenderBot,
			DetectedItem: r.DetectedItem,
			Outfits:      r.Outfits,
		})
	case models.SuggestionFailure:
		if r.Unauthorized {
			if err := v.session.Clear(); err != nil {
				v.logger.Error("Failed to clear session", zap.Error(err))
			}
			v.state.Error = ""
			v.state.Redirect = LoginPath
			return
		}
		v.state.Error = r.Error
		v.state.FormOpen = false
		v.state.Messages = append(v.state.Messages, ChatMessage{Sender: SenderBot, Error: r.Error})
	}
}

// Cards renders the outfits of the latest bot answer.
func (v *ChatView) Cards() []OutfitCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	outfits := v.latestOutfits()
	cards := make([]OutfitCard, 0, len(outfits))
	for i, outfit := range outfits {
		cards = append(cards, outfitCard(i, outfit))
	}
	return cards
}

func outfitCard(index int, outfit models.Outfit) OutfitCard {
	id := outfit.ID
	if id == 0 {
		id = index + 1
	}
	lines := make([]GarmentLine, 0, len(outfit.Garments))
	for _, g := range outfit.Garments {
		lines = append(lines, GarmentLine{Label: languageutil.SlotLabel(g.Slot), Name: g.Name, Reason: g.Reason})
	}
	return OutfitCard{
		OutfitID: id,
		Title:    fmt.Sprintf("Outfit %d", id),
		Garments: lines,
		Summary:  outfit.Summary(),
	}
}

func (v *ChatView) latestOutfits() []models.Outfit {
	for i := len(v.state.Messages) - 1; i >= 0; i-- {
		msg := v.state.Messages[i]
		if msg.Sender == SenderBot {
			return msg.Outfits
		}
	}
	return nil
}

func (v *ChatView) findOutfit(outfitID int) (models.Outfit, models.OutfitRequest, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, outfit := range v.latestOutfits() {
		id := outfit.ID
		if id == 0 {
			id = i + 1
		}
		if id == outfitID {
			return outfit, v.lastForm, nil
		}
	}
	return models.Outfit{}, v.lastForm, validationFailure(fmt.Sprintf("Outfit %d is not on screen", outfitID))
}

// SaveFavorite stores an outfit of the latest answer with the backend.
func (v *ChatView) SaveFavorite(ctx context.Context, outfitID int) (models.FavoriteFit, error) {
	outfit, form, err := v.findOutfit(outfitID)
	if err != nil {
		return models.FavoriteFit{}, err
	}
	saved, err := v.api.AddFavorite(ctx, models.NewFavoriteIn(outfit, form.Item, form.Vibe))

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if services.IsUnauthorized(err) {
			v.state.fail(err, v.session, v.logger)
			return saved, err
		}
		v.state.Notice = "Failed to save favorite"
		return saved, err
	}
	v.state.Notice = "Saved to favorites"
	return saved, nil
}

// SaveLocalFit keeps an outfit on this device only, no login needed.
func (v *ChatView) SaveLocalFit(outfitID int) (models.FavoriteFit, error) {
	outfit, form, err := v.findOutfit(outfitID)
	if err != nil {
		return models.FavoriteFit{}, err
	}
	fit := models.NewLocalFit(outfit, form.Item, v.now())
	fit.Title = models.NewFavoriteIn(outfit, form.Item, form.Vibe).Title
	fit.Vibe = form.Vibe
	if err := v.prefs.AddFit(fit); err != nil {
		return fit, err
	}
	v.mu.Lock()
	v.state.Notice = "Saved to fits"
	v.mu.Unlock()
	return fit, nil
}

// Reset re-opens the form for a new suggestion. The transcript stays.
func (v *ChatView) Reset() {
	v.generation.Add(1)
	v.mu.Lock()
	defer v.mu.Unlock()
	form := v.state.Form
	if form.Item == "" {
		form = v.seedForm()
	}
	v.state.Form = form
	v.state.FormOpen = true
	v.state.Status = Status{}
	v.state.Notice = ""
}

// Prefill puts a wardrobe item into the form, as picked on the wardrobe page.
func (v *ChatView) Prefill(item models.WardrobeItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Form.Item = item.Label()
	v.state.FormOpen = true
}

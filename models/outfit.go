package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

type LayeringPreference string

const (
	LayeringAIDecides LayeringPreference = "AI Decides"
	LayeringSuggest   LayeringPreference = "Suggest Layers"
	LayeringNone      LayeringPreference = "No Layers"
)

func ValidateLayering(fl validator.FieldLevel) bool {
	switch LayeringPreference(fl.Field().String()) {
	case LayeringAIDecides, LayeringSuggest, LayeringNone:
		return true
	}
	return false
}

// OutfitRequest is the suggestion form as it goes over the wire.
type OutfitRequest struct {
	Item               string             `json:"item" validate:"required,max=200"`
	Vibe               string             `json:"vibe" validate:"required,max=100"`
	Gender             string             `json:"gender,omitempty"`
	AgeGroup           string             `json:"age_group,omitempty"`
	SkinColour         string             `json:"skin_colour,omitempty"`
	NumIdeas           int                `json:"num_ideas,omitempty" validate:"omitempty,min=1,max=3"`
	MoreDetails        string             `json:"more_details,omitempty" validate:"omitempty,max=500"`
	LayeringPreference LayeringPreference `json:"layering_preference,omitempty" validate:"omitempty,layering"`
	UseWardrobeOnly    bool               `json:"use_wardrobe_only"`
}

func DefaultOutfitRequest() OutfitRequest {
	return OutfitRequest{
		Gender:             "Male",
		NumIdeas:           1,
		LayeringPreference: LayeringAIDecides,
	}
}

// SlotOrder is the canonical garment order. Both naming schemes the backend
// has used (item1/item2/footwear and top/bottom/layer/footwear) are accepted.
var SlotOrder = []string{"top", "item1", "bottom", "item2", "layer", "footwear"}

type Garment struct {
	Slot   string `json:"slot"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type garmentWire struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Outfit is one suggested fit. On the wire each garment is keyed by its slot
// name; Garments keeps them in SlotOrder after decoding.
type Outfit struct {
	ID       int
	Garments []Garment
}

func (o Outfit) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"id":%d`, o.ID)
	for _, g := range o.Garments {
		key, err := json.Marshal(g.Slot)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(garmentWire{Name: g.Name, Reason: g.Reason})
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Outfit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Outfit{}
	if id, ok := raw["id"]; ok {
		if err := json.Unmarshal(id, &o.ID); err != nil {
			return fmt.Errorf("outfit id: %w", err)
		}
	}
	for _, slot := range SlotOrder {
		value, ok := raw[slot]
		if !ok || string(value) == "null" {
			continue
		}
		var g garmentWire
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("outfit slot %s: %w", slot, err)
		}
		o.Garments = append(o.Garments, Garment{Slot: slot, Name: g.Name, Reason: g.Reason})
	}
	return nil
}

func (o Outfit) Names() []string {
	names := make([]string, 0, len(o.Garments))
	for _, g := range o.Garments {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}

func (o Outfit) Summary() string {
	return strings.Join(o.Names(), " + ")
}

type DetectedItem struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// SuggestionOut is the raw body of /chat and /chat/image. The backend reports
// model failures as {"error": ...} with a 200, so callers get a
// SuggestionResult instead.
type SuggestionOut struct {
	Error        string        `json:"error,omitempty"`
	DetectedItem *DetectedItem `json:"detected_item,omitempty"`
	Outfits      []Outfit      `json:"outfits"`
}

// SuggestionResult is either SuggestionSuccess or SuggestionFailure.
type SuggestionResult interface {
	isSuggestionResult()
}

type SuggestionSuccess struct {
	DetectedItem *DetectedItem `json:"detected_item,omitempty"`
	Outfits      []Outfit      `json:"outfits"`
}

type SuggestionFailure struct {
	Error        string `json:"error"`
	Unauthorized bool   `json:"-"`
}

func (SuggestionSuccess) isSuggestionResult() {}
func (SuggestionFailure) isSuggestionResult() {}

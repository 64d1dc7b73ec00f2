package models

import (
	"github.com/go-playground/validator"
)

type Category string

const (
	CategoryClothing  Category = "clothing"
	CategoryFootwear  Category = "footwear"
	CategoryAccessory Category = "accessory"
)

var Categories = []Category{CategoryClothing, CategoryFootwear, CategoryAccessory}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

// WardrobeItem as the client caches it. The backend owns the list, so the
// client never merges locally and always refetches after a change.
type WardrobeItem struct {
	ID       uint     `json:"id,omitempty"`
	Category Category `json:"category" validate:"required,category"`
	Name     string   `json:"name" validate:"required,max=100"`
	Color    string   `json:"color,omitempty" validate:"omitempty,max=50"`
	Season   string   `json:"season,omitempty" validate:"omitempty,max=50"`
	ImageURL string   `json:"image_url,omitempty" validate:"omitempty,max=500"`
	Notes    string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Label is how the suggestion form gets pre-filled from a selected item.
func (w WardrobeItem) Label() string {
	if w.Color == "" {
		return w.Name
	}
	return w.Name + " (" + w.Color + ")"
}

// ItemAttributes are inferred from a photo and only ever used to pre-fill the
// add-item form.
type ItemAttributes struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Season   string `json:"season"`
	Pattern  string `json:"pattern"`
	Style    string `json:"style"`
}

type ImageUpload struct {
	FileName string
	Data     []byte
}

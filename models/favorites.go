package models

import (
	"time"
)

type FavoriteIn struct {
	Title      string `json:"title" validate:"required,max=200"`
	SourceItem string `json:"source_item"`
	Vibe       string `json:"vibe"`
	Payload    Outfit `json:"payload"`
}

// FavoriteFit is a saved outfit, either returned by the backend or built
// locally by NewLocalFit when no backend is involved.
type FavoriteFit struct {
	ID         int64  `json:"id"`
	Title      string `json:"title,omitempty"`
	Summary    string `json:"summary,omitempty"`
	SourceItem string `json:"source_item,omitempty"`
	Vibe       string `json:"vibe,omitempty"`
	Payload    Outfit `json:"payload"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func NewFavoriteIn(outfit Outfit, item string, vibe string) FavoriteIn {
	title := vibe
	if title == "" {
		title = "Outfit"
	}
	return FavoriteIn{
		Title:      title + " idea",
		SourceItem: item,
		Vibe:       vibe,
		Payload:    outfit,
	}
}

func NewLocalFit(outfit Outfit, from string, now time.Time) FavoriteFit {
	return FavoriteFit{
		ID:         now.UnixMilli(),
		Summary:    outfit.Summary(),
		SourceItem: from,
		Payload:    outfit,
		CreatedAt:  now.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

package models

// Profile is the cached snapshot of the signed-in user. It is advisory only,
// the backend stays the authority on who the token belongs to.
type Profile struct {
	ID             uint   `json:"id,omitempty"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Gender         string `json:"gender,omitempty"`
	AgeGroup       string `json:"age_group,omitempty"`
	SkinColour     string `json:"skin_colour,omitempty"`
	WardrobeCount  int    `json:"wardrobe_count"`
	FavoritesCount int    `json:"favorites_count"`
}

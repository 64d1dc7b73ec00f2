package models

type SignupIn struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Gender     string `json:"gender,omitempty"`
	AgeGroup   string `json:"age_group,omitempty"`
	SkinColour string `json:"skin_colour,omitempty"`
}

type LoginIn struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthOut is what signup/login answer with. Login usually omits the user.
type AuthOut struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type,omitempty"`
	User        *Profile `json:"user,omitempty"`
}

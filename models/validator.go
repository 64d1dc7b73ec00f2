package models

import (
	"github.com/go-playground/validator"
)

// NewValidator returns a validator with the domain hooks registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", ValidateCategory)
	v.RegisterValidation("layering", ValidateLayering)
	return v
}

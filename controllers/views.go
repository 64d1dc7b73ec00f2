package controllers

import (
	"dripmate/services"
	"dripmate/storage"

	"go.uber.org/zap"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Status is the part of every view a page renders around its content.
type Status struct {
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func (s *Status) begin() {
	s.Loading = true
	s.Error = ""
	s.Redirect = ""
}

// fail records err on the view. An authorization failure sends the user to
// login instead of showing the message, and makes sure nothing of the old
// session survives.
func (s *Status) fail(err error, session *storage.SessionStore, logger *zap.Logger) {
	s.Loading = false
	if services.IsUnauthorized(err) {
		if clearErr := session.Clear(); clearErr != nil {
			logger.Error("Failed to clear session", zap.Error(clearErr))
		}
		s.Error = ""
		s.Redirect = LoginPath
		return
	}
	s.Error = services.ErrorMessage(err)
}

func validationFailure(message string) error {
	return &services.APIError{Kind: services.KindValidation, Message: message}
}

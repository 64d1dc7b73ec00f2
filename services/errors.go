package services

import (
	"encoding/json"
	"errors"
	"strings"
)

type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindBackend      ErrorKind = "backend"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation"
)

const backendUnreachable = "Is the backend running?"

// APIError is the only error type the API client returns. Message is safe to
// show to the user as is.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below regardless of message or status.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Status == 0 && t.Kind == e.Kind
}

var (
	ErrTransport    = &APIError{Kind: KindTransport}
	ErrBackend      = &APIError{Kind: KindBackend}
	ErrUnauthorized = &APIError{Kind: KindUnauthorized}
	ErrValidation   = &APIError{Kind: KindValidation}
)

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// ErrorMessage is what a view shows for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func validationError(message string, err error) *APIError {
	return &APIError{Kind: KindValidation, Message: message, Err: err}
}

// extractDetail pulls the human readable failure out of a backend body. FastAPI
// sends {"detail": "..."} or a list of {"msg": ...} for validation failures.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &list); err == nil {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

package gemini

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrBlocked       = errors.New("prompt blocked by safety filters")
	ErrEmptyResponse = errors.New("empty response")
)

// APIError es cualquier respuesta no-2xx. Code/Message vienen del cuerpo
// {"error":{...}} cuando se puede parsear.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini api status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gemini api status %d: %s", e.Status, e.Body)
}

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spektr-org/choropleth/engine"
	"github.com/spektr-org/choropleth/store"
)

type UserVisibleError struct {
	HTTPCode int
	Message  string
}

func (e *UserVisibleError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.HTTPCode, e.Message)
}

func NewUserVisibleError(httpCode int, message string) *UserVisibleError {
	return &UserVisibleError{
		HTTPCode: httpCode,
		Message:  message,
	}
}

// toUserVisible maps lookup failures onto client errors. Anything else is
// returned unchanged and reported as an internal error.
func toUserVisible(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrUnknownDataType),
		errors.Is(err, engine.ErrUnknownIndicator),
		errors.Is(err, store.ErrNotFound):
		return NewUserVisibleError(http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrUnknownDimension),
		errors.Is(err, engine.ErrUnknownColour):
		return NewUserVisibleError(http.StatusBadRequest, err.Error())
	}
	return err
}

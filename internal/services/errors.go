package services

import (
	"errors"
	"fmt"
	"net/http"

	"kknotes-backend-go/internal/store"
)

type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindNotFound             ErrorKind = "not_found"
	KindConflict             ErrorKind = "conflict"
	KindConfirmationRequired ErrorKind = "confirmation_required"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindRemoteUnavailable    ErrorKind = "remote_unavailable"
)

type ServiceError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e ServiceError) Unwrap() error {
	return e.Err
}

func ErrValidation(msg string) error {
	return ServiceError{Status: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func ErrConflict(msg string) error {
	return ServiceError{Status: http.StatusConflict, Kind: KindConflict, Message: msg}
}

// ErrConfirmationRequired carries the prompt the caller must confirm.
func ErrConfirmationRequired(prompt string) error {
	return ServiceError{Status: http.StatusConflict, Kind: KindConfirmationRequired, Message: prompt}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: http.StatusUnauthorized, Kind: KindUnauthorized, Message: msg}
}

func ErrPermissionDenied(msg string) error {
	return ServiceError{Status: http.StatusForbidden, Kind: KindPermissionDenied, Message: msg}
}

func ErrRemoteUnavailable(msg string, err error) error {
	return ServiceError{Status: http.StatusServiceUnavailable, Kind: KindRemoteUnavailable, Message: msg, Err: err}
}

// AsServiceError classifies any error; store failures become remote_unavailable.
func AsServiceError(err error) (ServiceError, bool) {
	if err == nil {
		return ServiceError{}, false
	}
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr, true
	}
	if errors.Is(err, store.ErrInvalidPath) {
		return ServiceError{Status: http.StatusBadRequest, Kind: KindValidation, Message: "Invalid identifier", Err: err}, true
	}
	return ServiceError{Status: http.StatusServiceUnavailable, Kind: KindRemoteUnavailable, Message: "Service temporarily unavailable", Err: err}, false
}

// storeError converts a store failure at the call site.
func storeError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr
	}
	if errors.Is(err, store.ErrInvalidPath) {
		return ServiceError{Status: http.StatusBadRequest, Kind: KindValidation, Message: "Invalid identifier", Err: err}
	}
	return ErrRemoteUnavailable(msg, err)
}

func IsKind(err error, kind ErrorKind) bool {
	var serr ServiceError
	return errors.As(err, &serr) && serr.Kind == kind
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

package manager

import (
	"errors"

	"edgegen/internal/backend"
	"edgegen/internal/session"
)

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ op string }

func (e tooBusyError) Error() string { return "too busy: " + e.op }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb) || errors.Is(err, session.ErrBusy)
}

type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error when a requested model id is not present in the store.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var nf modelNotFoundError
	return errors.As(err, &nf)
}

// dependencyUnavailableError signals that the native runtime is missing so
// the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var du dependencyUnavailableError
	return errors.As(err, &du) || errors.Is(err, backend.ErrUnavailable)
}

// notLoadedError is returned when generation is requested with no model
// loaded and no model named.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "no model loaded" }

// IsNotLoaded reports whether err means no model is loaded.
func IsNotLoaded(err error) bool {
	var nl notLoadedError
	return errors.As(err, &nl)
}

// modelInUseError is returned when deleting the loaded model.
type modelInUseError struct{ id string }

func (e modelInUseError) Error() string { return "model in use: " + e.id }

// IsModelInUse reports whether err refers to a loaded model that cannot be removed.
func IsModelInUse(err error) bool {
	var iu modelInUseError
	return errors.As(err, &iu)
}

// modelExistsError is returned when a download targets an id that already
// has a file.
type modelExistsError struct{ id string }

func (e modelExistsError) Error() string { return "model already exists: " + e.id }

// ErrModelExists returns the error for a download onto an existing id.
func ErrModelExists(id string) error { return modelExistsError{id: id} }

// IsModelExists reports whether err refers to an id that is already taken.
func IsModelExists(err error) bool {
	var me modelExistsError
	return errors.As(err, &me)
}

// downloadBusyError is returned when a download is requested while another
// one runs.
type downloadBusyError struct{ id string }

func (e downloadBusyError) Error() string { return "download already in progress: " + e.id }

// ErrDownloadInProgress returns the error for a download requested while id
// is still transferring.
func ErrDownloadInProgress(id string) error { return downloadBusyError{id: id} }

// IsDownloadInProgress reports whether err means another download is running.
func IsDownloadInProgress(err error) bool {
	var db downloadBusyError
	return errors.As(err, &db)
}

// invalidRequestError carries a caller mistake (return 400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest wraps a validation message.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err was caused by bad input.
func IsInvalidRequest(err error) bool {
	var ir invalidRequestError
	return errors.As(err, &ir)
}

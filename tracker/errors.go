package tracker

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrUnknownID      = errors.New("unknown assignment")
	ErrSubmitInFlight = errors.New("submission already in progress")
	ErrDialogClosed   = errors.New("dialog is not open")
	ErrClosed         = errors.New("mutation controller closed")
	ErrDeleteSettled  = errors.New("delete already confirmed or cancelled")
)

// NetworkError is a failed call to the Remote: a transport error or a non-2xx response.
type NetworkError struct {
	Op         string // list, create, update, delete
	ID         string
	StatusCode int // 0 for transport errors
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	switch {
	case e.StatusCode != 0 && e.Message != "":
		msg += fmt.Sprintf(": %d %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		msg += fmt.Sprintf(": %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NetworkError for a record that no longer exists remotely.
func IsNotFound(err error) bool {
	var nErr *NetworkError
	return errors.As(err, &nErr) && nErr.StatusCode == http.StatusNotFound
}

// IsNetworkError reports whether err is (or wraps) a *NetworkError.
func IsNetworkError(err error) bool {
	var nErr *NetworkError
	return errors.As(err, &nErr)
}

// MutationError reports an optimistic mutation the Remote rejected.
type MutationError struct {
	ID       string
	Field    string
	Err      error
	Reverted bool // the change was withdrawn: the record shows the server value and the later pending changes
}

func (e MutationError) Error() string {
	return fmt.Sprintf("updating %s of %s: %v", e.Field, e.ID, e.Err)
}

func (e MutationError) Unwrap() error { return e.Err }

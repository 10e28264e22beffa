package tba

import (
	"errors"
	"fmt"

	"github.com/briangreenhill/tba/model"
)

var (
	// ErrEmptyResult is returned when the origin (or the cache) answered
	// with no data. Paging loops use it as the end-of-data signal.
	ErrEmptyResult = errors.New("empty result")
	// ErrParse is returned when a response body is not valid JSON
	ErrParse = errors.New("response is not valid JSON")
	// ErrOffline is returned when the network failed and no cache entry
	// within its widened freshness window exists.
	ErrOffline = errors.New("offline and no usable cache entry")
	// ErrInvalidInput is returned when a caller-supplied identifier cannot
	// be turned into a request path.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnexpectedStatus is wrapped by StatusError
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidKey is returned by model accessors for absent fields
	ErrInvalidKey = model.ErrMissingField
)

// StatusError reports an origin response that was neither 2xx nor 304.
// Such responses are never cached.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

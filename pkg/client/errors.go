package client

import (
	"errors"
	"fmt"
)

// Common errors carried by failed results.
var (
	// ErrRetryExhausted is set when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrMalformedBody is set when a 2xx response body is not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")

	// ErrInvalidRequest is set when the request could not be constructed.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents non-404 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport-level errors (timeout,
	// connection reset, DNS failure).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents malformed bodies where structured data
	// was expected. Permanent, never retried.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError describes an HTTP-level failure with its classification.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("involves %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("involves %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to its failure class. Anything other
// than 404 and a clean 2xx is treated as transient: on this API spurious
// gateway 4xx responses recover on retry just as 5xx do.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

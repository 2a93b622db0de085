package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthRequired is wrapped by every 401 response
var ErrAuthRequired = errors.New("authentication required")

// Kind classifies a failed request
type Kind int

const (
	KindNone Kind = iota
	KindTransport
	KindAuth
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TransportError means the request never completed
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-success response from the backend. Message carries
// the server's "error" field verbatim when present.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// Unwrap exposes ErrAuthRequired for 401 responses
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrAuthRequired
	}
	return nil
}

// DecodeError means a successful response carried an unreadable body
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by Client to its failure kind
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrAuthRequired) {
		return KindAuth
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return KindTransport
	}
	return KindApplication
}

// Message returns the text shown to the user for a failure: the server's
// message for application errors, the underlying cause for transport errors
func Message(err error) string {
	var status *StatusError
	if errors.As(err, &status) && status.Message != "" {
		return status.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable wraps every failure to get a response from the server:
	// connection refused, DNS, timeouts. Callers fall back to local data.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized means the session could not be refreshed and has been
	// logged out.
	ErrUnauthorized = errors.New("unauthorized")
)

// DefaultErrorMessage is used when an error body has no recognisable shape.
const DefaultErrorMessage = "Unknown error occurred"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsTransportFailure reports whether err means the server was not reached.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// UseLocalCopy reports whether a failed call should be served from, or
// recorded in, the local store. A logged-out session still works offline.
func UseLocalCopy(err error) bool {
	return IsTransportFailure(err) || errors.Is(err, ErrUnauthorized)
}

// IsRejection reports whether err is a server response with a non-2xx status.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsNotFound reports whether the server answered 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ErrorMessage returns the text to show a user for err.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

type errorBody struct {
	Detail *string `json:"detail"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

// ParseErrorMessage extracts a message from an error body. The non-empty
// details of the "errors" list win, joined by newlines; otherwise "detail" is
// used. Anything else yields DefaultErrorMessage.
func ParseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return DefaultErrorMessage
	}
	details := make([]string, 0, len(eb.Errors))
	for _, e := range eb.Errors {
		if e.Detail != "" {
			details = append(details, e.Detail)
		}
	}
	if len(details) > 0 {
		return strings.Join(details, "\n")
	}
	if eb.Detail != nil {
		return *eb.Detail
	}
	return DefaultErrorMessage
}

func transportError(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

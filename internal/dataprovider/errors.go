package dataprovider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCommunicate wraps every failure to reach the backend or read its answer.
	ErrCommunicate = errors.New("failed to communicate with backend")

	// ErrMissingTotal is returned by list calls when the backend omits X-Total-Count.
	ErrMissingTotal = errors.New("the X-Total-Count header is missing in the HTTP response")
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func communicate(err error, what string) error {
	return fmt.Errorf("%w: %s: %v", ErrCommunicate, what, err)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// Message is the text to show an operator for err: the backend's own message
// when there is one.
func Message(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Message
	}
	if errors.Is(err, ErrCommunicate) {
		return "Could not reach the server. Please try again."
	}
	return err.Error()
}

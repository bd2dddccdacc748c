package remote

import "fmt"

// FetchError wraps a transport or provider failure on an outbound fetch.
// Retry policy is the caller's responsibility.
type FetchError struct {
	Kind     string
	RemoteID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Kind, e.RemoteID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that the provider has no object with the given id.
type NotFoundError struct {
	Kind     string
	RemoteID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found on provider", e.Kind, e.RemoteID)
}

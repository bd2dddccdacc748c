package sync

import "fmt"

// SyncError reports a coercion or constraint failure while upserting one
// object. The object's write was rolled back.
type SyncError struct {
	Kind     string
	RemoteID string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %v", e.Kind, e.RemoteID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// DependencyError reports that a relation's dependency could not be fetched
// or resolved. It fails the entire top-level resolution; the failing
// dependency is identified for diagnosis.
type DependencyError struct {
	Kind     string
	RemoteID string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("resolve dependency %s %s: %v", e.Kind, e.RemoteID, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

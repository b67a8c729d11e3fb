package remote

import "fmt"

// ErrorKind classifies a failed outbound call.
type ErrorKind string

const (
	// RemoteRejected means the service answered with status >= 400.
	RemoteRejected ErrorKind = "remote_rejected"
	// Unreachable means the call never produced a response (timeout,
	// DNS failure, connection refused).
	Unreachable ErrorKind = "unreachable"
)

// SyncError is the classified failure of one outbound call.
type SyncError struct {
	Kind   ErrorKind
	Op     string
	URL    string
	Status int
	err    error
}

func (e *SyncError) Error() string {
	if e.Kind == RemoteRejected {
		return fmt.Sprintf("%s %s: remote rejected with status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: unreachable: %v", e.Op, e.URL, e.err)
}

func (e *SyncError) Unwrap() error {
	return e.err
}

// IsSyncError reports whether err is a classified outbound failure and
// returns it if so.
func IsSyncError(err error) (*SyncError, bool) {
	se, ok := err.(*SyncError)
	return se, ok
}

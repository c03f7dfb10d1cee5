package cloud

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storage layer.
var (
	// ErrUnsupportedProvider indicates a stage type outside the supported
	// set (S3-style, blob-style).
	ErrUnsupportedProvider = errors.New("unsupported storage provider")

	// ErrUnknownDownloadFailure signals that the download retry loop
	// terminated without success and without a recorded error. This is an
	// invariant violation, not an expected runtime condition.
	ErrUnknownDownloadFailure = errors.New("download failed without a recorded error")
)

// CredentialError indicates a required external-stage credential is absent.
// This is a configuration error surfaced before any network I/O.
type CredentialError struct {
	Name string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing required credential: %s", e.Name)
}

// FileNameParseError indicates a listed object key does not start with the
// expected stage prefix.
type FileNameParseError struct {
	Key    string
	Prefix string
}

func (e *FileNameParseError) Error() string {
	return fmt.Sprintf("object key %q does not match stage prefix %q", e.Key, e.Prefix)
}

// RetryExhaustedError indicates every download attempt failed. It preserves
// the last observed cause.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

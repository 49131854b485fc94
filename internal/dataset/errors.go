package dataset

import "errors"

var (
	// ErrNotConfigured means a parameter required to locate the upload
	// manifest or the local source tree is missing. Operator error, not
	// retryable.
	ErrNotConfigured = errors.New("dataset: required parameter not configured")

	// ErrNoLocalFiles means the fallback scan found no candidate files
	// at all, so no expected set can be built.
	ErrNoLocalFiles = errors.New("dataset: no local files to verify")
)

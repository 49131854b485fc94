package myemsl

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// client preconditions
	ErrNoCertificate = errors.New("myemsl: auth certificate missing")
	ErrCertExpired   = errors.New("myemsl: auth certificate expired")

	// transport / archive availability
	ErrRemoteUnavailable = errors.New("myemsl: archive unavailable")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// File metadata errors
	CodeFileQueryFailed = "E_FILE_QUERY_FAILED" // a failure during the file metadata query.
	CodeDatasetNotFound = "E_DATASET_NOT_FOUND" // the dataset is unknown to the archive.

	// Ingest errors
	CodeIngestStatusFailed = "E_INGEST_STATUS_FAILED" // a failure while fetching the ingest pipeline state.
)

// APIError represents MyEMSL API errors
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrRemoteUnavailable, operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok {
			return fmt.Errorf("%w: %s: %w", ErrRemoteUnavailable, operation, err)
		}

		return fmt.Errorf("%w: %s: http %d", ErrRemoteUnavailable, operation, resp.GetStatusCode())
	}

	return nil
}

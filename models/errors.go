package models

import "errors"

// Failure taxonomy for the segment pipeline and its collaborators.
// Callers wrap these with fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	// ErrTransport covers network-level failures reaching the remote API.
	ErrTransport = errors.New("transport failure")

	// ErrUpstream means the remote service responded but declined the
	// request, e.g. an unknown model or exhausted quota.
	ErrUpstream = errors.New("upstream rejected request")

	// ErrNoMediaURL means a JSON success response carried no resolvable
	// media locator in any known field.
	ErrNoMediaURL = errors.New("no media url in response")

	// ErrMediaFetchFailed means the secondary fetch of a resolved locator
	// did not return a success status.
	ErrMediaFetchFailed = errors.New("media fetch failed")

	// ErrExtraction means the last-frame extraction tool failed.
	ErrExtraction = errors.New("frame extraction failed")

	// ErrConcat means concatenation failed or its input set was invalid.
	ErrConcat = errors.New("concat failed")

	// ErrValidation means the batch request was rejected before any work.
	ErrValidation = errors.New("validation failed")
)

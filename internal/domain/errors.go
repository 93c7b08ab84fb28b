package domain

import "errors"

// Error taxonomy shared by parsers, the analysis gateway and the HTTP layer.
// Callers wrap these with fmt.Errorf("...: %w", ErrX) and match with errors.Is.
var (
	// ErrMalformedInput is returned when an upload cannot be read as a table
	// or is missing its header row.
	ErrMalformedInput = errors.New("malformed input")

	// ErrIncompleteData marks required fields that are absent after parsing.
	ErrIncompleteData = errors.New("incomplete data")

	// ErrExternalService is returned when the generative AI service times out,
	// fails, or returns a response that cannot be parsed.
	ErrExternalService = errors.New("external service failure")

	// ErrForbidden is returned when the requester does not own the record.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

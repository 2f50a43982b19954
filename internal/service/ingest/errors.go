package ingest

import "errors"

var (
	// ErrNotFound is returned when neither register holds an extract for
	// the number.
	ErrNotFound = errors.New("company not found in register")

	// ErrRegistry is returned for unexpected register responses.
	ErrRegistry = errors.New("register request failed")
)

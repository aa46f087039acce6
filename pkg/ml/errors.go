package ml

import "errors"

// Error kinds surfaced by the classifier. Callers distinguish them with
// errors.Is; the gateway maps them to HTTP statuses. The feature extractor
// never errors: missing data degrades to zero-valued features instead.
var (
	// ErrModelNotTrained is returned by Predict before any successful Train.
	ErrModelNotTrained = errors.New("behavior model not trained")

	// ErrMalformedInput is returned when a session lacks a recognizable
	// structure. Merely-absent optional collections are not malformed.
	ErrMalformedInput = errors.New("malformed session input")

	// ErrTrainingFailure is returned when a fit cannot complete, e.g. a
	// degenerate or single-class dataset. The previous model state, if any,
	// is left untouched.
	ErrTrainingFailure = errors.New("training failure")
)

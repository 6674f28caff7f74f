package models

import "errors"

// Error classes. Callers wrap them together with the underlying cause,
// e.g. fmt.Errorf("%w: %s: %w", ErrModelLoad, modelID, err).
var (
	ErrScoring           = errors.New("sentence cannot be scored")
	ErrModelLoad         = errors.New("model could not be loaded")
	ErrGeneration        = errors.New("text generation failed")
	ErrNotFound          = errors.New("not found")
	ErrConnectivity      = errors.New("collaborator unreachable")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

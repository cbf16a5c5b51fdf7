package engine

import (
	"errors"
	"fmt"
)

// Error kinds at the engine façade (spec §7). Per-component errors
// (ErrNoInputProvided, ErrFftSetup, ...) stay in their own packages; these
// are the kinds that only make sense at the façade boundary.
var (
	ErrInvalidAudio          = errors.New("engine: invalid audio")
	ErrWeightsMissing        = errors.New("engine: weights missing")
	ErrIncompatibleWeights   = errors.New("engine: incompatible weights")
	ErrDecoderNotLoaded      = errors.New("engine: decoder not loaded")
	ErrCanceled              = errors.New("engine: canceled")
	ErrInvalidRemoteFileName = errors.New("engine: invalid remote file name")
)

// WarmupFailedError carries the structured warmup-failure context spec §7
// names (modelId, attempts, cause).
type WarmupFailedError struct {
	ModelID  string
	Attempts int
	Cause    error
}

func (e *WarmupFailedError) Error() string {
	return fmt.Sprintf("engine: warmup failed for %q after %d attempts: %v", e.ModelID, e.Attempts, e.Cause)
}

func (e *WarmupFailedError) Unwrap() error { return e.Cause }

package prediction

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by Predict once the model failed to load. It wraps the load error.
var ErrModelUnavailable = errors.New("prediction model unavailable")

var errInvalidInput = errors.New("invalid input")

type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// PredictionError reports a single failed prediction: bad input, a classifier
// failure or output that breaks the probability contract. It never changes adapter state.
type PredictionError struct {
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prediction failed: %s: %v", e.Reason, e.Err)
	}
	return "prediction failed: " + e.Reason
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err came from feature validation.
func IsInvalidInput(err error) bool {
	return errors.Is(err, errInvalidInput)
}

func invalidInput(format string, args ...interface{}) error {
	return &PredictionError{Reason: fmt.Sprintf(format, args...), Err: errInvalidInput}
}

package classify

import "errors"

var (
	// ErrModelUnavailable is returned by a strategy whose backing model could not be loaded
	ErrModelUnavailable = errors.New("classification model unavailable")

	// ErrInvalidLabel is returned when a strategy answers outside the clause taxonomy
	ErrInvalidLabel = errors.New("label outside clause taxonomy")

	// ErrStrategyPanic wraps a recovered panic from a strategy
	ErrStrategyPanic = errors.New("classification strategy panicked")
)

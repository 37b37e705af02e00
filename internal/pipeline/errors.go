package pipeline

import "errors"

var (
	// ErrEmptyText is returned when there is no contract text to segment
	ErrEmptyText = errors.New("contract text is empty")

	// ErrInternal hides unexpected failures from clients; details are logged
	ErrInternal = errors.New("internal error")
)

package reconcile

import "errors"

var (
	// ErrConfiguration reports an invalid model or relationship declaration.
	ErrConfiguration = errors.New("directory sync configuration error")

	// ErrUnknownModel is returned when a model name was never registered.
	ErrUnknownModel = errors.New("unknown model")
)

package application

import "errors"

var (
	// ErrInvalidOperation is returned for requests the history cannot satisfy,
	// such as removing an index past the end.
	ErrInvalidOperation = errors.New("invalid operation on clipboard history")

	// ErrSerialization is returned when the durable representation cannot be
	// parsed or produced.
	ErrSerialization = errors.New("clipboard history serialization")

	// ErrEmptyHistory is returned by index lookups on an empty history.
	ErrEmptyHistory = errors.New("clipboard history is empty")

	// ErrHubClosed is returned to subscribers waiting on a closed Hub.
	ErrHubClosed = errors.New("notification hub closed")
)

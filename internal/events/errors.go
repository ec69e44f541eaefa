package events

import "fmt"

// SerializationError is returned when a transaction cannot be encoded as JSON.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize transaction: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// PublishError is returned when the broker rejects or cannot accept a publish.
type PublishError struct {
	Exchange string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish to exchange %q: %v", e.Exchange, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

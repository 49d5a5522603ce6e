// Package queue defines interfaces for the alert event stream.
// This abstraction allows swapping implementations (Kafka, in-memory)
// without changing the ingestion pipeline or the event recorder.
package queue

import (
	"context"
)

// HeaderEventType carries the alert event type on published messages so
// consumers can route without decoding the payload.
const HeaderEventType = "event_type"

// Message represents a message on the event stream.
type Message struct {
	// Key is the partition key for ordering guarantees. Alert events use
	// the alert fingerprint so all events for one alert stay in order.
	Key []byte

	// Value is the message payload.
	Value []byte

	// Headers contains optional metadata.
	Headers map[string]string
}

// Producer defines the interface for publishing messages to the stream.
// Implementations must be safe for concurrent use.
type Producer interface {
	// Publish sends a message to the stream.
	// Messages with the same key are guaranteed to be consumed in order.
	Publish(ctx context.Context, msg *Message) error

	// Close releases any resources held by the producer.
	Close() error
}

// MessageHandler is a callback function for processing consumed messages.
// Return an error to indicate processing failure (implementation may retry).
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer defines the interface for consuming messages from the stream.
type Consumer interface {
	// Start begins consuming messages and calls the handler for each one.
	// This is a blocking call that runs until the context is canceled
	// or an unrecoverable error occurs.
	Start(ctx context.Context, handler MessageHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}

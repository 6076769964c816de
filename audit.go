package authcore

import (
	"io"

	internalaudit "github.com/dinely/authcore/internal/audit"
)

// AuditEvent is a structured security event emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

type auditDispatcher = internalaudit.Dispatcher

func newAuditDispatcher(sink AuditSink, bufferSize int, dropIfFull bool) *auditDispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		BufferSize: bufferSize,
		DropIfFull: dropIfFull,
	}, sink)
}

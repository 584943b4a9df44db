// Package format defines the streaming parse contract and the
// registry of supported vendor export formats.
package format

import (
	"context"

	"github.com/chattrace/chattrace/internal/model"
)

// Event is the closed union of parse events. Exactly one Meta event is
// emitted first, exactly one Done event last; Members, MessageBatch and
// Progress events may appear in between in any interleaving.
type Event interface {
	isEvent()
}

// Meta is the session-level descriptor, emitted at most once and
// before any message batch.
type Meta struct {
	Name     string
	Platform string
	ChatKind model.ChatKind
}

// Members carries zero or more participants known ahead of messages.
// Formats that cannot enumerate members up front never emit it; the
// importer derives members from message senders instead.
type Members struct {
	Members []RawMember
}

// MessageBatch carries a bounded-size list of messages.
type MessageBatch struct {
	Messages []RawMessage
}

// Progress is informational. Counters are monotonically non-decreasing.
type Progress struct {
	BytesRead  int64
	TotalBytes int64
	Messages   int64
}

// Done terminates the stream and carries final counts.
type Done struct {
	Messages int64
	Members  int64
}

func (Meta) isEvent()         {}
func (Members) isEvent()      {}
func (MessageBatch) isEvent() {}
func (Progress) isEvent()     {}
func (Done) isEvent()         {}

// RawMember is a participant as a format reports it.
type RawMember struct {
	PlatformID   string
	Name         string
	PlatformNick string
}

// RawMessage is one message as a format reports it, before identity
// resolution.
type RawMessage struct {
	SenderID   string
	SenderName string
	TS         int64
	Type       model.MessageType
	Content    string
}

// Options tunes a parse run.
type Options struct {
	// BatchSize caps the number of messages per MessageBatch event.
	BatchSize int
}

// EmitFunc delivers one event to the consumer. It returns an error
// when the consumer is gone; parsers must stop on it.
type EmitFunc func(Event) error

// ParseFunc turns an export file into the event stream. Implementations
// go through a Stream so that ordering holds by construction.
type ParseFunc func(ctx context.Context, path string, opts Options, emit EmitFunc) error

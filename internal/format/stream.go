package format

import "errors"

// Stream enforces the event ordering contract structurally: Meta must
// be sent before anything else, batches never exceed the configured
// size, progress counters never move backwards, and Close emits the
// terminal Done exactly once with the true counts.
type Stream struct {
	emit      EmitFunc
	batchSize int

	metaSent bool
	doneSent bool

	pending []RawMessage

	messages  int64
	memberIDs map[string]struct{}
	lastBytes int64
}

// NewStream wraps an EmitFunc. batchSize <= 0 falls back to 2000.
func NewStream(emit EmitFunc, batchSize int) *Stream {
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &Stream{emit: emit, batchSize: batchSize, memberIDs: make(map[string]struct{})}
}

var errMetaFirst = errors.New("meta event must precede all others")

// Meta sends the session descriptor. It must be the first call.
func (s *Stream) Meta(m Meta) error {
	if s.metaSent {
		return errors.New("meta event already sent")
	}
	s.metaSent = true
	return s.emit(m)
}

// Members sends a batch of up-front participants.
func (s *Stream) Members(members []RawMember) error {
	if !s.metaSent {
		return errMetaFirst
	}
	if len(members) == 0 {
		return nil
	}
	for _, m := range members {
		s.memberIDs[m.PlatformID] = struct{}{}
	}
	return s.emit(Members{Members: members})
}

// Message buffers one message, flushing a full batch when needed.
func (s *Stream) Message(msg RawMessage) error {
	if !s.metaSent {
		return errMetaFirst
	}
	s.pending = append(s.pending, msg)
	s.messages++
	s.memberIDs[msg.SenderID] = struct{}{}
	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// Progress sends an informational progress event. Counters clamp to
// non-decreasing.
func (s *Stream) Progress(bytesRead, totalBytes int64) error {
	if !s.metaSent {
		return errMetaFirst
	}
	if bytesRead < s.lastBytes {
		bytesRead = s.lastBytes
	}
	s.lastBytes = bytesRead
	return s.emit(Progress{BytesRead: bytesRead, TotalBytes: totalBytes, Messages: s.messages})
}

// Close flushes the final partial batch and emits Done.
func (s *Stream) Close() error {
	if !s.metaSent {
		return errMetaFirst
	}
	if s.doneSent {
		return errors.New("done event already sent")
	}
	if err := s.flush(); err != nil {
		return err
	}
	s.doneSent = true
	return s.emit(Done{Messages: s.messages, Members: int64(len(s.memberIDs))})
}

// Messages returns the number of messages sent so far.
func (s *Stream) Messages() int64 { return s.messages }

func (s *Stream) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = nil
	return s.emit(MessageBatch{Messages: batch})
}

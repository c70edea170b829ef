// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"context"
	"sync/atomic"

	"github.com/bidsflow/bidsflow/internal/record"
)

type (
	// Message is one element of a Stream. Exactly one message with Done set
	// terminates the stream; it carries no record.
	Message struct {
		Record record.ChannelRecord
		Done   bool
	}

	// Stream is a Sink backed by a channel, for consumers running in another
	// goroutine.
	Stream struct {
		ch   chan Message
		done atomic.Bool
	}
)

// NewStream returns a Stream whose channel holds up to buffer messages.
func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan Message, max(buffer, 0))}
}

// Messages returns the receive side of the stream. It is closed after the
// terminal message.
func (s *Stream) Messages() <-chan Message { return s.ch }

// Emit implements Sink.
func (s *Stream) Emit(ctx context.Context, r record.ChannelRecord) error {
	if s.done.Load() {
		return ErrCompleted
	}
	return s.send(ctx, Message{Record: r})
}

// Complete implements Sink. It sends the terminal message and closes the channel.
func (s *Stream) Complete(ctx context.Context) error {
	if s.done.Swap(true) {
		return ErrCompleted
	}
	defer close(s.ch)
	return s.send(ctx, Message{Done: true})
}

func (s *Stream) send(ctx context.Context, m Message) error {
	select {
	case s.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect reads messages until the terminal one and returns the records seen.
func Collect(ctx context.Context, msgs <-chan Message) ([]record.ChannelRecord, error) {
	var out []record.ChannelRecord
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return out, ErrTruncated
			}
			if m.Done {
				return out, nil
			}
			out = append(out, m.Record)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}

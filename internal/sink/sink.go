// SPDX-License-Identifier: MPL-2.0

// Package sink delivers grouped records to their consumer. Records are
// emitted one at a time, followed by exactly one completion call; a sink
// never sees Complete without at least one preceding Emit.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidsflow/bidsflow/internal/record"
)

var (
	// ErrNothingToEmit is returned by Drain for an empty record list.
	ErrNothingToEmit = errors.New("no records to emit")
	// ErrCompleted is returned when emitting to a sink that already completed.
	ErrCompleted = errors.New("sink already completed")
	// ErrTruncated is returned by Collect when a stream closes without its terminal message.
	ErrTruncated = errors.New("stream closed before completion")
)

// Sink consumes records. Emit and Complete are called from one goroutine.
type Sink interface {
	Emit(ctx context.Context, r record.ChannelRecord) error
	Complete(ctx context.Context) error
}

// Drain emits every record in order and then completes the sink.
func Drain(ctx context.Context, records []record.ChannelRecord, s Sink) error {
	if len(records) == 0 {
		return ErrNothingToEmit
	}
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Emit(ctx, r); err != nil {
			return fmt.Errorf("failed to emit record %d %s: %w", i, r.Key().Display(), err)
		}
	}
	if err := s.Complete(ctx); err != nil {
		return fmt.Errorf("failed to complete sink: %w", err)
	}
	return nil
}

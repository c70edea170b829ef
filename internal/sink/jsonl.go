// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bidsflow/bidsflow/internal/record"
)

// JSONLines writes one `[groupKey, payload]` JSON array per line.
type JSONLines struct {
	w    *bufio.Writer
	enc  *json.Encoder
	done bool
}

// NewJSONLines returns a JSON-lines sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLines{w: bw, enc: enc}
}

// Emit implements Sink.
func (j *JSONLines) Emit(_ context.Context, r record.ChannelRecord) error {
	if j.done {
		return ErrCompleted
	}
	if err := j.enc.Encode([]any{r.Key(), r}); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// Complete implements Sink. It flushes buffered output.
func (j *JSONLines) Complete(_ context.Context) error {
	if j.done {
		return ErrCompleted
	}
	j.done = true
	return j.w.Flush()
}

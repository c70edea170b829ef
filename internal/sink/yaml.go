// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bidsflow/bidsflow/internal/record"
)

// yamlDocument is one emitted YAML document.
type yamlDocument struct {
	Key     record.GroupKey      `yaml:"key"`
	Payload record.ChannelRecord `yaml:"payload"`
}

// YAML writes one YAML document per record.
type YAML struct {
	enc  *yaml.Encoder
	done bool
}

// NewYAML returns a YAML sink writing to w.
func NewYAML(w io.Writer) *YAML {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAML{enc: enc}
}

// Emit implements Sink.
func (y *YAML) Emit(_ context.Context, r record.ChannelRecord) error {
	if y.done {
		return ErrCompleted
	}
	if err := y.enc.Encode(yamlDocument{Key: r.Key(), Payload: r}); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// Complete implements Sink.
func (y *YAML) Complete(_ context.Context) error {
	if y.done {
		return ErrCompleted
	}
	y.done = true
	return y.enc.Close()
}

// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"

	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// sequentialHandler orders items along one or more entities: {ext: [...]}.
type sequentialHandler struct {
	base
	set *setconfig.SequentialSet
}

// Handle implements Handler.
func (h *sequentialHandler) Handle(ctx context.Context, files []*entity.File) (*Result, error) {
	items, res, err := h.items(ctx, files)
	if err != nil {
		return nil, err
	}

	spec := layoutSpec{
		entities:   h.set.Entities,
		order:      h.set.Order,
		parts:      h.set.Parts,
		partEntity: h.set.PartEntity,
	}

	keys, buckets := h.groupByKey(items)
	for _, k := range keys {
		positions, diags := h.positions(k, buckets[k.String()], spec)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if len(positions) == 0 {
			continue
		}
		data, paths, gaps := h.project(k, positions, spec)
		res.Diagnostics = append(res.Diagnostics, gaps...)
		if len(data) == 0 {
			continue
		}
		res.Fragments = append(res.Fragments, h.fragment(k, data, paths))
	}

	h.summarize(ctx, res, len(files))
	return res, nil
}

// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// plainHandler maps each item to its group key as {ext: path}.
type plainHandler struct {
	base
	set *setconfig.PlainSet
}

// Handle implements Handler.
func (h *plainHandler) Handle(ctx context.Context, files []*entity.File) (*Result, error) {
	items, res, err := h.items(ctx, files)
	if err != nil {
		return nil, err
	}

	var kept []Item
	for _, it := range items {
		if !h.set.Filter.Matches(it) {
			res.Diagnostics = append(res.Diagnostics, h.debug(it, diag.CodeFilteredOut, "does not match filter %s", h.set.Filter))
			continue
		}
		if ex, ok := h.excluded(it); ok {
			res.Diagnostics = append(res.Diagnostics, h.debug(it, diag.CodeExcludedEntity, "carries excluded entity %q", ex))
			continue
		}
		kept = append(kept, it)
	}

	keys, buckets := h.groupByKey(kept)
	for _, k := range keys {
		group := buckets[k.String()]
		first := group[0]
		for _, dup := range group[1:] {
			res.Diagnostics = append(res.Diagnostics, h.warn(diag.CodePlainDuplicate,
				"%s already holds %s; ignoring %s", k.Display(), first.Path, dup.Path))
		}
		res.Fragments = append(res.Fragments, h.fragment(k, first.fileMap(), first.Paths()))
	}

	h.summarize(ctx, res, len(files))
	return res, nil
}

func (h *plainHandler) excluded(it Item) (string, bool) {
	for _, e := range h.set.ExcludeEntities {
		if it.Get(e) != entity.NA {
			return e, true
		}
	}
	return "", false
}

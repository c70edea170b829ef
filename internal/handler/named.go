// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// namedHandler sorts items into pattern-matched groups: {group: {ext: path}}.
type namedHandler struct {
	base
	set *setconfig.NamedSet
}

// Handle implements Handler.
func (h *namedHandler) Handle(ctx context.Context, files []*entity.File) (*Result, error) {
	items, res, err := h.items(ctx, files)
	if err != nil {
		return nil, err
	}

	keys, buckets := h.groupByKey(items)
	for _, k := range keys {
		groups := make(map[string]map[string]string)
		present := make(map[string]bool)
		var paths []string

		for _, it := range buckets[k.String()] {
			name, ok := match.MatchGroup(it, h.set.Groups, "")
			if !ok {
				res.Diagnostics = append(res.Diagnostics, h.debug(it, diag.CodeNoPatternMatch, "matches no named group"))
				continue
			}
			if present[name] {
				res.Diagnostics = append(res.Diagnostics, h.warn(diag.CodeNamedDuplicate,
					"%s group %q already filled; ignoring %s", k.Display(), name, it.Path))
				continue
			}
			present[name] = true
			groups[name] = it.fileMap()
			paths = append(paths, it.Paths()...)
		}

		if len(groups) == 0 {
			continue
		}
		if missing := h.missingRequired(present); len(missing) > 0 {
			res.Diagnostics = append(res.Diagnostics, h.warn(diag.CodeNamedIncomplete,
				"%s dropped: missing required groups %v", k.Display(), missing))
			continue
		}
		res.Fragments = append(res.Fragments, h.fragment(k, groups, paths))
	}

	h.summarize(ctx, res, len(files))
	return res, nil
}

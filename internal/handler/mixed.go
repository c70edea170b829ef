// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/sequence"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// mixedHandler orders items inside pattern-matched groups:
// {group: {ext: [...]}}.
type mixedHandler struct {
	base
	set *setconfig.MixedSet
}

// Handle implements Handler.
func (h *mixedHandler) Handle(ctx context.Context, files []*entity.File) (*Result, error) {
	items, res, err := h.items(ctx, files)
	if err != nil {
		return nil, err
	}

	spec := layoutSpec{
		entities: []string{h.set.SequentialDimension},
		order:    sequence.Hierarchical,
	}

	keys, buckets := h.groupByKey(items)
	for _, k := range keys {
		byGroup := make(map[string][]Item)
		for _, it := range buckets[k.String()] {
			name, ok := match.MatchGroup(it, h.set.Groups, h.set.NamedDimension)
			if !ok {
				res.Diagnostics = append(res.Diagnostics, h.debug(it, diag.CodeNoPatternMatch, "matches no named group"))
				continue
			}
			byGroup[name] = append(byGroup[name], it)
		}

		groups := make(map[string]map[string]any)
		present := make(map[string]bool)
		var paths []string
		for _, g := range h.set.Groups {
			members, ok := byGroup[g.Name]
			if !ok {
				continue
			}
			positions, diags := h.positions(k, members, spec)
			res.Diagnostics = append(res.Diagnostics, diags...)
			if len(positions) == 0 {
				continue
			}
			data, used, gaps := h.project(k, positions, spec)
			res.Diagnostics = append(res.Diagnostics, gaps...)
			if len(data) == 0 {
				continue
			}
			groups[g.Name] = data
			present[g.Name] = true
			paths = append(paths, used...)
		}

		if len(groups) == 0 {
			continue
		}
		if missing := h.missingRequired(present); len(missing) > 0 {
			res.Diagnostics = append(res.Diagnostics, h.warn(diag.CodeMixedIncomplete,
				"%s dropped: missing required groups %v", k.Display(), missing))
			continue
		}
		res.Fragments = append(res.Fragments, h.fragment(k, groups, paths))
	}

	h.summarize(ctx, res, len(files))
	return res, nil
}

// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"maps"
	"slices"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/record"
)

// broadcastRecords copies requested task-independent suffixes into
// task-specific siblings. Independent records lose every consumed suffix and
// are dropped once empty.
func (e *Engine) broadcastRecords(records []record.ChannelRecord) ([]record.ChannelRecord, []diag.Diagnostic) {
	idx := e.doc.LoopIndex(e.broadcast)
	if idx < 0 {
		if e.hasIncludes() {
			return records, []diag.Diagnostic{diag.Warnf(diag.CodeBroadcastUnavailable, "",
				"include lists ignored: broadcast entity %q is not in loop_over %v", e.broadcast, e.doc.LoopOver)}
		}
		return records, nil
	}

	var independent, specific []record.ChannelRecord
	for _, r := range records {
		if r.Key().At(idx) == entity.NA {
			independent = append(independent, r)
		} else {
			specific = append(specific, r)
		}
	}

	registry := make(map[string]int, len(independent))
	for i, r := range independent {
		registry[r.Key().Without(idx).String()] = i
	}
	consumed := make([]map[string]bool, len(independent))

	out := make([]record.ChannelRecord, 0, len(records))
	for _, r := range specific {
		src, ok := registry[r.Key().Without(idx).String()]
		if ok {
			r = e.include(r, independent[src], consumed, src)
		}
		out = append(out, r)
	}

	for i, r := range independent {
		if len(consumed[i]) == 0 {
			out = append(out, r)
			continue
		}
		rest := r.WithoutSuffixes(slices.Collect(maps.Keys(consumed[i]))...)
		if !rest.IsEmpty() {
			out = append(out, rest)
		}
	}
	return sortRecords(out), nil
}

// include copies every suffix that r's own suffixes request from src. An
// existing suffix on r is never overwritten.
func (e *Engine) include(r, src record.ChannelRecord, consumed []map[string]bool, srcIdx int) record.ChannelRecord {
	for _, suffix := range r.Suffixes() {
		cfg, ok := e.doc.Set(suffix)
		if !ok {
			continue
		}
		for _, inc := range cfg.Include {
			if r.Has(inc) {
				continue
			}
			data, ok := src.Data(inc)
			if !ok {
				continue
			}
			r = r.WithSuffix(inc, data, src.Files(inc))
			if consumed[srcIdx] == nil {
				consumed[srcIdx] = make(map[string]bool)
			}
			consumed[srcIdx][inc] = true
		}
	}
	return r
}

func (e *Engine) hasIncludes() bool {
	for _, s := range e.doc.Sets {
		if len(s.Include) > 0 {
			return true
		}
	}
	return false
}

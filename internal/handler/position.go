// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"maps"
	"slices"
	"strings"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/record"
	"github.com/bidsflow/bidsflow/internal/sequence"
)

type (
	// position is one slot of a sequence: a single item, or one item per part.
	position struct {
		rep   Item
		parts map[string]Item
	}

	// layoutSpec describes how positions are formed and ordered.
	layoutSpec struct {
		entities   []string
		order      sequence.Mode
		parts      []string
		partEntity string
	}
)

// Get reads entities from the position's first item; every item of a
// position shares its ordering values.
func (p position) Get(name string) string { return p.rep.Get(name) }

func (p position) items() []Item {
	if p.parts == nil {
		return []Item{p.rep}
	}
	return slices.Collect(maps.Values(p.parts))
}

// value returns the output of the position for one extension category. A
// parts position yields {part: path} and needs every part to have the category.
func (p position) value(ext string, parts []string) (any, bool) {
	if p.parts == nil {
		path, ok := p.rep.Files[ext]
		return path, ok
	}
	out := make(map[string]string, len(parts))
	for _, name := range parts {
		path, ok := p.parts[name].Files[ext]
		if !ok {
			return nil, false
		}
		out[name] = path
	}
	return out, true
}

// positions collapses items sharing every ordering value into positions.
// Items missing an ordering entity are dropped; with parts, positions lacking
// a part are dropped too.
func (b base) positions(key record.GroupKey, items []Item, spec layoutSpec) ([]position, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	index := make(map[string]int)
	var out []position

	for _, it := range items {
		vals, missing := orderingValues(it, spec.entities)
		if missing != "" {
			diags = append(diags, b.debug(it, diag.CodeMissingOrderEntity, "lacks ordering entity %q", missing))
			continue
		}

		var part string
		if len(spec.parts) > 0 {
			pv := it.Get(spec.partEntity)
			if pv == entity.NA {
				diags = append(diags, b.debug(it, diag.CodeMissingOrderEntity, "lacks part entity %q", spec.partEntity))
				continue
			}
			part = partName(spec.parts, pv)
			if part == "" {
				diags = append(diags, b.debug(it, diag.CodeFilteredOut, "part %q is not one of %v", pv, spec.parts))
				continue
			}
		}

		k := positionKey(vals)
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			p := position{rep: it}
			if part != "" {
				p.parts = make(map[string]Item, len(spec.parts))
			}
			out = append(out, p)
		}

		switch {
		case part != "":
			if prev, dup := out[i].parts[part]; dup {
				diags = append(diags, b.warn(diag.CodeSequenceDuplicate,
					"%s position %v part %q already holds %s; ignoring %s", key.Display(), vals, part, prev.Path, it.Path))
				continue
			}
			out[i].parts[part] = it
		case seen:
			diags = append(diags, b.warn(diag.CodeSequenceDuplicate,
				"%s position %v already holds %s; ignoring %s", key.Display(), vals, out[i].rep.Path, it.Path))
		}
	}

	if len(spec.parts) == 0 {
		return out, diags
	}

	complete := out[:0]
	for _, p := range out {
		var missing []string
		for _, name := range spec.parts {
			if _, ok := p.parts[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			vals, _ := orderingValues(p.rep, spec.entities)
			diags = append(diags, b.warn(diag.CodePartsIncomplete,
				"%s position %v dropped: missing parts %v", key.Display(), vals, missing))
			continue
		}
		complete = append(complete, p)
	}
	return complete, diags
}

// project orders positions and renders {ext: nested sequence} plus the paths
// of every position that made it into the output. Every category keeps one
// slot per position so indexes line up across categories; a position without
// a file for a category gets a nil slot and an extension_gap warning.
func (b base) project(key record.GroupKey, positions []position, spec layoutSpec) (map[string]any, []string, []diag.Diagnostic) {
	root := sequence.Order(positions, spec.entities, spec.order, func(p position, name string) string {
		return p.Get(name)
	})

	cats := make(map[string]bool)
	for _, p := range positions {
		for _, it := range p.items() {
			for c := range it.Files {
				cats[c] = true
			}
		}
	}

	var diags []diag.Diagnostic
	data := make(map[string]any, len(cats))
	used := make(map[string]bool)
	for _, c := range slices.Sorted(maps.Keys(cats)) {
		data[c] = sequence.Project(root, func(leaf []position) (any, bool) {
			v, ok := leaf[0].value(c, spec.parts)
			if !ok {
				vals, _ := orderingValues(leaf[0].rep, spec.entities)
				diags = append(diags, b.warn(diag.CodeExtensionGap,
					"%s position %v has no %q file", key.Display(), vals, c))
				return nil, true
			}
			for _, it := range leaf[0].items() {
				used[it.Files[c]] = true
			}
			return v, true
		})
	}
	delete(used, "")
	return data, slices.Sorted(maps.Keys(used)), diags
}

// positionKey identifies a position by its normalized ordering values, so
// "inv-01" and "inv-1" share a slot.
func positionKey(vals []string) string {
	norm := make([]string, len(vals))
	for i, v := range vals {
		norm[i] = entity.NormalizeValue(v)
	}
	return strings.Join(norm, "\x00")
}

func orderingValues(it Item, entities []string) ([]string, string) {
	vals := make([]string, len(entities))
	for i, e := range entities {
		v := it.Get(e)
		if v == entity.NA {
			return nil, e
		}
		vals[i] = v
	}
	return vals, ""
}

func partName(parts []string, value string) string {
	for _, p := range parts {
		if entity.ValuesEqual(p, value) {
			return p
		}
	}
	return ""
}

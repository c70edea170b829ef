// SPDX-License-Identifier: MPL-2.0

// Package match decides which named group, if any, a file belongs to.
//
// Groups are tried in declaration order and the first one whose every entity
// pattern matches wins. Values are compared after entity.NormalizeValue, so a
// pattern "flip: 02" matches a file carrying "flip-2".
package match

import (
	"strings"

	"github.com/bidsflow/bidsflow/internal/entity"
)

type (
	// Attributed is anything that can report an entity value by name.
	// *entity.File satisfies it, as do the handler items built around files.
	Attributed interface {
		Get(name string) string
	}

	// Term is one entity=value requirement of a pattern. Entity is a short name.
	Term struct {
		Entity string
		Value  string
	}

	// Pattern is an ordered conjunction of terms.
	Pattern []Term

	// Group is a named pattern.
	Group struct {
		Name    string
		Pattern Pattern
	}
)

// NewTerm builds a term with the entity name resolved to its short form.
func NewTerm(name, value string) Term {
	return Term{Entity: entity.ShortName(name), Value: value}
}

// Matches reports whether the term holds for f under normalized comparison.
func (t Term) Matches(f Attributed) bool {
	return entity.ValuesEqual(f.Get(t.Entity), t.Value)
}

// Matches reports whether every term holds for f. An empty pattern matches anything.
func (p Pattern) Matches(f Attributed) bool {
	for _, t := range p {
		if !t.Matches(f) {
			return false
		}
	}
	return true
}

// Lookup returns the term constraining the given entity.
func (p Pattern) Lookup(name string) (Term, bool) {
	short := entity.ShortName(name)
	for _, t := range p {
		if t.Entity == short {
			return t, true
		}
	}
	return Term{}, false
}

// Equivalent reports whether two patterns constrain the same entities to the
// same normalized values, regardless of term order.
func (p Pattern) Equivalent(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for _, t := range p {
		ot, ok := o.Lookup(t.Entity)
		if !ok || !entity.ValuesEqual(t.Value, ot.Value) {
			return false
		}
	}
	return true
}

// String renders the pattern as "key=value,key=value" in declaration order.
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = t.Entity + "=" + t.Value
	}
	return strings.Join(parts, ",")
}

// MatchGroup returns the name of the first group in groups that f matches.
// When restrict is non-empty only that entity's term is compared and groups
// without a term for it never match. ok is false when nothing matched.
func MatchGroup(f Attributed, groups []Group, restrict string) (name string, ok bool) {
	for _, g := range groups {
		if restrict != "" {
			t, found := g.Pattern.Lookup(restrict)
			if found && t.Matches(f) {
				return g.Name, true
			}
			continue
		}
		if g.Pattern.Matches(f) {
			return g.Name, true
		}
	}
	return "", false
}

// Shadowed returns, for each group that can never win because an earlier group
// has an equivalent pattern, the pair (earlier, shadowed).
func Shadowed(groups []Group) [][2]string {
	var out [][2]string
	for i := 1; i < len(groups); i++ {
		for j := 0; j < i; j++ {
			if groups[j].Pattern.Equivalent(groups[i].Pattern) {
				out = append(out, [2]string{groups[j].Name, groups[i].Name})
				break
			}
		}
	}
	return out
}

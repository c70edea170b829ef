// SPDX-License-Identifier: MPL-2.0

package record

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/sequence"
)

// keySeparator joins key values in String. Entity values never contain it.
const keySeparator = "\x1f"

// GroupKey is an ordered tuple of loop-over entity values. Missing values are
// entity.NA, so the arity always equals the loop-over list length.
type GroupKey struct {
	values []string
}

// NewGroupKey builds a key from values; empty values become entity.NA.
func NewGroupKey(values ...string) GroupKey {
	vals := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			v = entity.NA
		}
		vals[i] = v
	}
	return GroupKey{values: vals}
}

// KeyOf reads each loop-over entity from a.
func KeyOf(a match.Attributed, loopOver []string) GroupKey {
	vals := make([]string, len(loopOver))
	for i, name := range loopOver {
		vals[i] = a.Get(name)
	}
	return NewGroupKey(vals...)
}

// String returns a stable encoding suitable as a map key.
func (k GroupKey) String() string { return strings.Join(k.values, keySeparator) }

// Display renders the key for humans, e.g. "(01, NA, 1, rest)".
func (k GroupKey) Display() string { return "(" + strings.Join(k.values, ", ") + ")" }

// Values returns a copy of the key's values.
func (k GroupKey) Values() []string { return slices.Clone(k.values) }

// Len returns the key's arity.
func (k GroupKey) Len() int { return len(k.values) }

// At returns the value at position i.
func (k GroupKey) At(i int) string { return k.values[i] }

// Without returns the key with position i removed. It is used to match
// records that differ only in one loop-over entity.
func (k GroupKey) Without(i int) GroupKey {
	vals := make([]string, 0, len(k.values)-1)
	vals = append(vals, k.values[:i]...)
	vals = append(vals, k.values[i+1:]...)
	return GroupKey{values: vals}
}

// Equal reports whether both keys hold the same values.
func (k GroupKey) Equal(o GroupKey) bool { return slices.Equal(k.values, o.values) }

// Compare orders keys element-wise with the numeric-aware comparator.
func (k GroupKey) Compare(o GroupKey) int { return sequence.CompareTuple(k.values, o.values) }

// MarshalJSON encodes the key as a JSON array of strings.
func (k GroupKey) MarshalJSON() ([]byte, error) {
	if k.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(k.values)
}

// MarshalYAML encodes the key as a YAML sequence.
func (k GroupKey) MarshalYAML() (any, error) { return k.Values(), nil }

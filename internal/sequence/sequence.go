// SPDX-License-Identifier: MPL-2.0

// Package sequence orders items along one or more entity values.
//
// Ordering uses a numeric-aware comparator: when both values end in a run of
// digits the runs are compared as numbers, so "echo-2" sorts before "echo-10".
// Multiple ordering entities produce nested levels either recursively
// (hierarchical) or as exactly two levels (flat).
package sequence

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/bidsflow/bidsflow/internal/entity"
)

const (
	// Hierarchical nests one level per ordering entity, outermost first.
	Hierarchical Mode = "hierarchical"
	// Flat groups by the first ordering entity and orders the remaining
	// entities together inside each group.
	Flat Mode = "flat"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid ordering mode")

var trailingDigits = regexp.MustCompile(`[0-9]+$`)

type (
	// Mode selects how multiple ordering entities are nested.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value Mode
	}

	// Getter reads an entity value from an item.
	Getter[T any] func(item T, entity string) string

	// Node is one level of an ordered structure. Leaves hold the items sharing
	// every ordering value; inner nodes hold ordered children.
	Node[T any] struct {
		Value    string
		Items    []T
		Children []*Node[T]
	}
)

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// IsValid returns whether the Mode is one of the defined ordering modes,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case Hierarchical, Flat:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidModeError.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid ordering mode %q (valid: hierarchical, flat)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// Compare orders two entity values. If both end in digits the digit runs are
// compared numerically; ties and non-numeric values fall back to string order.
func Compare(a, b string) int {
	da := trailingDigits.FindString(a)
	db := trailingDigits.FindString(b)
	if da != "" && db != "" {
		if c := compareDigits(da, db); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// CompareTuple compares two equal-length value tuples element by element.
func CompareTuple(a, b []string) int {
	for i := range min(len(a), len(b)) {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// compareDigits compares decimal strings of arbitrary length without parsing.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// IsLeaf reports whether the node holds items rather than children.
func (n *Node[T]) IsLeaf() bool { return n.Children == nil }

// Order arranges items along attrs. The returned root is never a leaf unless
// attrs is empty. Items keep their relative input order inside a leaf.
func Order[T any](items []T, attrs []string, mode Mode, get Getter[T]) *Node[T] {
	if len(attrs) == 0 {
		return &Node[T]{Items: items}
	}
	if mode == Flat && len(attrs) > 1 {
		return orderFlat(items, attrs, get)
	}
	return orderHierarchical(items, attrs, get)
}

func orderHierarchical[T any](items []T, attrs []string, get Getter[T]) *Node[T] {
	root := &Node[T]{Children: []*Node[T]{}}
	for _, b := range bucket(items, func(it T) []string { return []string{get(it, attrs[0])} }) {
		if len(attrs) == 1 {
			root.Children = append(root.Children, &Node[T]{Value: b.values[0], Items: b.items})
			continue
		}
		child := orderHierarchical(b.items, attrs[1:], get)
		child.Value = b.values[0]
		root.Children = append(root.Children, child)
	}
	return root
}

func orderFlat[T any](items []T, attrs []string, get Getter[T]) *Node[T] {
	root := &Node[T]{Children: []*Node[T]{}}
	rest := attrs[1:]
	for _, outer := range bucket(items, func(it T) []string { return []string{get(it, attrs[0])} }) {
		group := &Node[T]{Value: outer.values[0], Children: []*Node[T]{}}
		inner := bucket(outer.items, func(it T) []string {
			vals := make([]string, len(rest))
			for i, a := range rest {
				vals[i] = get(it, a)
			}
			return vals
		})
		for _, b := range inner {
			group.Children = append(group.Children, &Node[T]{Value: strings.Join(b.values, ","), Items: b.items})
		}
		root.Children = append(root.Children, group)
	}
	return root
}

type itemBucket[T any] struct {
	values []string // as first seen, for display
	norm   []string
	items  []T
}

// bucket groups items by their normalized value tuple and returns the groups
// in comparator order. A bucket displays the raw values of its first item.
func bucket[T any](items []T, key func(T) []string) []itemBucket[T] {
	index := make(map[string]int)
	var out []itemBucket[T]
	for _, it := range items {
		vals := key(it)
		norm := make([]string, len(vals))
		for i, v := range vals {
			norm[i] = entity.NormalizeValue(v)
		}
		k := strings.Join(norm, "\x00")
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, itemBucket[T]{values: vals, norm: norm})
		}
		out[i].items = append(out[i].items, it)
	}
	slices.SortStableFunc(out, func(a, b itemBucket[T]) int {
		return CompareTuple(a.norm, b.norm)
	})
	return out
}

// Project converts the tree under n into nested slices. leaf turns the items of
// a leaf into an output value; returning false drops that position. Inner nodes
// whose children were all dropped are dropped as well.
func Project[T any](n *Node[T], leaf func(items []T) (any, bool)) []any {
	out := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsLeaf() {
			if v, ok := leaf(c.Items); ok {
				out = append(out, v)
			}
			continue
		}
		if nested := Project(c, leaf); len(nested) > 0 {
			out = append(out, nested)
		}
	}
	return out
}

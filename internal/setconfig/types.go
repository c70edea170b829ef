// SPDX-License-Identifier: MPL-2.0

package setconfig

import (
	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/sequence"
)

const (
	// KindPlain maps one item to one group key.
	KindPlain Kind = "plain"
	// KindNamed sorts items into pattern-matched named groups.
	KindNamed Kind = "named"
	// KindSequential orders items along one or more entities.
	KindSequential Kind = "sequential"
	// KindMixed orders items inside pattern-matched named groups.
	KindMixed Kind = "mixed"

	// DefaultPartEntity is the entity distinguishing parts of one sequence position.
	DefaultPartEntity = "part"
)

type (
	// Kind identifies which set variant a SetConfig carries.
	Kind string

	// PlainSet configures the plain handler.
	PlainSet struct {
		// Filter must match in full for an item to be kept. Empty keeps everything.
		Filter match.Pattern
		// ExcludeEntities vetoes items carrying any of these entities (short names).
		ExcludeEntities []string
	}

	// NamedSet configures the named handler.
	NamedSet struct {
		// Groups are tried in declaration order; the first match wins.
		Groups []match.Group
	}

	// SequentialSet configures the sequential handler.
	SequentialSet struct {
		// Entities are the ordering entities (short names), outermost first.
		Entities []string
		// Order selects how multiple ordering entities nest.
		Order sequence.Mode
		// Parts, when set, pairs items at one position by PartEntity value.
		Parts []string
		// PartEntity is the entity carrying the part name (short name).
		PartEntity string
	}

	// MixedSet configures the mixed handler.
	MixedSet struct {
		// Groups are tried in declaration order; the first match wins.
		Groups []match.Group
		// NamedDimension, when set, restricts matching to that entity's term.
		NamedDimension string
		// SequentialDimension orders items inside each group (short name).
		SequentialDimension string
	}

	// SetConfig is the typed configuration of one top-level key. Exactly one
	// of Plain, Named, Sequential, Mixed is non-nil.
	SetConfig struct {
		// Key is the configuration key; it names the data entry in records.
		Key string
		// Suffix is the physical file suffix routed to this configuration.
		Suffix string
		// Include lists other keys whose task-independent data this key requests.
		Include []string
		// Required lists group names that must all be present (named and mixed sets).
		Required []string

		Plain      *PlainSet
		Named      *NamedSet
		Sequential *SequentialSet
		Mixed      *MixedSet
	}

	// Document is a parsed and validated configuration document.
	Document struct {
		// LoopOver is the ordered list of entity names forming each group key,
		// as written in the document.
		LoopOver []string
		// Sets holds one SetConfig per key in declaration order.
		Sets []*SetConfig
		// Warnings are non-fatal findings such as shadowed groups.
		Warnings []diag.Diagnostic
	}
)

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Kind reports which variant c carries.
func (c *SetConfig) Kind() Kind {
	switch {
	case c.Plain != nil:
		return KindPlain
	case c.Named != nil:
		return KindNamed
	case c.Sequential != nil:
		return KindSequential
	case c.Mixed != nil:
		return KindMixed
	default:
		return ""
	}
}

// Groups returns the named groups of a named or mixed set, nil otherwise.
func (c *SetConfig) Groups() []match.Group {
	switch {
	case c.Named != nil:
		return c.Named.Groups
	case c.Mixed != nil:
		return c.Mixed.Groups
	default:
		return nil
	}
}

// Set returns the configuration for key.
func (d *Document) Set(key string) (*SetConfig, bool) {
	for _, s := range d.Sets {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}

// ForSuffix returns every configuration routed the given physical suffix, in
// declaration order.
func (d *Document) ForSuffix(suffix string) []*SetConfig {
	var out []*SetConfig
	for _, s := range d.Sets {
		if s.Suffix == suffix {
			out = append(out, s)
		}
	}
	return out
}

// LoopIndex returns the position of an entity in LoopOver, comparing short
// names, or -1 when it is not a loop-over entity.
func (d *Document) LoopIndex(name string) int {
	short := entity.ShortName(name)
	for i, l := range d.LoopOver {
		if entity.ShortName(l) == short {
			return i
		}
	}
	return -1
}

// SPDX-License-Identifier: MPL-2.0

package setconfig

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/bidsflow/bidsflow/internal/cueutil"
	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/sequence"
)

const (
	fieldLoopOver  = "loop_over"
	fieldPlain     = "plain_set"
	fieldNamed     = "named_set"
	fieldSeq       = "sequential_set"
	fieldMixed     = "mixed_set"
	fieldRequired  = "required"
	fieldInclude   = "include"
	fieldMapsTo    = "suffix_maps_to"
	fieldByEntity  = "by_entity"
	fieldSeqDim    = "sequential_dimension"
	fieldEntities  = "by_entities"
	fieldNamedDim  = "named_dimension"
	fieldGroups    = "named_groups"
	fieldOrder     = "order"
	fieldParts     = "parts"
	fieldPartEnt   = "part_entity"
	fieldFilter    = "filter"
	fieldExclude   = "exclude_entities"
	schemaDocument = "#Document"
)

//go:embed schema.cue
var schemaCUE []byte

var setTypes = []string{fieldPlain, fieldNamed, fieldSeq, fieldMixed}

// builder accumulates the typed document and every field error found.
type builder struct {
	doc  *Document
	errs []error
}

// Schema returns the embedded CUE schema source.
func Schema() []byte { return slices.Clone(schemaCUE) }

// Load reads and parses the configuration document at path. The format is
// chosen from the file extension (.yaml, .yml, .json, .cue).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grouping configuration: %w", err)
	}
	return Parse(data, cueutil.WithFilename(path))
}

// Parse validates data against the schema and reifies it into a Document.
// Schema violations are returned as formatted CUE errors; semantic problems
// as an *InvalidDocumentError listing every FieldError.
func Parse(data []byte, opts ...cueutil.Option) (*Document, error) {
	res, err := cueutil.Parse(schemaCUE, data, schemaDocument, opts...)
	if err != nil {
		return nil, err
	}
	return reify(res.User)
}

func reify(v cue.Value) (*Document, error) {
	b := &builder{doc: &Document{}}
	b.loopOver(v.LookupPath(cue.MakePath(cue.Str(fieldLoopOver))))

	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate configuration keys: %w", err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() || sel.Unquoted() == fieldLoopOver {
			continue
		}
		b.suffix(sel.Unquoted(), iter.Value())
	}
	b.crossCheck()

	if len(b.errs) > 0 {
		return nil, &InvalidDocumentError{FieldErrors: b.errs}
	}
	return b.doc, nil
}

func (b *builder) fail(suffix, field string, err error) {
	b.errs = append(b.errs, fieldErr(suffix, field, err))
}

func (b *builder) loopOver(v cue.Value) {
	names, ok := b.strings("", fieldLoopOver, v)
	if !ok {
		return
	}
	if len(names) == 0 {
		b.fail("", fieldLoopOver, ErrMissingLoopOver)
		return
	}
	if b.entityList("", fieldLoopOver, names) {
		b.doc.LoopOver = names
	}
}

func (b *builder) suffix(key string, v cue.Value) {
	if key == "" {
		b.fail(key, "", ErrEmptyName)
		return
	}
	cfg := &SetConfig{Key: key, Suffix: key}

	if mt := lookup(v, fieldMapsTo); mt.Exists() {
		if s, err := mt.String(); err == nil && s != "" {
			cfg.Suffix = s
		} else {
			b.fail(key, fieldMapsTo, ErrEmptyName)
		}
	}
	if inc := lookup(v, fieldInclude); inc.Exists() {
		cfg.Include, _ = b.strings(key, fieldInclude, inc)
	}
	if req := lookup(v, fieldRequired); req.Exists() {
		cfg.Required, _ = b.strings(key, fieldRequired, req)
	}

	var declared []string
	for _, st := range setTypes {
		if lookup(v, st).Exists() {
			declared = append(declared, st)
		}
	}
	switch len(declared) {
	case 0:
		b.fail(key, "", ErrMissingSetType)
		return
	case 1:
	default:
		b.fail(key, "", fmt.Errorf("%w: %v", ErrMultipleSetTypes, declared))
		return
	}

	sv := lookup(v, declared[0])
	switch declared[0] {
	case fieldPlain:
		cfg.Plain = b.plain(key, sv)
	case fieldNamed:
		cfg.Named = b.named(key, sv)
	case fieldSeq:
		cfg.Sequential = b.sequential(key, sv)
	case fieldMixed:
		cfg.Mixed = b.mixed(key, sv, cfg)
	}
	b.required(cfg)
	b.doc.Sets = append(b.doc.Sets, cfg)
}

// plain accepts an explicit null or empty struct as a set with defaults.
func (b *builder) plain(key string, v cue.Value) *PlainSet {
	ps := &PlainSet{}
	if v.IsNull() {
		return ps
	}
	if f := lookup(v, fieldFilter); f.Exists() {
		ps.Filter = b.pattern(key, fieldPlain+"."+fieldFilter, f)
	}
	if ex := lookup(v, fieldExclude); ex.Exists() {
		names, _ := b.strings(key, fieldPlain+"."+fieldExclude, ex)
		if b.entityList(key, fieldPlain+"."+fieldExclude, names) {
			ps.ExcludeEntities = shortNames(names)
		}
	}
	return ps
}

func (b *builder) named(key string, v cue.Value) *NamedSet {
	groups := b.groups(key, fieldNamed, v)
	b.shadowed(key, groups)
	return &NamedSet{Groups: groups}
}

func (b *builder) sequential(key string, v cue.Value) *SequentialSet {
	ss := &SequentialSet{Order: sequence.Hierarchical, PartEntity: DefaultPartEntity}

	var sources []string
	for _, f := range []string{fieldByEntity, fieldSeqDim, fieldEntities} {
		if lookup(v, f).Exists() {
			sources = append(sources, f)
		}
	}
	switch len(sources) {
	case 0:
		b.fail(key, fieldSeq, ErrMissingOrderEntity)
	case 1:
		field := fieldSeq + "." + sources[0]
		fv := lookup(v, sources[0])
		if sources[0] == fieldEntities {
			names, _ := b.strings(key, field, fv)
			if b.entityList(key, field, names) {
				ss.Entities = shortNames(names)
			}
		} else if name, ok := b.name(key, field, fv); ok {
			ss.Entities = []string{entity.ShortName(name)}
		}
	default:
		b.fail(key, fieldSeq, fmt.Errorf("%w: %v", ErrConflictingOrderEntity, sources))
	}

	if ov := lookup(v, fieldOrder); ov.Exists() {
		s, _ := ov.String()
		mode := sequence.Mode(s)
		if ok, _ := mode.IsValid(); ok {
			ss.Order = mode
		} else {
			b.fail(key, fieldSeq+"."+fieldOrder, fmt.Errorf("%w: %q", ErrInvalidOrder, s))
		}
	}
	if pv := lookup(v, fieldParts); pv.Exists() {
		parts, _ := b.strings(key, fieldSeq+"."+fieldParts, pv)
		if err := checkParts(parts); err != nil {
			b.fail(key, fieldSeq+"."+fieldParts, err)
		} else {
			ss.Parts = parts
		}
	}
	if pe := lookup(v, fieldPartEnt); pe.Exists() {
		if name, ok := b.name(key, fieldSeq+"."+fieldPartEnt, pe); ok {
			ss.PartEntity = entity.ShortName(name)
		}
	}
	return ss
}

func (b *builder) mixed(key string, v cue.Value, cfg *SetConfig) *MixedSet {
	ms := &MixedSet{}

	seq, alias := lookup(v, fieldSeqDim), lookup(v, fieldByEntity)
	switch {
	case seq.Exists() && alias.Exists():
		b.fail(key, fieldMixed, fmt.Errorf("%w: %v", ErrConflictingOrderEntity, []string{fieldSeqDim, fieldByEntity}))
	case seq.Exists():
		if name, ok := b.name(key, fieldMixed+"."+fieldSeqDim, seq); ok {
			ms.SequentialDimension = entity.ShortName(name)
		}
	case alias.Exists():
		if name, ok := b.name(key, fieldMixed+"."+fieldByEntity, alias); ok {
			ms.SequentialDimension = entity.ShortName(name)
		}
	default:
		b.fail(key, fieldMixed, ErrMissingOrderEntity)
	}

	if nd := lookup(v, fieldNamedDim); nd.Exists() {
		if name, ok := b.name(key, fieldMixed+"."+fieldNamedDim, nd); ok {
			ms.NamedDimension = entity.ShortName(name)
		}
	}

	ms.Groups = b.groups(key, fieldMixed+"."+fieldGroups, lookup(v, fieldGroups))
	b.shadowed(key, ms.Groups)

	if req := lookup(v, fieldRequired); req.Exists() {
		names, _ := b.strings(key, fieldMixed+"."+fieldRequired, req)
		for _, n := range names {
			if !slices.Contains(cfg.Required, n) {
				cfg.Required = append(cfg.Required, n)
			}
		}
	}
	return ms
}

// required checks that required group names refer to defined groups.
func (b *builder) required(cfg *SetConfig) {
	if len(cfg.Required) == 0 {
		return
	}
	kind := cfg.Kind()
	if kind != KindNamed && kind != KindMixed {
		b.fail(cfg.Key, fieldRequired, ErrRequiredWithoutGroups)
		return
	}
	groups := cfg.Groups()
	for i, name := range cfg.Required {
		found := slices.ContainsFunc(groups, func(g match.Group) bool { return g.Name == name })
		if !found {
			b.fail(cfg.Key, fmt.Sprintf("%s[%d]", fieldRequired, i), fmt.Errorf("%w: %q", ErrUnknownGroup, name))
		}
	}
}

// crossCheck validates references between keys.
func (b *builder) crossCheck() {
	for _, cfg := range b.doc.Sets {
		for i, inc := range cfg.Include {
			if _, ok := b.doc.Set(inc); !ok || inc == cfg.Key {
				b.fail(cfg.Key, fmt.Sprintf("%s[%d]", fieldInclude, i), fmt.Errorf("%w: %q", ErrUnknownInclude, inc))
			}
		}
	}
}

func (b *builder) groups(key, field string, v cue.Value) []match.Group {
	iter, err := v.Fields()
	if err != nil {
		b.fail(key, field, err)
		return nil
	}
	var groups []match.Group
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		name := sel.Unquoted()
		if name == "" {
			b.fail(key, field, ErrEmptyName)
			continue
		}
		groups = append(groups, match.Group{
			Name:    name,
			Pattern: b.pattern(key, field+"."+name, iter.Value()),
		})
	}
	if len(groups) == 0 {
		b.fail(key, field, ErrEmptyGroups)
	}
	return groups
}

func (b *builder) shadowed(key string, groups []match.Group) {
	for _, pair := range match.Shadowed(groups) {
		b.doc.Warnings = append(b.doc.Warnings, diag.Warnf(diag.CodeShadowedGroup, key,
			"group %q can never match: group %q declared earlier has the same pattern", pair[1], pair[0]))
	}
}

// pattern reads an entity->value map in declaration order.
func (b *builder) pattern(key, field string, v cue.Value) match.Pattern {
	iter, err := v.Fields()
	if err != nil {
		b.fail(key, field, err)
		return nil
	}
	var p match.Pattern
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		name := sel.Unquoted()
		val, err := scalar(iter.Value())
		if err != nil {
			b.fail(key, field+"."+name, err)
			continue
		}
		p = append(p, match.NewTerm(name, val))
	}
	return p
}

func (b *builder) strings(key, field string, v cue.Value) ([]string, bool) {
	var out []string
	if err := v.Decode(&out); err != nil {
		b.fail(key, field, err)
		return nil, false
	}
	return out, true
}

func (b *builder) name(key, field string, v cue.Value) (string, bool) {
	s, err := v.String()
	if err != nil {
		b.fail(key, field, err)
		return "", false
	}
	if s == "" {
		b.fail(key, field, ErrEmptyName)
		return "", false
	}
	return s, true
}

// entityList reports whether names is free of empty and repeated entities.
func (b *builder) entityList(key, field string, names []string) bool {
	seen := make(map[string]bool, len(names))
	ok := true
	for i, n := range names {
		short := entity.ShortName(n)
		switch {
		case n == "":
			b.fail(key, fmt.Sprintf("%s[%d]", field, i), ErrEmptyName)
			ok = false
		case seen[short]:
			b.fail(key, fmt.Sprintf("%s[%d]", field, i), fmt.Errorf("%w: %q", ErrDuplicateEntity, n))
			ok = false
		}
		seen[short] = true
	}
	return ok
}

func checkParts(parts []string) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidParts)
	}
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: %w", ErrInvalidParts, ErrEmptyName)
		}
		if seen[p] {
			return fmt.Errorf("%w: %q repeated", ErrInvalidParts, p)
		}
		seen[p] = true
	}
	return nil
}

func scalar(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", ErrInvalidPattern
	}
}

func lookup(v cue.Value, field string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(field)))
}

func shortNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = entity.ShortName(n)
	}
	return out
}

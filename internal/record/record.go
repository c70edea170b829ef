// SPDX-License-Identifier: MPL-2.0

package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

const (
	// PayloadData is the payload field holding per-suffix data.
	PayloadData = "data"
	// PayloadFilePaths is the payload field holding every contributing path.
	PayloadFilePaths = "filePaths"
)

var (
	// ErrKeyMismatch is returned when merging records with different group keys.
	ErrKeyMismatch = errors.New("group keys differ")
	// ErrSuffixConflict is returned when merging records that both carry a suffix.
	ErrSuffixConflict = errors.New("suffix present in both records")
)

// ChannelRecord groups the data of every configured suffix for one group key.
// The zero value is an empty record with an empty key.
type ChannelRecord struct {
	key   GroupKey
	names []string
	data  map[string]any
	files map[string][]string
}

// New returns an empty record for key. names are the loop-over entity names,
// in the same order as the key's values.
func New(key GroupKey, names []string) ChannelRecord {
	return ChannelRecord{key: key, names: slices.Clone(names)}
}

// Key returns the record's group key.
func (r ChannelRecord) Key() GroupKey { return r.key }

// Names returns the loop-over entity names.
func (r ChannelRecord) Names() []string { return slices.Clone(r.names) }

// Len returns the number of suffixes carried.
func (r ChannelRecord) Len() int { return len(r.data) }

// IsEmpty reports whether the record carries no suffix data.
func (r ChannelRecord) IsEmpty() bool { return len(r.data) == 0 }

// Has reports whether the record carries data for suffix.
func (r ChannelRecord) Has(suffix string) bool {
	_, ok := r.data[suffix]
	return ok
}

// Suffixes returns the carried suffixes in sorted order.
func (r ChannelRecord) Suffixes() []string {
	return slices.Sorted(maps.Keys(r.data))
}

// Data returns the data stored for suffix.
func (r ChannelRecord) Data(suffix string) (any, bool) {
	d, ok := r.data[suffix]
	return d, ok
}

// DataMap returns a shallow copy of the suffix->data map.
func (r ChannelRecord) DataMap() map[string]any {
	if r.data == nil {
		return map[string]any{}
	}
	return maps.Clone(r.data)
}

// Files returns the relative paths contributed by suffix.
func (r ChannelRecord) Files(suffix string) []string { return slices.Clone(r.files[suffix]) }

// FilePaths returns the sorted, deduplicated union of every suffix's paths.
func (r ChannelRecord) FilePaths() []string {
	var all []string
	for _, fs := range r.files {
		all = append(all, fs...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// Attributes maps each loop-over name to the key's value at that position.
func (r ChannelRecord) Attributes() map[string]string {
	attrs := make(map[string]string, len(r.names))
	for i, n := range r.names {
		if i < r.key.Len() {
			attrs[n] = r.key.At(i)
		}
	}
	return attrs
}

// WithSuffix returns a copy of r carrying data and files under suffix,
// replacing any existing entry for it.
func (r ChannelRecord) WithSuffix(suffix string, data any, files []string) ChannelRecord {
	out := r.clone()
	out.data[suffix] = data
	fs := slices.Clone(files)
	slices.Sort(fs)
	out.files[suffix] = slices.Compact(fs)
	return out
}

// WithoutSuffixes returns a copy of r without the given suffixes.
func (r ChannelRecord) WithoutSuffixes(suffixes ...string) ChannelRecord {
	out := r.clone()
	for _, s := range suffixes {
		delete(out.data, s)
		delete(out.files, s)
	}
	return out
}

// Merge returns the union of r and o. Both must share a key and carry
// disjoint suffixes.
func (r ChannelRecord) Merge(o ChannelRecord) (ChannelRecord, error) {
	if !r.key.Equal(o.key) {
		return ChannelRecord{}, fmt.Errorf("%w: %s vs %s", ErrKeyMismatch, r.key.Display(), o.key.Display())
	}
	out := r.clone()
	for s, d := range o.data {
		if _, ok := out.data[s]; ok {
			return ChannelRecord{}, fmt.Errorf("%w: %q at %s", ErrSuffixConflict, s, r.key.Display())
		}
		out.data[s] = d
		out.files[s] = slices.Clone(o.files[s])
	}
	if len(out.names) == 0 {
		out.names = slices.Clone(o.names)
	}
	return out, nil
}

// Payload returns the emitted form of the record:
// {data: {...}, filePaths: [...], <loop-over name>: value, ...}.
func (r ChannelRecord) Payload() map[string]any {
	p := make(map[string]any, len(r.names)+2)
	for n, v := range r.Attributes() {
		p[n] = v
	}
	p[PayloadData] = r.DataMap()
	paths := r.FilePaths()
	if paths == nil {
		paths = []string{}
	}
	p[PayloadFilePaths] = paths
	return p
}

// MarshalJSON encodes the record's payload.
func (r ChannelRecord) MarshalJSON() ([]byte, error) { return json.Marshal(r.Payload()) }

// MarshalYAML encodes the record's payload.
func (r ChannelRecord) MarshalYAML() (any, error) { return r.Payload(), nil }

func (r ChannelRecord) clone() ChannelRecord {
	out := ChannelRecord{
		key:   r.key,
		names: r.names,
		data:  make(map[string]any, len(r.data)+1),
		files: make(map[string][]string, len(r.files)+1),
	}
	maps.Copy(out.data, r.data)
	maps.Copy(out.files, r.files)
	return out
}

// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"regexp"
	"slices"
	"strings"
)

// NA is the sentinel value reported for an entity a file does not carry.
const NA = "NA"

// longToShort maps configuration entity names to the short keys used in filenames.
var longToShort = map[string]string{
	"subject":        "sub",
	"session":        "ses",
	"sample":         "sample",
	"task":           "task",
	"tracksys":       "tracksys",
	"acquisition":    "acq",
	"nucleus":        "nuc",
	"volume":         "voi",
	"ceagent":        "ce",
	"tracer":         "trc",
	"stain":          "stain",
	"reconstruction": "rec",
	"direction":      "dir",
	"run":            "run",
	"modality":       "mod",
	"echo":           "echo",
	"flip":           "flip",
	"inversion":      "inv",
	"mtransfer":      "mt",
	"part":           "part",
	"processing":     "proc",
	"hemisphere":     "hemi",
	"space":          "space",
	"split":          "split",
	"recording":      "recording",
	"chunk":          "chunk",
	"segmentation":   "seg",
	"resolution":     "res",
	"density":        "den",
	"label":          "label",
	"description":    "desc",
}

var shortToLong = func() map[string]string {
	m := make(map[string]string, len(longToShort))
	for long, short := range longToShort {
		m[short] = long
	}
	return m
}()

// prefixPattern matches a leading "<entity>-" token in a value such as "flip-02".
var prefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-`)

// ShortName returns the short filename key for an entity name. Names that are
// already short, or unknown to the table, are returned unchanged.
func ShortName(name string) string {
	if short, ok := longToShort[name]; ok {
		return short
	}
	return name
}

// LongName returns the configuration name for a short filename key, or the key
// itself when the table has no entry for it.
func LongName(short string) string {
	if long, ok := shortToLong[short]; ok {
		return long
	}
	return short
}

// Table returns the normalization table as (long, short) pairs sorted by long name.
func Table() [][2]string {
	pairs := make([][2]string, 0, len(longToShort))
	for long, short := range longToShort {
		pairs = append(pairs, [2]string{long, short})
	}
	slices.SortFunc(pairs, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
	return pairs
}

// NormalizeValue strips an "<entity>-" prefix and, when the remainder is purely
// numeric, its leading zeros. "flip-02", "flip-2", "02" and "2" all normalize to "2".
func NormalizeValue(value string) string {
	v := prefixPattern.ReplaceAllString(strings.TrimSpace(value), "")
	if v == "" || !isDigits(v) {
		return v
	}
	v = strings.TrimLeft(v, "0")
	if v == "" {
		return "0"
	}
	return v
}

// ValuesEqual compares two entity values after normalization.
func ValuesEqual(a, b string) bool {
	return NormalizeValue(a) == NormalizeValue(b)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

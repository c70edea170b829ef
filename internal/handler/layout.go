// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
)

// ErrOutsideRoot is returned when a path cannot be expressed relative to the dataset root.
var ErrOutsideRoot = errors.New("path is outside the dataset root")

type (
	// Layout relativizes paths and folds files sharing a base name into items.
	Layout interface {
		// Rel returns path relative to the dataset root, using forward slashes.
		Rel(path string) (string, error)
		// Items folds files into logical items sorted by base name. Files whose
		// path cannot be relativized are reported as diagnostics for key.
		Items(key string, files []*entity.File) ([]Item, []diag.Diagnostic)
	}

	// DatasetLayout is the Layout of a dataset rooted at Root. An empty Root
	// accepts relative paths as they are and rejects absolute ones.
	DatasetLayout struct {
		Root string
	}

	// Item is one logical acquisition: a primary file plus the auxiliary files
	// sharing its base name.
	Item struct {
		// Base is the relative path without extension.
		Base string
		// Path is the relative path of the primary file.
		Path string
		// Primary supplies the item's entities.
		Primary *entity.File
		// Files maps extension category to relative path.
		Files map[string]string
	}
)

// NewLayout returns the Layout for a dataset root.
func NewLayout(root string) DatasetLayout {
	if root != "" {
		root = filepath.Clean(root)
	}
	return DatasetLayout{Root: root}
}

// Rel implements Layout.
func (l DatasetLayout) Rel(path string) (string, error) {
	var rel string
	switch {
	case !filepath.IsAbs(path):
		rel = filepath.Clean(path)
	case l.Root == "":
		return "", fmt.Errorf("%w: %s (no dataset root configured)", ErrOutsideRoot, path)
	default:
		r, err := filepath.Rel(l.Root, path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrOutsideRoot, path, err)
		}
		rel = r
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return filepath.ToSlash(rel), nil
}

// Items implements Layout. The primary file of an item is its first
// non-auxiliary file by path; an item made only of auxiliary files uses its
// first file. Recorded sidecars fill the "json" slot when no JSON file is listed.
func (l DatasetLayout) Items(key string, files []*entity.File) ([]Item, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	byBase := make(map[string][]*entity.File)
	rels := make(map[*entity.File]string, len(files))

	for _, f := range files {
		rel, err := l.Rel(f.Path())
		if err != nil {
			d := diag.Warnf(diag.CodePathOutsideRoot, key, "%v", err)
			d.Path = f.Path()
			diags = append(diags, d)
			continue
		}
		rels[f] = rel
		base := entity.BaseName(rel)
		byBase[base] = append(byBase[base], f)
	}

	items := make([]Item, 0, len(byBase))
	for _, base := range slices.Sorted(maps.Keys(byBase)) {
		group := byBase[base]
		slices.SortStableFunc(group, func(a, b *entity.File) int { return strings.Compare(rels[a], rels[b]) })

		primary := group[0]
		for _, f := range group {
			if !entity.IsAuxiliary(entity.ClassifyExtension(f.Path())) {
				primary = f
				break
			}
		}

		it := Item{Base: base, Path: rels[primary], Primary: primary, Files: make(map[string]string, len(group)+1)}
		for _, f := range group {
			cat := entity.ClassifyExtension(f.Path())
			if _, taken := it.Files[cat]; !taken {
				it.Files[cat] = rels[f]
			}
		}
		if sc := primary.SidecarPath(); sc != "" {
			if _, taken := it.Files[entity.ExtJSON]; !taken {
				if rel, err := l.Rel(sc); err == nil {
					it.Files[entity.ExtJSON] = rel
				} else {
					d := diag.Warnf(diag.CodePathOutsideRoot, key, "sidecar: %v", err)
					d.Path = sc
					diags = append(diags, d)
				}
			}
		}
		items = append(items, it)
	}
	return items, diags
}

// Get returns an entity of the item's primary file.
func (it Item) Get(name string) string { return it.Primary.Get(name) }

// Paths returns every relative path of the item, sorted.
func (it Item) Paths() []string {
	return slices.Sorted(maps.Values(it.Files))
}

// Categories returns the item's extension categories, sorted.
func (it Item) Categories() []string {
	return slices.Sorted(maps.Keys(it.Files))
}

// fileMap returns a copy of the category->path map as output data.
func (it Item) fileMap() map[string]string { return maps.Clone(it.Files) }

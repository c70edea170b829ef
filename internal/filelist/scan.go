// SPDX-License-Identifier: MPL-2.0

package filelist

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bidsflow/bidsflow/internal/entity"
)

// skippedDirs hold non-raw data by BIDS convention.
var skippedDirs = map[string]bool{
	"derivatives": true,
	"sourcedata":  true,
	"code":        true,
}

// Scan walks root and returns every file with a BIDS name carrying a subject
// entity, in lexical path order. Symlinked files (as in annexed datasets)
// are included. Hidden directories and the derivatives,
// sourcedata, and code directories are skipped; other names are ignored.
func Scan(ctx context.Context, root string) ([]*entity.File, error) {
	var files []*entity.File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || (!d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0) {
			return nil
		}
		f, perr := entity.ParseFilename(path)
		if perr != nil || !f.Has("sub") {
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// SampleDataset is a small two-subject dataset with anatomical, functional
// and diffusion runs plus the top-level files a scan ignores.
var SampleDataset = []string{
	"dataset_description.json",
	"participants.tsv",
	"sub-01/anat/sub-01_T1w.nii.gz",
	"sub-01/anat/sub-01_T1w.json",
	"sub-01/func/sub-01_task-rest_bold.nii.gz",
	"sub-01/func/sub-01_task-nback_bold.nii.gz",
	"sub-01/dwi/sub-01_dwi.nii.gz",
	"sub-01/dwi/sub-01_dwi.bval",
	"sub-01/dwi/sub-01_dwi.bvec",
	"sub-02/anat/sub-02_T1w.nii.gz",
	"sub-02/func/sub-02_task-rest_bold.nii.gz",
}

// Dataset creates a temporary dataset root holding empty files at the given
// slash-separated paths. With no paths, SampleDataset is used.
func Dataset(t testing.TB, rel ...string) string {
	t.Helper()
	if len(rel) == 0 {
		rel = SampleDataset
	}
	root := t.TempDir()
	Touch(t, root, rel...)
	return root
}

// Touch creates empty files below root, making parent directories as needed.
func Touch(t testing.TB, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		WriteFile(t, root, r, "")
	}
}

// WriteFile writes content to root/rel and returns the full path.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// MustMkdirAll creates a directory along with any necessary parents.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// RelPaths returns paths relative to root in slash form, in input order.
func RelPaths(t testing.TB, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("path %s is not below %s: %v", p, root, err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// MustClose closes c and fails the test on error.
func MustClose(t testing.TB, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

// Receive waits for a value on ch, failing the test after timeout.
func Receive[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		var zero T
		t.Fatalf("timed out after %s", timeout)
		return zero
	}
}

// SPDX-License-Identifier: MPL-2.0

package filelist

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/testutil"
)

func TestParse_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"yaml keyed", FormatYAML, `
files:
  - path: sub-01/anat/sub-01_T1w.nii.gz
    suffix: T1w
    entities: {subject: "01"}
  - path: sub-01/dwi/sub-01_dir-AP_dwi.nii.gz
    sidecar: sub-01/dwi/sub-01_dir-AP_dwi.json
`},
		{"yaml list", FormatYAML, `
- path: sub-01/anat/sub-01_T1w.nii.gz
  suffix: T1w
  entities: {subject: "01"}
- path: sub-01/dwi/sub-01_dir-AP_dwi.nii.gz
  sidecar: sub-01/dwi/sub-01_dir-AP_dwi.json
`},
		{"json list", FormatJSON, `[
  {"path": "sub-01/anat/sub-01_T1w.nii.gz", "suffix": "T1w", "entities": {"subject": "01"}},
  {"path": "sub-01/dwi/sub-01_dir-AP_dwi.nii.gz", "sidecar": "sub-01/dwi/sub-01_dir-AP_dwi.json"}
]`},
		{"toml", FormatTOML, `
[[files]]
path = "sub-01/anat/sub-01_T1w.nii.gz"
suffix = "T1w"
entities = { subject = "01" }

[[files]]
path = "sub-01/dwi/sub-01_dir-AP_dwi.nii.gz"
sidecar = "sub-01/dwi/sub-01_dir-AP_dwi.json"
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			files, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(files) != 2 {
				t.Fatalf("got %d files, want 2", len(files))
			}
			if files[0].Suffix() != "T1w" || files[0].Get("sub") != "01" {
				t.Errorf("first file = %s %v", files[0].Suffix(), files[0].Entities())
			}
			dwi := files[1]
			if dwi.Suffix() != "dwi" || dwi.Get("direction") != "AP" || dwi.Get("subject") != "01" {
				t.Errorf("entities not parsed from name: %s %v", dwi.Suffix(), dwi.Entities())
			}
			if dwi.SidecarPath() != "sub-01/dwi/sub-01_dir-AP_dwi.json" {
				t.Errorf("SidecarPath() = %q", dwi.SidecarPath())
			}
		})
	}
}

func TestParse_InvalidEntry(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`[{"path": "README"}]`), FormatJSON)
	if !errors.Is(err, ErrInvalidEntry) || !errors.Is(err, entity.ErrInvalidFile) {
		t.Fatalf("Parse() error = %v, want ErrInvalidEntry wrapping ErrInvalidFile", err)
	}
	var iee *InvalidEntryError
	if !errors.As(err, &iee) || iee.Index != 0 || iee.Path != "README" {
		t.Errorf("InvalidEntryError = %+v", iee)
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Format{"a.json": FormatJSON, "a.yml": FormatYAML, "a.YAML": FormatYAML, "a.toml": FormatTOML} {
		if got, err := DetectFormat(name); err != nil || got != want {
			t.Errorf("DetectFormat(%q) = %q, %v", name, got, err)
		}
	}
	if _, err := DetectFormat("a.csv"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.Touch(t, root,
		"dataset_description.json",
		"participants.tsv",
		"task-rest_bold.json",
		"sub-01/anat/sub-01_T1w.nii.gz",
		"sub-01/anat/sub-01_T1w.json",
		"sub-01/func/sub-01_task-rest_bold.nii.gz",
		"sub-01/func/.sub-01_task-rest_bold.nii.gz",
		"derivatives/fmriprep/sub-01/anat/sub-01_desc-preproc_T1w.nii.gz",
		".git/sub-01_T1w.nii.gz",
	)

	files, err := Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	var rels []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path())
		rels = append(rels, filepath.ToSlash(rel))
	}
	want := []string{
		"sub-01/anat/sub-01_T1w.json",
		"sub-01/anat/sub-01_T1w.nii.gz",
		"sub-01/func/sub-01_task-rest_bold.nii.gz",
	}
	if !slices.Equal(rels, want) {
		t.Errorf("Scan() = %v, want %v", rels, want)
	}
}

func TestScan_Canceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.Touch(t, root, "sub-01/anat/sub-01_T1w.nii.gz")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Scan(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestWrite_RoundTripsThroughParse(t *testing.T) {
	t.Parallel()

	src := []*entity.File{
		entity.MustFile("sub-01/anat/sub-01_acq-mprage_T1w.nii.gz", "T1w",
			map[string]string{"sub": "01", "acq": "mprage"}, entity.WithSidecar("sub-01/anat/sub-01_acq-mprage_T1w.json")),
	}
	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		var buf bytes.Buffer
		if err := Write(&buf, src, format); err != nil {
			t.Fatalf("Write(%s) error = %v", format, err)
		}
		got, err := Parse(buf.Bytes(), format)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v\n%s", format, err, buf.String())
		}
		if len(got) != 1 || got[0].Get("acquisition") != "mprage" || got[0].SidecarPath() == "" {
			t.Errorf("%s: round trip lost data: %v", format, got)
		}
	}
	var buf bytes.Buffer
	if err := Write(&buf, src, FormatYAML); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("acquisition: mprage")) {
		t.Errorf("written entities should use long names:\n%s", buf.String())
	}
}

func TestSuffixes(t *testing.T) {
	t.Parallel()

	files := []*entity.File{
		entity.MustFile("a_T1w.nii", "T1w", nil),
		entity.MustFile("b_T1w.nii", "T1w", nil),
		entity.MustFile("c_bold.nii", "bold", nil),
	}
	got := Suffixes(files)
	if got["T1w"] != 2 || got["bold"] != 1 || len(got) != 2 {
		t.Errorf("Suffixes() = %v", got)
	}
}

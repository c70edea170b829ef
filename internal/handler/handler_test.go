// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
	"github.com/bidsflow/bidsflow/internal/sequence"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

var loopSubject = []string{"subject", "session"}

func files(t *testing.T, paths ...string) []*entity.File {
	t.Helper()
	out := make([]*entity.File, 0, len(paths))
	for _, p := range paths {
		f, err := entity.ParseFilename(p)
		if err != nil {
			t.Fatalf("ParseFilename(%q): %v", p, err)
		}
		out = append(out, f)
	}
	return out
}

func run(t *testing.T, cfg *setconfig.SetConfig, fs []*entity.File) *Result {
	t.Helper()
	h, err := New(cfg, Env{LoopOver: loopSubject, Layout: NewLayout("")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if h.Key() != cfg.Key {
		t.Errorf("Key() = %q, want %q", h.Key(), cfg.Key)
	}
	res, err := h.Handle(context.Background(), fs)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	return res
}

func hasCode(diags []diag.Diagnostic, code diag.Code) bool {
	return slices.ContainsFunc(diags, func(d diag.Diagnostic) bool { return d.Code == code })
}

func TestDatasetLayout_Rel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		root    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative kept", "", "sub-01/anat/a.nii", "sub-01/anat/a.nii", false},
		{"relative cleaned", "/data", "./sub-01//anat/a.nii", "sub-01/anat/a.nii", false},
		{"absolute under root", "/data/ds", "/data/ds/sub-01/a.nii", "sub-01/a.nii", false},
		{"absolute outside root", "/data/ds", "/elsewhere/a.nii", "", true},
		{"absolute without root", "", "/data/a.nii", "", true},
		{"relative escaping", "", "../a.nii", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewLayout(tt.root).Rel(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideRoot) {
					t.Errorf("Rel(%q) error = %v, want ErrOutsideRoot", tt.path, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Rel(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
			}
		})
	}
}

func TestDatasetLayout_ItemsFoldAuxiliaryFiles(t *testing.T) {
	t.Parallel()

	fs := files(t,
		"/ds/sub-01/dwi/sub-01_dir-AP_dwi.bval",
		"/ds/sub-01/dwi/sub-01_dir-AP_dwi.json",
		"/ds/sub-01/dwi/sub-01_dir-AP_dwi.nii.gz",
		"/ds/sub-01/dwi/sub-01_dir-AP_dwi.bvec",
		"/elsewhere/sub-01_dir-PA_dwi.nii.gz",
	)
	sidecarOnly := entity.MustFile("/ds/sub-01/anat/sub-01_T1w.nii.gz", "T1w",
		map[string]string{"sub": "01"}, entity.WithSidecar("/ds/sub-01/anat/sub-01_T1w.json"))

	items, diags := NewLayout("/ds").Items("dwi", append(fs, sidecarOnly))
	if len(items) != 2 {
		t.Fatalf("Items() returned %d items, want 2", len(items))
	}
	if len(diags) != 1 || diags[0].Code != diag.CodePathOutsideRoot {
		t.Errorf("diags = %v, want one path_outside_root", diags)
	}

	dwi := items[1]
	if dwi.Path != "sub-01/dwi/sub-01_dir-AP_dwi.nii.gz" {
		t.Errorf("primary = %q, want the NIfTI file", dwi.Path)
	}
	if got := dwi.Categories(); !slices.Equal(got, []string{"bval", "bvec", "json", "nii"}) {
		t.Errorf("Categories() = %v", got)
	}
	if dwi.Get("direction") != "AP" {
		t.Errorf("Get(direction) = %q", dwi.Get("direction"))
	}

	t1 := items[0]
	if t1.Files["json"] != "sub-01/anat/sub-01_T1w.json" {
		t.Errorf("sidecar not folded: %v", t1.Files)
	}
}

func TestPlain_DefaultsKeepEverything(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "T1w", Suffix: "T1w", Plain: &setconfig.PlainSet{}}
	res := run(t, cfg, files(t,
		"sub-02/anat/sub-02_T1w.nii.gz",
		"sub-01/anat/sub-01_T1w.nii.gz",
		"sub-01/anat/sub-01_T1w.json",
	))
	if len(res.Fragments) != 2 {
		t.Fatalf("fragments = %d, want 2", len(res.Fragments))
	}
	first := res.Fragments[0]
	if first.Key.At(0) != "01" || first.Key.At(1) != entity.NA {
		t.Errorf("first key = %v", first.Key.Values())
	}
	want := map[string]string{"nii": "sub-01/anat/sub-01_T1w.nii.gz", "json": "sub-01/anat/sub-01_T1w.json"}
	if !reflect.DeepEqual(first.Data, want) {
		t.Errorf("data = %v, want %v", first.Data, want)
	}
	if !slices.Equal(first.Files, []string{"sub-01/anat/sub-01_T1w.json", "sub-01/anat/sub-01_T1w.nii.gz"}) {
		t.Errorf("files = %v", first.Files)
	}
}

func TestPlain_FilterExcludeAndDuplicates(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "T1w", Suffix: "T1w", Plain: &setconfig.PlainSet{
		Filter:          match.Pattern{match.NewTerm("acquisition", "mprage")},
		ExcludeEntities: []string{"rec"},
	}}
	res := run(t, cfg, files(t,
		"sub-01_acq-fast_T1w.nii.gz",
		"sub-01_acq-mprage_T1w.nii.gz",
		"sub-01_acq-mprage_rec-norm_T1w.nii.gz",
		"sub-01_acq-mprage_run-1_T1w.nii.gz",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(res.Fragments))
	}
	data := res.Fragments[0].Data.(map[string]string)
	if data["nii"] != "sub-01_acq-mprage_T1w.nii.gz" {
		t.Errorf("kept %q, want first by path", data["nii"])
	}
	for _, code := range []diag.Code{diag.CodeFilteredOut, diag.CodeExcludedEntity, diag.CodePlainDuplicate} {
		if !hasCode(res.Diagnostics, code) {
			t.Errorf("missing %s diagnostic in %v", code, res.Diagnostics)
		}
	}
}

func dwiConfig(required ...string) *setconfig.SetConfig {
	return &setconfig.SetConfig{
		Key: "dwi", Suffix: "dwi", Required: required,
		Named: &setconfig.NamedSet{Groups: []match.Group{
			{Name: "ap", Pattern: match.Pattern{match.NewTerm("direction", "AP")}},
			{Name: "pa", Pattern: match.Pattern{match.NewTerm("direction", "PA")}},
		}},
	}
}

func TestNamed_GroupsByPattern(t *testing.T) {
	t.Parallel()

	res := run(t, dwiConfig("ap", "pa"), files(t,
		"sub-01/dwi/sub-01_dir-PA_dwi.nii.gz",
		"sub-01/dwi/sub-01_dir-AP_dwi.nii.gz",
		"sub-01/dwi/sub-01_dir-AP_dwi.bval",
		"sub-01/dwi/sub-01_dir-LR_dwi.nii.gz",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(res.Fragments))
	}
	want := map[string]map[string]string{
		"ap": {"nii": "sub-01/dwi/sub-01_dir-AP_dwi.nii.gz", "bval": "sub-01/dwi/sub-01_dir-AP_dwi.bval"},
		"pa": {"nii": "sub-01/dwi/sub-01_dir-PA_dwi.nii.gz"},
	}
	if !reflect.DeepEqual(res.Fragments[0].Data, want) {
		t.Errorf("data = %v, want %v", res.Fragments[0].Data, want)
	}
	if len(res.Fragments[0].Files) != 3 {
		t.Errorf("files = %v", res.Fragments[0].Files)
	}
	if !hasCode(res.Diagnostics, diag.CodeNoPatternMatch) {
		t.Error("dir-LR should produce a no_pattern_match diagnostic")
	}
}

func TestNamed_RequiredGate(t *testing.T) {
	t.Parallel()

	res := run(t, dwiConfig("ap", "pa"), files(t,
		"sub-01_dir-AP_dwi.nii.gz",
		"sub-01_dir-PA_dwi.nii.gz",
		"sub-02_dir-AP_dwi.nii.gz",
	))
	if len(res.Fragments) != 1 || res.Fragments[0].Key.At(0) != "01" {
		t.Fatalf("fragments = %+v, want only sub-01", res.Fragments)
	}
	if !hasCode(res.Diagnostics, diag.CodeNamedIncomplete) {
		t.Error("sub-02 should produce a named_incomplete warning")
	}

	open := run(t, dwiConfig(), files(t, "sub-02_dir-AP_dwi.nii.gz"))
	if len(open.Fragments) != 1 {
		t.Error("without required groups partial matches are emitted")
	}
}

func TestSequential_NumericOrder(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "MEGRE", Suffix: "MEGRE", Sequential: &setconfig.SequentialSet{
		Entities: []string{"echo"}, Order: sequence.Hierarchical, PartEntity: "part",
	}}
	res := run(t, cfg, files(t,
		"sub-01_echo-3_MEGRE.nii.gz",
		"sub-01_echo-10_MEGRE.nii.gz",
		"sub-01_echo-1_MEGRE.nii.gz",
		"sub-01_echo-2_MEGRE.json",
		"sub-01_echo-2_MEGRE.nii.gz",
		"sub-01_MEGRE.nii.gz",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(res.Fragments))
	}
	data := res.Fragments[0].Data.(map[string]any)
	want := []any{
		"sub-01_echo-1_MEGRE.nii.gz", "sub-01_echo-2_MEGRE.nii.gz",
		"sub-01_echo-3_MEGRE.nii.gz", "sub-01_echo-10_MEGRE.nii.gz",
	}
	if !reflect.DeepEqual(data["nii"], want) {
		t.Errorf("nii = %v, want %v", data["nii"], want)
	}
	if !reflect.DeepEqual(data["json"], []any{nil, "sub-01_echo-2_MEGRE.json", nil, nil}) {
		t.Errorf("json = %v", data["json"])
	}
	if len(res.Fragments[0].Files) != 5 {
		t.Errorf("files = %v", res.Fragments[0].Files)
	}
	if !hasCode(res.Diagnostics, diag.CodeMissingOrderEntity) {
		t.Error("file without echo should be reported")
	}
	if !hasCode(res.Diagnostics, diag.CodeExtensionGap) {
		t.Error("echoes without a sidecar should be reported")
	}
}

func mp2rageFiles(t *testing.T) []*entity.File {
	return files(t,
		"sub-01_flip-2_inv-2_MP2RAGE.nii",
		"sub-01_flip-1_inv-2_MP2RAGE.nii",
		"sub-01_flip-2_inv-1_MP2RAGE.nii",
		"sub-01_flip-1_inv-1_MP2RAGE.nii",
	)
}

func TestSequential_Hierarchical(t *testing.T) {
	t.Parallel()

	for _, mode := range []sequence.Mode{sequence.Hierarchical, sequence.Flat} {
		cfg := &setconfig.SetConfig{Key: "MP2RAGE", Suffix: "MP2RAGE", Sequential: &setconfig.SequentialSet{
			Entities: []string{"flip", "inv"}, Order: mode, PartEntity: "part",
		}}
		res := run(t, cfg, mp2rageFiles(t))
		data := res.Fragments[0].Data.(map[string]any)
		want := []any{
			[]any{"sub-01_flip-1_inv-1_MP2RAGE.nii", "sub-01_flip-1_inv-2_MP2RAGE.nii"},
			[]any{"sub-01_flip-2_inv-1_MP2RAGE.nii", "sub-01_flip-2_inv-2_MP2RAGE.nii"},
		}
		if !reflect.DeepEqual(data["nii"], want) {
			t.Errorf("%s: nii = %v, want %v", mode, data["nii"], want)
		}
	}
}

func TestSequential_PartsDropIncompletePosition(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "MP2RAGE", Suffix: "MP2RAGE", Sequential: &setconfig.SequentialSet{
		Entities: []string{"inv"}, Order: sequence.Hierarchical, Parts: []string{"mag", "phase"}, PartEntity: "part",
	}}
	res := run(t, cfg, files(t,
		"sub-01_inv-1_part-mag_MP2RAGE.nii",
		"sub-01_inv-1_part-phase_MP2RAGE.nii",
		"sub-01_inv-2_part-mag_MP2RAGE.nii",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(res.Fragments))
	}
	data := res.Fragments[0].Data.(map[string]any)
	want := []any{map[string]string{
		"mag":   "sub-01_inv-1_part-mag_MP2RAGE.nii",
		"phase": "sub-01_inv-1_part-phase_MP2RAGE.nii",
	}}
	if !reflect.DeepEqual(data["nii"], want) {
		t.Errorf("nii = %v, want %v", data["nii"], want)
	}
	if slices.Contains(res.Fragments[0].Files, "sub-01_inv-2_part-mag_MP2RAGE.nii") {
		t.Error("dropped position must not contribute file paths")
	}
	if !hasCode(res.Diagnostics, diag.CodePartsIncomplete) {
		t.Error("expected parts_incomplete warning")
	}
}

func TestSequential_ZeroPaddedPartsPair(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "MP2RAGE", Suffix: "MP2RAGE", Sequential: &setconfig.SequentialSet{
		Entities: []string{"inv"}, Order: sequence.Hierarchical, Parts: []string{"mag", "phase"}, PartEntity: "part",
	}}
	res := run(t, cfg, files(t,
		"sub-01_inv-01_part-mag_MP2RAGE.nii",
		"sub-01_inv-1_part-phase_MP2RAGE.nii",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1 (diagnostics %v)", len(res.Fragments), res.Diagnostics)
	}
	data := res.Fragments[0].Data.(map[string]any)
	want := []any{map[string]string{
		"mag":   "sub-01_inv-01_part-mag_MP2RAGE.nii",
		"phase": "sub-01_inv-1_part-phase_MP2RAGE.nii",
	}}
	if !reflect.DeepEqual(data["nii"], want) {
		t.Errorf("nii = %v, want %v", data["nii"], want)
	}
	if hasCode(res.Diagnostics, diag.CodePartsIncomplete) {
		t.Errorf("01 and 1 are the same position: %v", res.Diagnostics)
	}
}

func TestSequential_ExtensionArraysStayAligned(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "MEGRE", Suffix: "MEGRE", Sequential: &setconfig.SequentialSet{
		Entities: []string{"echo"}, Order: sequence.Hierarchical, PartEntity: "part",
	}}
	res := run(t, cfg, files(t,
		"sub-01_echo-1_MEGRE.nii.gz",
		"sub-01_echo-1_MEGRE.json",
		"sub-01_echo-2_MEGRE.nii.gz",
		"sub-01_echo-3_MEGRE.nii.gz",
		"sub-01_echo-3_MEGRE.json",
	))
	data := res.Fragments[0].Data.(map[string]any)
	nii := data["nii"].([]any)
	jsn := data["json"].([]any)
	if len(nii) != 3 || len(jsn) != 3 {
		t.Fatalf("nii = %v, json = %v, want three slots each", nii, jsn)
	}
	want := []any{"sub-01_echo-1_MEGRE.json", nil, "sub-01_echo-3_MEGRE.json"}
	if !reflect.DeepEqual(jsn, want) {
		t.Errorf("json = %v, want %v", jsn, want)
	}
	if !hasCode(res.Diagnostics, diag.CodeExtensionGap) {
		t.Error("expected extension_gap warning for echo-2")
	}
	if slices.Contains(res.Fragments[0].Files, "") {
		t.Errorf("files should not hold empty paths: %v", res.Fragments[0].Files)
	}
}

func TestSequential_DuplicatePosition(t *testing.T) {
	t.Parallel()

	cfg := &setconfig.SetConfig{Key: "MEGRE", Suffix: "MEGRE", Sequential: &setconfig.SequentialSet{
		Entities: []string{"echo"}, Order: sequence.Hierarchical, PartEntity: "part",
	}}
	res := run(t, cfg, files(t, "sub-01_acq-a_echo-1_MEGRE.nii", "sub-01_acq-b_echo-1_MEGRE.nii"))
	data := res.Fragments[0].Data.(map[string]any)
	if !reflect.DeepEqual(data["nii"], []any{"sub-01_acq-a_echo-1_MEGRE.nii"}) {
		t.Errorf("nii = %v", data["nii"])
	}
	if !hasCode(res.Diagnostics, diag.CodeSequenceDuplicate) {
		t.Error("expected sequence_duplicate warning")
	}
}

func mtsConfig(required ...string) *setconfig.SetConfig {
	return &setconfig.SetConfig{
		Key: "MTS", Suffix: "MTS", Required: required,
		Mixed: &setconfig.MixedSet{
			NamedDimension:      "mt",
			SequentialDimension: "flip",
			Groups: []match.Group{
				{Name: "mt_on", Pattern: match.Pattern{match.NewTerm("mtransfer", "on")}},
				{Name: "mt_off", Pattern: match.Pattern{match.NewTerm("mtransfer", "off")}},
			},
		},
	}
}

func TestMixed_GroupsOfSequences(t *testing.T) {
	t.Parallel()

	res := run(t, mtsConfig("mt_on", "mt_off"), files(t,
		"sub-01_flip-2_mt-on_MTS.nii",
		"sub-01_flip-1_mt-off_MTS.nii",
		"sub-01_flip-1_mt-on_MTS.nii",
		"sub-01_flip-1_MTS.nii",
	))
	if len(res.Fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(res.Fragments))
	}
	want := map[string]map[string]any{
		"mt_on":  {"nii": []any{"sub-01_flip-1_mt-on_MTS.nii", "sub-01_flip-2_mt-on_MTS.nii"}},
		"mt_off": {"nii": []any{"sub-01_flip-1_mt-off_MTS.nii"}},
	}
	if !reflect.DeepEqual(res.Fragments[0].Data, want) {
		t.Errorf("data = %v, want %v", res.Fragments[0].Data, want)
	}
	if !hasCode(res.Diagnostics, diag.CodeNoPatternMatch) {
		t.Error("file without mt should not match any group")
	}
}

func TestMixed_RequiredGate(t *testing.T) {
	t.Parallel()

	res := run(t, mtsConfig("mt_on", "mt_off"), files(t, "sub-01_flip-1_mt-on_MTS.nii"))
	if len(res.Fragments) != 0 {
		t.Errorf("fragments = %+v, want none", res.Fragments)
	}
	if !hasCode(res.Diagnostics, diag.CodeMixedIncomplete) {
		t.Error("expected mixed_incomplete warning")
	}
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New(&setconfig.SetConfig{Key: "x"}, Env{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("New() error = %v, want ErrUnknownKind", err)
	}
}

func TestHandle_CanceledContext(t *testing.T) {
	t.Parallel()

	h, err := New(dwiConfig(), Env{LoopOver: loopSubject})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Handle(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Handle() error = %v, want context.Canceled", err)
	}
}

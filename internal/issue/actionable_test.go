// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load grouping config"}, "failed to load grouping config"},
		{
			"with resource",
			&ActionableError{Operation: "load grouping config", Resource: "./sets.yaml"},
			"failed to load grouping config: ./sets.yaml",
		},
		{
			"with cause",
			&ActionableError{Operation: "read file list", Cause: errors.New("entry 3: missing path")},
			"failed to read file list: entry 3: missing path",
		},
		{
			"full context",
			&ActionableError{Operation: "load grouping config", Resource: "./sets.yaml", Cause: errors.New("file not found")},
			"failed to load grouping config: ./sets.yaml: file not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("no records")
	err := NewErrorContext().WithOperation("group files").Wrap(fmt.Errorf("run: %w", sentinel)).BuildError()
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should reach the wrapped sentinel")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions",
			err: &ActionableError{
				Operation:   "load grouping config",
				Resource:    "./sets.yaml",
				Suggestions: []string{"Run 'bidsflow config validate'", "Check file permissions"},
			},
			contains: []string{"failed to load grouping config", "• Run 'bidsflow config validate'", "• Check file permissions"},
		},
		{
			name:     "quiet hides the chain",
			err:      &ActionableError{Operation: "parse config", Cause: errors.New("syntax error")},
			contains: []string{"failed to parse config: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "verbose nested chain",
			err: &ActionableError{
				Operation: "write records",
				Cause: &ActionableError{
					Operation: "open database",
					Cause:     errors.New("disk full"),
				},
			},
			verbose:  true,
			contains: []string{"Error chain:", "1. failed to open database: disk full", "2. disk full"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("sets.yaml").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	ae := NewErrorContext().
		WithOperation("load settings").
		WithResource("bidsflow.cue").
		WithSuggestion("Check syntax").
		WithSuggestions("Run 'bidsflow config show'", "Unset BIDSFLOW_WORKERS").
		WithIssue(SettingsLoadFailedId).
		Wrap(errors.New("workers: conflicting values")).
		Build()
	if ae.Operation != "load settings" || ae.Resource != "bidsflow.cue" {
		t.Errorf("unexpected context: %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v, want 3", ae.Suggestions)
	}
	if ae.Issue != SettingsLoadFailedId {
		t.Errorf("Issue = %d, want %d", ae.Issue, SettingsLoadFailedId)
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("read file list").WithResource("files.json")
	first := ctx.Wrap(errors.New("entry 0")).Build()
	second := ctx.Wrap(errors.New("entry 1")).Build()
	if first.Cause.Error() == second.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	if first.Resource != second.Resource {
		t.Error("reused context should keep its resource")
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	ae := WrapWithContext(cause, "scan dataset", "/data/ds001")
	if ae.Operation != "scan dataset" || ae.Resource != "/data/ds001" || !errors.Is(ae, cause) {
		t.Errorf("WrapWithContext() = %+v", ae)
	}
	if WrapWithContext(nil, "scan dataset", "/data") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	if NewActionableError("x").Cause != nil {
		t.Error("NewActionableError should have no cause")
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().WithOperation("group files").WithIssue(NoRecordsId).BuildError()
	outer := NewErrorContext().WithOperation("run").Wrap(fmt.Errorf("pipeline: %w", inner)).BuildError()

	tests := []struct {
		name string
		err  error
		want Id
	}{
		{"direct", inner, NoRecordsId},
		{"nested", outer, NoRecordsId},
		{"plain error", errors.New("boom"), 0},
		{"no issue", NewErrorContext().WithOperation("x").BuildError(), 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		got := IssueOf(tt.err)
		switch {
		case tt.want == 0 && got != nil:
			t.Errorf("%s: IssueOf() = %d, want nil", tt.name, got.Id())
		case tt.want != 0 && (got == nil || got.Id() != tt.want):
			t.Errorf("%s: IssueOf() = %v, want %d", tt.name, got, tt.want)
		}
	}
}

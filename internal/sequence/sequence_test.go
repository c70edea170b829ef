// SPDX-License-Identifier: MPL-2.0

package sequence

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

type item struct {
	name string
	vals map[string]string
}

func getVal(it item, entity string) string {
	if v, ok := it.vals[entity]; ok {
		return v
	}
	return "NA"
}

func names(items []item) (any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	return items[0].name, true
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"echo-2", "echo-10", -1},
		{"echo-10", "echo-2", 1},
		{"2", "10", -1},
		{"10", "10", 0},
		{"002", "2", -1},
		{"AP", "PA", -1},
		{"a1", "b", -1},
		{"run-99999999999999999999", "run-100000000000000000000", -1},
	}
	for _, tt := range tests {
		got := Compare(tt.a, tt.b)
		if sign(got) != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestCompare_SortsNumericSuffixes(t *testing.T) {
	t.Parallel()
	vals := []string{"echo-10", "echo-2", "echo-1", "echo-3"}
	slices.SortFunc(vals, Compare)
	want := []string{"echo-1", "echo-2", "echo-3", "echo-10"}
	if !slices.Equal(vals, want) {
		t.Errorf("sorted = %v, want %v", vals, want)
	}
}

func TestOrder_Single(t *testing.T) {
	t.Parallel()

	items := []item{
		{"e3", map[string]string{"echo": "3"}},
		{"e10", map[string]string{"echo": "10"}},
		{"e1", map[string]string{"echo": "1"}},
		{"e2", map[string]string{"echo": "2"}},
	}
	root := Order(items, []string{"echo"}, Hierarchical, getVal)
	got := Project(root, names)
	want := []any{"e1", "e2", "e3", "e10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func flipInvItems() []item {
	return []item{
		{"f2i2", map[string]string{"flip": "2", "inv": "2"}},
		{"f1i2", map[string]string{"flip": "1", "inv": "2"}},
		{"f2i1", map[string]string{"flip": "2", "inv": "1"}},
		{"f1i1", map[string]string{"flip": "1", "inv": "1"}},
	}
}

func TestOrder_Hierarchical(t *testing.T) {
	t.Parallel()

	root := Order(flipInvItems(), []string{"flip", "inv"}, Hierarchical, getVal)
	got := Project(root, names)
	want := []any{
		[]any{"f1i1", "f1i2"},
		[]any{"f2i1", "f2i2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func TestOrder_HierarchicalThreeLevels(t *testing.T) {
	t.Parallel()

	var items []item
	for _, a := range []string{"2", "1"} {
		for _, b := range []string{"2", "1"} {
			for _, c := range []string{"2", "1"} {
				items = append(items, item{a + b + c, map[string]string{"a": a, "b": b, "c": c}})
			}
		}
	}
	root := Order(items, []string{"a", "b", "c"}, Hierarchical, getVal)
	got := Project(root, names)
	want := []any{
		[]any{[]any{"111", "112"}, []any{"121", "122"}},
		[]any{[]any{"211", "212"}, []any{"221", "222"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func TestOrder_FlatKeepsTwoLevels(t *testing.T) {
	t.Parallel()

	var items []item
	for _, a := range []string{"2", "1"} {
		for _, b := range []string{"2", "1"} {
			for _, c := range []string{"2", "1"} {
				items = append(items, item{a + b + c, map[string]string{"a": a, "b": b, "c": c}})
			}
		}
	}
	root := Order(items, []string{"a", "b", "c"}, Flat, getVal)
	got := Project(root, names)
	want := []any{
		[]any{"111", "112", "121", "122"},
		[]any{"211", "212", "221", "222"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func TestOrder_FlatMatchesHierarchicalForTwoEntities(t *testing.T) {
	t.Parallel()
	h := Project(Order(flipInvItems(), []string{"flip", "inv"}, Hierarchical, getVal), names)
	f := Project(Order(flipInvItems(), []string{"flip", "inv"}, Flat, getVal), names)
	if !reflect.DeepEqual(h, f) {
		t.Errorf("flat %v != hierarchical %v", f, h)
	}
}

func TestProject_DropsRejectedLeavesAndEmptyGroups(t *testing.T) {
	t.Parallel()

	root := Order(flipInvItems(), []string{"flip", "inv"}, Hierarchical, getVal)
	got := Project(root, func(items []item) (any, bool) {
		if items[0].vals["flip"] == "1" {
			return nil, false
		}
		return items[0].name, true
	})
	want := []any{[]any{"f2i1", "f2i2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}
}

func TestOrder_LeafKeepsInputOrder(t *testing.T) {
	t.Parallel()

	items := []item{
		{"phase", map[string]string{"inv": "1", "part": "phase"}},
		{"mag", map[string]string{"inv": "1", "part": "mag"}},
	}
	root := Order(items, []string{"inv"}, Hierarchical, getVal)
	if len(root.Children) != 1 || len(root.Children[0].Items) != 2 {
		t.Fatalf("expected one leaf with two items, got %+v", root.Children)
	}
	if root.Children[0].Items[0].name != "phase" {
		t.Error("leaf items should keep input order")
	}
}

func TestOrder_ZeroPaddedValuesShareALeaf(t *testing.T) {
	t.Parallel()

	items := []item{
		{"inv01-mag", map[string]string{"inv": "01"}},
		{"inv2", map[string]string{"inv": "2"}},
		{"inv1-phase", map[string]string{"inv": "1"}},
	}
	root := Order(items, []string{"inv"}, Hierarchical, getVal)
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2 (01 and 1 are one position)", len(root.Children))
	}
	first := root.Children[0]
	if first.Value != "01" || len(first.Items) != 2 || first.Items[1].name != "inv1-phase" {
		t.Errorf("first leaf = %+v", first)
	}
	if root.Children[1].Items[0].name != "inv2" {
		t.Errorf("second leaf = %+v", root.Children[1])
	}
}

func TestMode_IsValid(t *testing.T) {
	t.Parallel()

	for _, m := range []Mode{Hierarchical, Flat} {
		if ok, errs := m.IsValid(); !ok || errs != nil {
			t.Errorf("Mode(%q).IsValid() = %v, %v", m, ok, errs)
		}
	}
	ok, errs := Mode("nested").IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidMode) {
		t.Errorf("Mode(nested).IsValid() = %v, %v; want ErrInvalidMode", ok, errs)
	}
}

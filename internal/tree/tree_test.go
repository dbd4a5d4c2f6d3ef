package tree

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func placementByID(t *testing.T, placements []Placement, id uuid.UUID) Placement {
	t.Helper()
	for _, p := range placements {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("no placement for %s", id)
	return Placement{}
}

func TestBuild_SingleRoot(t *testing.T) {
	root := Node{ID: uuid.New()}

	placements, err := Build([]Node{root})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}

	p := placements[0]
	if p.Path != "000" || p.Depth != 0 || p.Left != 1 || p.Right != 2 {
		t.Errorf("unexpected placement: %+v", p)
	}
}

func TestBuild_Forest(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	d := uuid.New()
	e := uuid.New()

	nodes := []Node{
		{ID: a},
		{ID: b, ParentID: &a},
		{ID: c, ParentID: &b},
		{ID: d, ParentID: &a},
		{ID: e},
	}

	placements, err := Build(nodes)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(placements) != len(nodes) {
		t.Fatalf("expected %d placements, got %d", len(nodes), len(placements))
	}

	tests := []struct {
		name  string
		id    uuid.UUID
		path  string
		depth int
		left  int
		right int
	}{
		{"first root", a, "000", 0, 1, 8},
		{"first child", b, "000.000", 1, 2, 5},
		{"grandchild", c, "000.000.000", 2, 3, 4},
		{"second child", d, "000.001", 1, 6, 7},
		{"second root", e, "001", 0, 9, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := placementByID(t, placements, tt.id)
			if p.Path != tt.path {
				t.Errorf("path = %q, want %q", p.Path, tt.path)
			}
			if p.Depth != tt.depth {
				t.Errorf("depth = %d, want %d", p.Depth, tt.depth)
			}
			if p.Left != tt.left || p.Right != tt.right {
				t.Errorf("bounds = (%d, %d), want (%d, %d)", p.Left, p.Right, tt.left, tt.right)
			}
		})
	}
}

func TestBuild_DescendantsFallInsideBounds(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	d := uuid.New()
	e := uuid.New()

	placements, err := Build([]Node{
		{ID: a},
		{ID: b, ParentID: &a},
		{ID: c, ParentID: &b},
		{ID: d, ParentID: &a},
		{ID: e},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	pa := placementByID(t, placements, a)
	for _, id := range []uuid.UUID{b, c, d} {
		p := placementByID(t, placements, id)
		if p.Left <= pa.Left || p.Left >= pa.Right {
			t.Errorf("descendant %s has left %d outside (%d, %d)", id, p.Left, pa.Left, pa.Right)
		}
	}
	pe := placementByID(t, placements, e)
	if pe.Left > pa.Left && pe.Left < pa.Right {
		t.Errorf("sibling root %s has left %d inside (%d, %d)", e, pe.Left, pa.Left, pa.Right)
	}
}

func TestBuild_SiblingOrderFollowsInput(t *testing.T) {
	parent := uuid.New()
	first := uuid.New()
	second := uuid.New()

	placements, err := Build([]Node{
		{ID: parent},
		{ID: first, ParentID: &parent},
		{ID: second, ParentID: &parent},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := placementByID(t, placements, first).Path; got != "000.000" {
		t.Errorf("first sibling path = %q, want %q", got, "000.000")
	}
	if got := placementByID(t, placements, second).Path; got != "000.001" {
		t.Errorf("second sibling path = %q, want %q", got, "000.001")
	}
}

func TestBuild_PathSortMatchesWalkOrder(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	d := uuid.New()

	placements, err := Build([]Node{
		{ID: a},
		{ID: b, ParentID: &a},
		{ID: c, ParentID: &a},
		{ID: d},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	byPath := make([]Placement, len(placements))
	copy(byPath, placements)
	sort.Slice(byPath, func(i, j int) bool { return byPath[i].Path < byPath[j].Path })

	byLeft := make([]Placement, len(placements))
	copy(byLeft, placements)
	sort.Slice(byLeft, func(i, j int) bool { return byLeft[i].Left < byLeft[j].Left })

	for i := range byPath {
		if byPath[i].ID != byLeft[i].ID {
			t.Fatalf("path order diverges from preorder at position %d: %s vs %s", i, byPath[i].ID, byLeft[i].ID)
		}
	}
}

func TestBuild_MissingParent(t *testing.T) {
	ghost := uuid.New()
	_, err := Build([]Node{{ID: uuid.New(), ParentID: &ghost}})
	if err == nil {
		t.Fatal("expected error for missing parent")
	}
	if !strings.Contains(err.Error(), "missing parent") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuild_Cycle(t *testing.T) {
	x := uuid.New()
	y := uuid.New()

	_, err := Build([]Node{
		{ID: uuid.New()},
		{ID: x, ParentID: &y},
		{ID: y, ParentID: &x},
	})
	if err == nil {
		t.Fatal("expected error for cyclic parent graph")
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestBuild_SelfParentIsCycle(t *testing.T) {
	id := uuid.New()
	_, err := Build([]Node{{ID: id, ParentID: &id}})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	placements, err := Build(nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(placements) != 0 {
		t.Errorf("expected no placements, got %d", len(placements))
	}
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"000", ""},
		{"000.001", "000"},
		{"000.001.002", "000.001"},
	}
	for _, tt := range tests {
		if got := ParentPath(tt.path); got != tt.want {
			t.Errorf("ParentPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAncestorPaths(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"000", nil},
		{"000.001", []string{"000"}},
		{"000.001.002", []string{"000", "000.001"}},
	}
	for _, tt := range tests {
		got := AncestorPaths(tt.path)
		if len(got) != len(tt.want) {
			t.Errorf("AncestorPaths(%q) = %v, want %v", tt.path, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("AncestorPaths(%q)[%d] = %q, want %q", tt.path, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPathDepth(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"", 0},
		{"000", 0},
		{"000.000", 1},
		{"001.002.003", 2},
	}
	for _, tt := range tests {
		if got := PathDepth(tt.path); got != tt.want {
			t.Errorf("PathDepth(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"000", true},
		{"000.001", true},
		{"999.000.123", true},
		{"", false},
		{"00", false},
		{"0000", false},
		{"abc", false},
		{"000.", false},
		{"000..001", false},
		{"-01", false},
		{"000.001.", false},
	}
	for _, tt := range tests {
		if got := ValidPath(tt.path); got != tt.want {
			t.Errorf("ValidPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSplitPath(t *testing.T) {
	if got := SplitPath(""); got != nil {
		t.Errorf("SplitPath(\"\") = %v, want nil", got)
	}
	got := SplitPath("000.001")
	if len(got) != 2 || got[0] != "000" || got[1] != "001" {
		t.Errorf("SplitPath(\"000.001\") = %v", got)
	}
}

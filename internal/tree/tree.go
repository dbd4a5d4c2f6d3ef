// Package tree computes the hierarchy columns stored on catalog entity tables:
// a materialized path, a depth level, and modified-preorder (MPTT) left/right
// bounds. The package is pure — it never touches the database. Repositories
// load (id, parent_id) rows, call Build, and write the placements back in one
// transaction, so the stored columns are always the product of a single
// consistent walk rather than incremental adjustments.
//
// Path format: dot-joined, zero-padded 3-digit sibling indexes. The first root
// is "000", its first child "000.000", the second root "001". Sorting rows by
// path yields depth-first order with parents before children, which is the
// order every list surface renders.
//
// Left/right bounds are numbered by one continuous preorder walk across the
// whole forest (first root gets left 1). A node's descendants are exactly the
// rows with left strictly between its left and right.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrCycle reports that the parent graph loops, so no consistent placement
// exists. Writers translate it into a validation failure instead of a plain
// server error.
var ErrCycle = errors.New("parent graph contains a cycle")

// SegmentWidth is the digit count of one path segment. Three digits bound the
// sibling fan-out at MaxSiblings; wider trees indicate data drift, not real
// catalog shapes.
const SegmentWidth = 3

// MaxSiblings is the largest number of children one parent may carry before
// Build refuses to produce paths (a fourth digit would break lexicographic
// ordering of sibling segments).
const MaxSiblings = 1000

// PathSeparator joins path segments.
const PathSeparator = "."

// Node is one row of a hierarchy table, as loaded from the database. Sibling
// order follows the order nodes appear in the input slice, so callers control
// it with their query's ORDER BY.
type Node struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
}

// Placement holds the computed hierarchy columns for one node.
type Placement struct {
	ID    uuid.UUID
	Path  string
	Depth int
	Left  int
	Right int
}

// Build computes a Placement for every input node. It returns an error when a
// node references a parent absent from the input, when the parent graph
// contains a cycle, or when any parent exceeds MaxSiblings children. The
// result preserves no particular order; callers index it by ID.
func Build(nodes []Node) ([]Placement, error) {
	children := make(map[uuid.UUID][]Node, len(nodes))
	index := make(map[uuid.UUID]bool, len(nodes))
	var roots []Node

	for _, n := range nodes {
		index[n.ID] = true
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if !index[*n.ParentID] {
			return nil, fmt.Errorf("node %s references missing parent %s", n.ID, *n.ParentID)
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	placements := make([]Placement, 0, len(nodes))
	counter := 0

	var walk func(n Node, path string, depth int) error
	walk = func(n Node, path string, depth int) error {
		counter++
		p := Placement{ID: n.ID, Path: path, Depth: depth, Left: counter}

		kids := children[n.ID]
		if len(kids) > MaxSiblings {
			return fmt.Errorf("node %s has %d children, exceeding the maximum of %d", n.ID, len(kids), MaxSiblings)
		}
		for i, child := range kids {
			if err := walk(child, path+PathSeparator+segment(i), depth+1); err != nil {
				return err
			}
		}

		counter++
		p.Right = counter
		placements = append(placements, p)
		return nil
	}

	if len(roots) > MaxSiblings {
		return nil, fmt.Errorf("forest has %d roots, exceeding the maximum of %d", len(roots), MaxSiblings)
	}
	for i, root := range roots {
		if err := walk(root, segment(i), 0); err != nil {
			return nil, err
		}
	}

	// Every node reachable from a root has a placement; a shortfall means the
	// parent graph loops somewhere.
	if len(placements) != len(nodes) {
		return nil, fmt.Errorf("%w: placed %d of %d nodes", ErrCycle, len(placements), len(nodes))
	}

	return placements, nil
}

func segment(i int) string {
	return fmt.Sprintf("%0*d", SegmentWidth, i)
}

// SplitPath returns the individual segments of a path.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// ParentPath returns the path of the node's parent, or "" for a root.
func ParentPath(path string) string {
	idx := strings.LastIndex(path, PathSeparator)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// AncestorPaths returns the paths of all proper ancestors, nearest root first.
// For "000.001.002" it returns ["000", "000.001"].
func AncestorPaths(path string) []string {
	segments := SplitPath(path)
	if len(segments) < 2 {
		return nil
	}
	ancestors := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		ancestors = append(ancestors, strings.Join(segments[:i], PathSeparator))
	}
	return ancestors
}

// PathDepth returns the depth encoded in a path (0 for a root path).
func PathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, PathSeparator)
}

// ValidPath reports whether s looks like a well-formed path: non-empty,
// dot-separated, every segment exactly SegmentWidth digits.
func ValidPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, PathSeparator) {
		if len(seg) != SegmentWidth {
			return false
		}
		for _, r := range seg {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

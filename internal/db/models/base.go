// Package models - base.go defines the hierarchy columns shared by every
// tree-shaped catalog entity and the display helpers the list and detail
// surfaces use to render tree position.
package models

import (
	"fmt"
	"strings"
)

// TreeColumns holds the hierarchy placement columns stored on applications,
// attributes, and organisations. They are recomputed by a full-tree rebuild
// whenever a structural write lands, never adjusted incrementally.
type TreeColumns struct {
	TreePath  string `json:"tree_path" db:"tree_path"`
	TreeDepth int    `json:"level" db:"tree_depth"` // 0 for roots
	TreeLeft  int    `json:"tree_left" db:"tree_left"`
	TreeRight int    `json:"tree_right" db:"tree_right"`
}

// indentedName prefixes name with one em dash per depth level, the visual
// used on every hierarchy listing.
func indentedName(name string, depth int) string {
	if depth <= 0 {
		return name
	}
	return strings.Repeat("—", depth) + " " + name
}

// parentNameOrDash renders a parent name cell, with "-" standing in for roots.
func parentNameOrDash(parentName *string) string {
	if parentName == nil || *parentName == "" {
		return "-"
	}
	return *parentName
}

// treeInfoLine renders the tree summary shown on detail pages. pathNames are
// the entity's ancestor names from root downward, ending with its own name.
func treeInfoLine(depth int, pathNames []string, left, right int) string {
	return fmt.Sprintf("Level: %d, Path: %s, Left: %d, Right: %d",
		depth, strings.Join(pathNames, " > "), left, right)
}

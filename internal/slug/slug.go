// Package slug derives the unique, URL-safe identifiers that address catalog
// entities. Slugs are generated from the entity name when the caller leaves
// them blank, and collisions are resolved with a numeric suffix probe
// (app-a, app-a-1, app-a-2, ...).
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxLength bounds generated slugs, matching the column width of the slug
// columns in the schema.
const MaxLength = 255

// maxProbes caps the numeric suffix search before Generate falls back to a
// random suffix. A catalog with a thousand same-named entities is already
// degenerate; the fallback just keeps writes from spinning.
const maxProbes = 1000

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
	wellFormed   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Make converts free-form text into slug form: lowercase, spaces and
// underscores collapsed to single hyphens, everything else outside [a-z0-9-]
// dropped. It returns "" when nothing slug-worthy survives.
func Make(s string) string {
	out := strings.ToLower(s)
	out = strings.ReplaceAll(out, " ", "-")
	out = strings.ReplaceAll(out, "_", "-")
	out = invalidChars.ReplaceAllString(out, "")
	out = hyphenRuns.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")

	if len(out) > MaxLength {
		out = out[:MaxLength]
		out = strings.TrimRight(out, "-")
	}
	return out
}

// IsValid reports whether s is an acceptable caller-provided slug: non-empty,
// within MaxLength, and matching the canonical shape Make produces.
func IsValid(s string) bool {
	return s != "" && len(s) <= MaxLength && wellFormed.MatchString(s)
}

// Generate derives a unique slug from source. taken reports whether a
// candidate is already in use; callers typically close over a repository
// query that excludes the row being updated. Candidates are probed in order
// base, base-1, base-2, ... and after maxProbes attempts a short random
// suffix is used instead.
func Generate(ctx context.Context, source string, taken func(ctx context.Context, candidate string) (bool, error)) (string, error) {
	base := Make(source)
	if base == "" {
		return "", fmt.Errorf("%q does not produce a valid slug", source)
	}

	candidate := base
	for i := 1; i <= maxProbes; i++ {
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !inUse {
			return candidate, nil
		}
		candidate = withSuffix(base, fmt.Sprintf("%d", i))
	}

	candidate = withSuffix(base, uuid.New().String()[:8])
	inUse, err := taken(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
	}
	if inUse {
		return "", fmt.Errorf("failed to find a free slug for %q", source)
	}
	return candidate, nil
}

// withSuffix appends "-suffix" to base, trimming base so the result stays
// within MaxLength.
func withSuffix(base, suffix string) string {
	room := MaxLength - len(suffix) - 1
	if len(base) > room {
		base = strings.TrimRight(base[:room], "-")
	}
	return base + "-" + suffix
}

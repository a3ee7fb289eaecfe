package docindex

import (
	"slices"
	"strings"
)

// MatchesPrefix reports whether path equals one of the prefixes or lies
// beneath one of them. Matching is case-sensitive and segment-aligned, so
// "docsx/a.md" does not match "docs".
func MatchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// FilterPaths returns the paths that match any prefix, in input order.
// A path matching several prefixes is returned once.
func FilterPaths(paths, prefixes []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if MatchesPrefix(p, prefixes) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// GroupPaths builds the legacy grouping view of a path list. Paths with
// three or more segments are keyed by their first two segments, paths with
// exactly two segments are keyed by themselves, and single-segment paths
// are left out. Each group is sorted ascending.
func GroupPaths(paths []string) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range paths {
		parts := strings.Split(p, "/")
		var key string
		switch {
		case len(parts) >= 3:
			key = parts[0] + "/" + parts[1]
		case len(parts) == 2:
			key = p
		default:
			continue
		}
		groups[key] = append(groups[key], p)
	}
	for _, files := range groups {
		slices.Sort(files)
	}
	return groups
}

// CleanPrefixes trims surrounding whitespace and slashes from each prefix
// and drops empty and repeated entries, keeping the first occurrence.
func CleanPrefixes(prefixes []string) []string {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" || slices.Contains(cleaned, p) {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return cleaned
}

// IsMarkdown reports whether the path has a .md or .mdx extension.
func IsMarkdown(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx")
}

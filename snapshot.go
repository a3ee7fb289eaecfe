package docindex

import (
	"slices"
	"time"
)

// SnapshotFileName is the name of the published snapshot document. The
// presentation pages fetch it by this relative name.
const SnapshotFileName = "tree.json"

// RepositoryIndex holds the documentation files found in one repository.
type RepositoryIndex struct {
	Branch string              `json:"branch"`
	Groups map[string][]string `json:"groups"`
	Paths  []string            `json:"paths"`
}

// NewRepositoryIndex returns the index for the already filtered paths.
// Paths are sorted ascending and groups derived from them.
func NewRepositoryIndex(branch string, paths []string) *RepositoryIndex {
	sorted := slices.Clone(paths)
	if sorted == nil {
		sorted = []string{}
	}
	slices.Sort(sorted)
	return &RepositoryIndex{
		Branch: branch,
		Groups: GroupPaths(sorted),
		Paths:  sorted,
	}
}

// EmptyRepositoryIndex returns the entry recorded for a repository whose
// tree could not be fetched.
func EmptyRepositoryIndex(branch string) *RepositoryIndex {
	return &RepositoryIndex{
		Branch: branch,
		Groups: map[string][]string{},
		Paths:  []string{},
	}
}

// Snapshot maps repository names to their documentation index. A snapshot
// is built completely in memory and replaces the previously published one
// as a whole.
type Snapshot map[string]*RepositoryIndex

// Names returns the repository names in ascending order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FileCount returns the total number of paths across all repositories.
func (s Snapshot) FileCount() int {
	var n int
	for _, idx := range s {
		n += len(idx.Paths)
	}
	return n
}

// SnapshotMeta describes a snapshot for the presentation pages.
type SnapshotMeta struct {
	Organization string
	FastMode     bool
	GeneratedAt  time.Time
	Digest       string

	// PublicURL is the externally visible base URL of the site. Pages that
	// need absolute links (the sitemap) are only produced when it is set.
	PublicURL string
}

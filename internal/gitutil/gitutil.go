// Package gitutil answers version-control questions about the project tree.
package gitutil

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ChangedFiles returns the set of files under root that differ from HEAD
// (modified, added, or untracked), keyed by path relative to the repository
// root with forward slashes.
func ChangedFiles(root string) (map[string]bool, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", root, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("get worktree status: %w", err)
	}

	changed := make(map[string]bool, len(status))
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		changed[path] = true
	}

	return changed, nil
}

// IsChanged reports whether path (absolute or relative to the working
// directory) appears in the changed set, which is keyed by repo-relative
// slash paths.
func IsChanged(changed map[string]bool, repoRoot, path string) bool {
	rel, err := filepath.Rel(repoRoot, path)
	if err != nil {
		return true
	}
	return changed[filepath.ToSlash(rel)]
}

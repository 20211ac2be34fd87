package gitutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestChangedFiles(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "committed.yaml", "a: 1\n")

	// Modify a tracked file and add an untracked one.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "committed.yaml"), []byte("a: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.yaml"), []byte("b: 1\n"), 0o644))

	changed, err := ChangedFiles(dir)
	require.NoError(t, err)

	assert.True(t, changed["committed.yaml"])
	assert.True(t, changed["new.yaml"])
}

func TestChangedFiles_CleanTree(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "committed.yaml", "a: 1\n")

	changed, err := ChangedFiles(dir)
	require.NoError(t, err)
	assert.False(t, changed["committed.yaml"])
}

func TestChangedFiles_NotARepo(t *testing.T) {
	_, err := ChangedFiles(t.TempDir())
	assert.Error(t, err)
}

func TestIsChanged(t *testing.T) {
	changed := map[string]bool{"envs/prod/secrets/db.unsealed.yaml": true}

	root := string(filepath.Separator) + "repo"
	assert.True(t, IsChanged(changed, root, filepath.Join(root, "envs", "prod", "secrets", "db.unsealed.yaml")))
	assert.False(t, IsChanged(changed, root, filepath.Join(root, "envs", "prod", "secrets", "other.yaml")))
}

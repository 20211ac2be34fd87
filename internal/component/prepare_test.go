package component

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/overlay"
)

func TestPrepareConfigs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"api/Dockerfile":                            "FROM alpine\n",
		"api/kube/deployment.yaml":                  deploymentYAML,
		"envs/prod/merges/api/kube/deployment.yaml": "spec:\n  template:\n    spec:\n      containers:\n        - env:\n            - name: LOG_LEVEL\n              value: warn\n",
	})

	c, err := New(root, "api")
	require.NoError(t, err)
	c.Namespace = "prod"
	c.Tag = "v2"
	require.NoError(t, c.PatchFromEnv(&envs.Settings{Name: "prod"}))

	releaseDir := t.TempDir()
	require.NoError(t, c.PrepareConfigs(releaseDir, overlay.NewMerger()))

	assert.Equal(t, filepath.Join(releaseDir, "api"), c.StagedDir)

	staged := c.KubeConfigs["deployment.yaml"]
	assert.Equal(t, filepath.Join(releaseDir, "api", "kube", "deployment.yaml"), staged)

	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	out := string(data)

	// Patched fields.
	assert.Contains(t, out, "namespace: prod")
	assert.Contains(t, out, "image: registry.tld/myproj-api:v2")
	// Merged fields from the env merge file.
	assert.Contains(t, out, "name: LOG_LEVEL")
	assert.Contains(t, out, "value: warn")
	// Base fields survive the merge.
	assert.Contains(t, out, "app: api")

	_, err = os.Stat(filepath.Join(releaseDir, "api", "Dockerfile"))
	assert.NoError(t, err)
}

func TestPrepareConfigs_NoDockerfile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"worker/kube/deployment.yaml": deploymentYAML,
	})

	c, err := New(root, "worker")
	require.NoError(t, err)

	releaseDir := t.TempDir()
	require.NoError(t, c.PrepareConfigs(releaseDir, overlay.NewMerger()))

	_, err = os.Stat(filepath.Join(releaseDir, "worker", "Dockerfile"))
	assert.True(t, os.IsNotExist(err))
}

func TestMergedForValidation_PlainPathUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"api/kube/deployment.yaml": deploymentYAML,
	})

	path := filepath.Join(root, "api", "kube", "deployment.yaml")
	out, err := MergedForValidation(root, path, t.TempDir(), overlay.NewMerger())
	require.NoError(t, err)
	assert.Equal(t, path, out)
}

func TestMergedForValidation_MergePath(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"api/kube/deployment.yaml":                  deploymentYAML,
		"envs/dev/merges/api/kube/deployment.yaml": "spec:\n  replicas: 5\n",
	})

	path := filepath.Join(root, "envs", "dev", "merges", "api", "kube", "deployment.yaml")
	tmp := t.TempDir()

	out, err := MergedForValidation(root, path, tmp, overlay.NewMerger())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, tmp))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "replicas: 5")
	assert.Contains(t, string(data), "kind: Deployment")
}

func TestMergedForValidation_MissingBase(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"envs/dev/merges/api/kube/deployment.yaml": "spec:\n  replicas: 5\n",
	})

	path := filepath.Join(root, "envs", "dev", "merges", "api", "kube", "deployment.yaml")
	_, err := MergedForValidation(root, path, t.TempDir(), overlay.NewMerger())
	assert.Error(t, err)
}

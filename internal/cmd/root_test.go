package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Structure(t *testing.T) {
	commands := rootCmd.Commands()
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "release")
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "kubeval")
	assert.Contains(t, names, "merge")
	assert.Contains(t, names, "templates")
	assert.Contains(t, names, "secrets")
	assert.Contains(t, names, "envs")
	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "update")
}

func TestParsePathValues(t *testing.T) {
	out, err := parsePathValues("tag", []string{"service/api=v42", "worker=latest"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"service/api": "v42", "worker": "latest"}, out)
}

func TestParsePathValues_Invalid(t *testing.T) {
	for _, bad := range []string{"service/api", "=v42", "service/api="} {
		_, err := parsePathValues("tag", []string{bad})
		assert.Error(t, err, bad)
	}
}

func TestReleaseID(t *testing.T) {
	a := releaseID()
	b := releaseID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

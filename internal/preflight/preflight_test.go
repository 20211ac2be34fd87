package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllBinaries(t *testing.T) {
	all := AllBinaries()
	assert.Len(t, all, len(requiredBinaries)+len(optionalBinaries))

	names := make([]string, 0, len(all))
	for _, bin := range all {
		assert.NotEmpty(t, bin.InstallHint, bin.Name)
		names = append(names, bin.Name)
	}
	assert.Contains(t, names, "kubectl")
	assert.Contains(t, names, "kubeseal")
	assert.Contains(t, names, "kubeval")
	assert.Contains(t, names, "docker")
}

func TestIsBinaryAvailable(t *testing.T) {
	// sh is present on any system these tests run on.
	assert.True(t, IsBinaryAvailable("sh"))
	assert.False(t, IsBinaryAvailable("definitely-not-a-real-binary-xyz"))
}

func TestCheckAll_MissingBinariesHaveHints(t *testing.T) {
	warnings, errors := CheckAll()
	for _, w := range warnings {
		assert.Contains(t, w, ": ")
	}
	for _, e := range errors {
		assert.Contains(t, e, ": ")
	}
}

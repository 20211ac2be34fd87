package component

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/yamlutil"
)

func parseDocs(t *testing.T, src string) []*yaml.Node {
	t.Helper()
	docs, err := yamlutil.DecodeStream(strings.NewReader(src))
	require.NoError(t, err)
	return docs
}

func TestSplitImage(t *testing.T) {
	tests := []struct {
		ref   string
		image string
		tag   string
	}{
		{"nginx", "nginx", ""},
		{"nginx:1.25", "nginx", "1.25"},
		{"registry.tld/myproj-api:v1", "registry.tld/myproj-api", "v1"},
		{"registry.tld:5000/myproj-api", "registry.tld:5000/myproj-api", ""},
		{"registry.tld:5000/myproj-api:v1", "registry.tld:5000/myproj-api", "v1"},
	}

	for _, tt := range tests {
		image, tag := splitImage(tt.ref)
		assert.Equal(t, tt.image, image, tt.ref)
		assert.Equal(t, tt.tag, tag, tt.ref)
	}
}

func TestPatchDocs_Deployment(t *testing.T) {
	docs := parseDocs(t, deploymentYAML)

	c := &Component{
		Namespace: "prod",
		Tag:       "v2",
		Replicas:  3,
		ImagePullSecrets: map[string]string{
			"registry.tld": "regcred",
		},
	}
	c.patchDocs(docs)

	doc := docs[0]
	assert.Equal(t, "prod", yamlutil.MapGetPath(doc, "metadata", "namespace").Value)
	assert.Equal(t, "3", yamlutil.MapGetPath(doc, "spec", "replicas").Value)

	containers := yamlutil.MapGetPath(doc, "spec", "template", "spec", "containers")
	require.NotNil(t, containers)
	image := yamlutil.MapGet(containers.Content[0], "image")
	assert.Equal(t, "registry.tld/myproj-api:v2", image.Value)

	secrets := yamlutil.MapGetPath(doc, "spec", "template", "spec", "imagePullSecrets")
	require.NotNil(t, secrets)
	require.Len(t, secrets.Content, 1)
	assert.Equal(t, "regcred", yamlutil.MapGet(secrets.Content[0], "name").Value)
}

func TestPatchDocs_ImageOverride(t *testing.T) {
	docs := parseDocs(t, deploymentYAML)

	c := &Component{Image: "registry.tld/myproj-api-canary", Tag: "v9"}
	c.patchDocs(docs)

	containers := yamlutil.MapGetPath(docs[0], "spec", "template", "spec", "containers")
	image := yamlutil.MapGet(containers.Content[0], "image")
	assert.Equal(t, "registry.tld/myproj-api-canary:v9", image.Value)
}

func TestPatchDocs_SkipsRBACKinds(t *testing.T) {
	docs := parseDocs(t, "kind: ClusterRole\nmetadata:\n  name: admin\n")

	c := &Component{Namespace: "prod"}
	c.patchDocs(docs)

	assert.Nil(t, yamlutil.MapGetPath(docs[0], "metadata", "namespace"))
}

func TestPatchDocs_NonRestartKindGetsNamespaceOnly(t *testing.T) {
	docs := parseDocs(t, "kind: Service\nmetadata:\n  name: api\nspec:\n  ports: []\n")

	c := &Component{Namespace: "prod", Replicas: 3}
	c.patchDocs(docs)

	assert.Equal(t, "prod", yamlutil.MapGetPath(docs[0], "metadata", "namespace").Value)
	assert.Nil(t, yamlutil.MapGetPath(docs[0], "spec", "replicas"))
}

package component

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/ui"
	"github.com/quayops/stevedore/internal/yamlutil"
)

// skipPatchKinds are Kubernetes resource kinds that are released as-is,
// without namespace/image/replica patching.
var skipPatchKinds = map[string]bool{
	"ClusterRole":        true,
	"ClusterRoleBinding": true,
	"Role":               true,
	"RoleBinding":        true,
	"ServiceAccount":     true,
}

// restartKinds are resource kinds that support rollout restart.
// https://kubernetes.io/docs/reference/generated/kubectl/kubectl-commands#rollout
var restartKinds = map[string]bool{
	"Deployment":  true,
	"DaemonSet":   true,
	"StatefulSet": true,
}

// patchDocs applies release-time patches to every document in place.
func (c *Component) patchDocs(docs []*yaml.Node) {
	for _, doc := range docs {
		kind := nodeValue(yamlutil.MapGet(doc, "kind"))
		if kind == "" {
			continue
		}

		if skipPatchKinds[kind] {
			ui.Info("Skipping %s patching", kind)
			continue
		}

		c.patchGeneric(doc)
		if restartKinds[kind] {
			c.patchContainers(doc)
			c.patchImagePullSecrets(doc)
			c.patchReplicas(doc)
		}
	}
}

// patchGeneric updates metadata shared by all patchable kinds.
func (c *Component) patchGeneric(doc *yaml.Node) {
	if c.Namespace == "" {
		return
	}

	meta := yamlutil.MapGet(doc, "metadata")
	if meta == nil {
		return
	}

	ui.Info("Updating namespace to %s", c.Namespace)
	yamlutil.MapSet(meta, "namespace", yamlutil.StringNode(c.Namespace))
}

// patchContainers rewrites each container image reference with the
// component's image and tag overrides.
func (c *Component) patchContainers(doc *yaml.Node) {
	containers := yamlutil.MapGetPath(doc, "spec", "template", "spec", "containers")
	if containers == nil || containers.Kind != yaml.SequenceNode {
		return
	}

	for _, container := range containers.Content {
		imageNode := yamlutil.MapGet(container, "image")
		if imageNode == nil {
			continue
		}

		image, tag := splitImage(imageNode.Value)
		if c.Image != "" {
			ui.Info("Patching image from %s to %s", image, c.Image)
			image = c.Image
		}
		if c.Tag != "" {
			ui.Info("Patching tag from %s to %s", tag, c.Tag)
			tag = c.Tag
		}

		yamlutil.MapSet(container, "image", yamlutil.StringNode(image+":"+tag))
	}
}

// patchReplicas overrides spec.replicas when a replica count is set.
func (c *Component) patchReplicas(doc *yaml.Node) {
	if c.Replicas <= 0 {
		return
	}

	spec := yamlutil.MapGet(doc, "spec")
	if spec == nil {
		return
	}

	yamlutil.MapSet(spec, "replicas", yamlutil.IntNode(c.Replicas))
}

// patchImagePullSecrets injects the pull secret matching the image registry
// host, when one is configured.
func (c *Component) patchImagePullSecrets(doc *yaml.Node) {
	tplSpec := yamlutil.MapGetPath(doc, "spec", "template", "spec")
	if tplSpec == nil {
		return
	}

	image := c.Image
	if image == "" {
		containers := yamlutil.MapGet(tplSpec, "containers")
		if containers == nil || len(containers.Content) == 0 {
			return
		}
		imageNode := yamlutil.MapGet(containers.Content[0], "image")
		if imageNode == nil {
			return
		}
		image, _ = splitImage(imageNode.Value)
	}

	if !strings.Contains(image, "/") {
		return
	}

	host := image[:strings.Index(image, "/")]
	secret, ok := c.ImagePullSecrets[host]
	if !ok {
		return
	}

	ui.Info("Patching imagePullSecrets to %s", secret)

	entry := yamlutil.EmptyMapNode()
	yamlutil.MapSet(entry, "name", yamlutil.StringNode(secret))

	secrets := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{entry}}
	yamlutil.MapSet(tplSpec, "imagePullSecrets", secrets)
}

// splitImage splits an image reference into repository and tag.
// References without a tag get an empty tag.
func splitImage(ref string) (image, tag string) {
	idx := strings.LastIndex(ref, ":")
	// A colon before the last slash belongs to a registry port, not a tag.
	if idx < strings.LastIndex(ref, "/") {
		idx = -1
	}
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

func nodeValue(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	return n.Value
}

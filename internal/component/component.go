// Package component models a deployable component: a directory with an
// optional Dockerfile and a kube/ tree of Kubernetes configs, plus
// per-environment override and merge files.
package component

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/ui"
)

// TemplateKinds are the supported kinds of rendered kube templates.
var TemplateKinds = []string{"merge", "override"}

// Component describes one deployable component and its release-time state.
type Component struct {
	// Root is the project root directory.
	Root string

	// Path is the component path relative to the root, e.g. "service/api".
	Path string

	// Name is the component name derived from the path ("service-api").
	Name string

	// Image overrides the image name baked into the kube configs.
	Image string

	// ImagePrefix is prepended to the component name for the docker
	// repository, e.g. "myproj-".
	ImagePrefix string

	// Tag is the image tag to release.
	Tag string

	// Namespace is the target namespace, patched into every config.
	Namespace string

	// Context is the kubectl context this component releases through.
	Context string

	// Replicas overrides spec.replicas when > 0.
	Replicas int

	// ImagePullSecrets maps registry hosts to pull secret names.
	ImagePullSecrets map[string]string

	// RolloutTimeout bounds rollout status waits; zero means the default.
	RolloutTimeout time.Duration

	// KubeConfigs maps config file names to their current paths. Paths start
	// out inside the component (or an env override) and move to the staging
	// directory once PrepareConfigs runs.
	KubeConfigs map[string]string

	// KubeMerges maps config file names to env-specific overlay merge files.
	KubeMerges map[string]string

	// ObsoleteConfigs maps obsoleted config file names to their paths; these
	// are deleted from the cluster on release.
	ObsoleteConfigs map[string]string

	// Templates maps template kind ("merge", "override") to file name to path.
	Templates map[string]map[string]string

	// StagedDir is set by PrepareConfigs to the staging location.
	StagedDir string
}

// New discovers a component at the given path under root.
func New(root, path string) (*Component, error) {
	path = filepath.ToSlash(filepath.Clean(path))

	c := &Component{
		Root: root,
		Path: path,
		Name: strings.ReplaceAll(path, "/", "-"),
		Tag:  "latest",
	}

	var err error
	if c.KubeConfigs, err = globYAML(c.kubeDir()); err != nil {
		return nil, err
	}
	if c.ObsoleteConfigs, err = globYAML(filepath.Join(c.kubeDir(), "obsolete")); err != nil {
		return nil, err
	}

	c.KubeMerges = map[string]string{}
	c.Templates = map[string]map[string]string{}
	for _, kind := range TemplateKinds {
		templates, err := globYAML(filepath.Join(c.kubeDir(), kind+"-templates"))
		if err != nil {
			return nil, err
		}
		c.Templates[kind] = templates
	}

	return c, nil
}

// String implements fmt.Stringer for log output.
func (c *Component) String() string {
	return fmt.Sprintf("<Component path=%s image=%s tag=%s>", c.Path, c.Image, c.Tag)
}

// Validate checks that the component has kube configs to release.
func (c *Component) Validate() error {
	if len(c.KubeConfigs) == 0 {
		return fmt.Errorf("no kube configs found in %s", c.kubeDir())
	}
	return nil
}

// PatchFromEnv picks up env-specific override and merge files. Overrides
// replace whole config files; merges are combined with the base config by the
// overlay engine during PrepareConfigs.
func (c *Component) PatchFromEnv(settings *envs.Settings) error {
	overrideDir := filepath.Join(settings.OverridesDir(c.Root), filepath.FromSlash(c.Path), "kube")
	overrides, err := globYAML(overrideDir)
	if err != nil {
		return err
	}
	for name, path := range overrides {
		ui.Info("Found kube override %s for %s in %s", name, c.Name, settings.Name)
		c.KubeConfigs[name] = path
	}

	mergeDir := filepath.Join(settings.MergesDir(c.Root), filepath.FromSlash(c.Path), "kube")
	merges, err := globYAML(mergeDir)
	if err != nil {
		return err
	}
	for name, path := range merges {
		ui.Info("Found kube merge %s for %s in %s", name, c.Name, settings.Name)
		c.KubeMerges[name] = path
	}

	return nil
}

// ConfigNames returns the config file names in stable order.
func (c *Component) ConfigNames() []string {
	names := make([]string, 0, len(c.KubeConfigs))
	for name := range c.KubeConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DockerRepository returns the image repository for this component.
func (c *Component) DockerRepository() string {
	return c.ImagePrefix + c.Name
}

// FullDockerName returns the repository:tag image reference.
func (c *Component) FullDockerName() string {
	return c.DockerRepository() + ":" + c.Tag
}

// Dockerfile returns the path to the component's Dockerfile.
func (c *Component) Dockerfile() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.Path), "Dockerfile")
}

// PostReleaseScript returns the path of the optional post-release hook.
func (c *Component) PostReleaseScript() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.Path), "post-release.sh")
}

func (c *Component) kubeDir() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.Path), "kube")
}

// globYAML returns name -> path for the *.yaml files directly in dir.
// A missing directory yields an empty map.
func globYAML(dir string) (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}

	files := make(map[string]string, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files[filepath.Base(match)] = match
	}

	return files, nil
}

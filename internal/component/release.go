package component

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/overlay"
	"github.com/quayops/stevedore/internal/ui"
	"github.com/quayops/stevedore/internal/yamlutil"
)

// Resource identifies one Kubernetes resource declared by the component.
type Resource struct {
	// Name is "Kind/name", the form kubectl rollout expects.
	Name string

	// Kind is the resource kind.
	Kind string

	// Selector is the pod label selector, "key=value", or empty.
	Selector string
}

// Release stages the component's configs and applies them to the cluster,
// deletes obsolete configs, restarts rollout-capable resources, and runs the
// post-release hook if one exists.
func (c *Component) Release(ctx context.Context, kctl *kubectl.Ops, releaseDir string, merger *overlay.Merger, dryRun, noRolloutWait bool) error {
	if err := c.PrepareConfigs(releaseDir, merger); err != nil {
		return err
	}
	if err := c.applyConfigs(ctx, kctl, dryRun); err != nil {
		return err
	}
	if err := c.restartResources(ctx, kctl, dryRun, noRolloutWait); err != nil {
		return err
	}
	return c.postRelease(ctx, kctl, dryRun)
}

func (c *Component) applyConfigs(ctx context.Context, kctl *kubectl.Ops, dryRun bool) error {
	for _, name := range c.ConfigNames() {
		path := c.KubeConfigs[name]
		if dryRun {
			ui.Info("[DRY RUN] Applying %s", path)
			continue
		}
		ui.Info("Applying %s", path)
		if err := kctl.Apply(ctx, path); err != nil {
			return err
		}
	}

	for name, path := range c.ObsoleteConfigs {
		if dryRun {
			ui.Info("[DRY RUN] Deleting %s", name)
			continue
		}
		ui.Info("Deleting %s", name)
		if err := kctl.Delete(ctx, path); err != nil {
			return err
		}
	}

	return nil
}

func (c *Component) restartResources(ctx context.Context, kctl *kubectl.Ops, dryRun, noRolloutWait bool) error {
	resources, err := c.Resources()
	if err != nil {
		return err
	}

	for _, res := range resources {
		if !restartKinds[res.Kind] {
			continue
		}

		if dryRun {
			ui.Info("[DRY RUN] Restarting resource %s", res.Name)
			continue
		}

		ui.Info("Restarting resource %s", res.Name)
		if err := kctl.RolloutRestart(ctx, c.Namespace, res.Name); err != nil {
			return err
		}

		if !noRolloutWait {
			if err := kctl.RolloutStatus(ctx, c.Namespace, res.Name, c.RolloutTimeout); err != nil {
				return err
			}
		}
	}

	return nil
}

// postRelease runs post-release.sh inside one running pod per restartable
// resource, when the component ships such a script.
func (c *Component) postRelease(ctx context.Context, kctl *kubectl.Ops, dryRun bool) error {
	if _, err := os.Stat(c.PostReleaseScript()); err != nil {
		return nil
	}

	resources, err := c.Resources()
	if err != nil {
		return err
	}

	for _, res := range resources {
		if !restartKinds[res.Kind] || res.Selector == "" {
			continue
		}

		if dryRun {
			ui.Info("[DRY RUN] Running post-release.sh for %s", res.Name)
			continue
		}

		if err := c.runPostRelease(ctx, kctl, res); err != nil {
			return err
		}
	}

	return nil
}

func (c *Component) runPostRelease(ctx context.Context, kctl *kubectl.Ops, res Resource) error {
	pods, err := kctl.PodsBySelector(ctx, c.Namespace, res.Selector)
	if err != nil {
		return err
	}

	image := c.FullDockerName()
	var candidates []string
	for _, pod := range pods {
		for _, podImage := range pod.Images {
			if podImage == image {
				candidates = append(candidates, pod.Name)
				break
			}
		}
	}

	if len(candidates) == 0 {
		return fmt.Errorf("no running pods with image %s found for %s", image, res.Name)
	}

	pod := candidates[rand.Intn(len(candidates))]
	ui.Info("Running post-release.sh in %s", pod)

	// The hook is best effort; a failing script does not fail the release.
	if err := kctl.Exec(ctx, c.Namespace, pod, "sh", "post-release.sh"); err != nil {
		ui.Warning("post-release.sh failed in %s: %v", pod, err)
	}
	return nil
}

// Resources parses the component's current kube configs and returns the
// resources they declare.
func (c *Component) Resources() ([]Resource, error) {
	var resources []Resource

	for _, name := range c.ConfigNames() {
		docs, err := loadStream(c.KubeConfigs[name])
		if err != nil {
			return nil, err
		}

		for _, doc := range docs {
			kind := nodeValue(yamlutil.MapGet(doc, "kind"))
			resName := nodeValue(yamlutil.MapGetPath(doc, "metadata", "name"))
			if kind == "" || resName == "" {
				continue
			}

			resources = append(resources, Resource{
				Name:     kind + "/" + resName,
				Kind:     kind,
				Selector: podSelector(doc),
			})
		}
	}

	return resources, nil
}

// podSelector returns the first label under spec.template.metadata.labels as
// a "key=value" selector, or empty when there are no labels.
func podSelector(doc *yaml.Node) string {
	labels := yamlutil.MapGetPath(doc, "spec", "template", "metadata", "labels")
	if labels == nil || labels.Kind != yaml.MappingNode || len(labels.Content) < 2 {
		return ""
	}
	return labels.Content[0].Value + "=" + labels.Content[1].Value
}

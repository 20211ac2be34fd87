package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/component"
	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/lock"
	"github.com/quayops/stevedore/internal/overlay"
	"github.com/quayops/stevedore/internal/secrets"
	"github.com/quayops/stevedore/internal/ui"
)

var (
	releaseEnv           string
	releaseComponents    []string
	releaseImages        []string
	releaseTags          []string
	releaseReplicas      []string
	releaseDryRun        bool
	releaseKeepConfigs   bool
	releaseNoRolloutWait bool
	releaseTimeout       time.Duration
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release components to an environment",
	Long: `Release components to an environment.

Applies the env's sealed secrets, then for each component: patches its kube
configs (namespace, image, replicas, pull secrets), applies per-env overlay
merges, kubectl-applies the result, and waits for rollouts to complete.

Examples:
  stevedore release --env staging
  stevedore release --env prod --component service/api --tag service/api=v42
  stevedore release --env prod --dry-run`,
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVarP(&releaseEnv, "env", "e", "", "Target environment (required)")
	releaseCmd.Flags().StringArrayVarP(&releaseComponents, "component", "c", nil, "Component to release (default: all enabled for the env)")
	releaseCmd.Flags().StringArrayVar(&releaseImages, "image", nil, "Override image, component=image")
	releaseCmd.Flags().StringArrayVar(&releaseTags, "tag", nil, "Override tag, component=tag")
	releaseCmd.Flags().StringArrayVar(&releaseReplicas, "replicas", nil, "Override replicas, component=count")
	releaseCmd.Flags().BoolVarP(&releaseDryRun, "dry-run", "n", false, "Log actions without touching the cluster")
	releaseCmd.Flags().BoolVar(&releaseKeepConfigs, "keep-configs", false, "Keep the staged configs after the release")
	releaseCmd.Flags().BoolVar(&releaseNoRolloutWait, "no-rollout-wait", false, "Do not wait for rollouts to complete")
	releaseCmd.Flags().DurationVar(&releaseTimeout, "rollout-timeout", 0, "Rollout status wait timeout (e.g. 10m)")
	releaseCmd.MarkFlagRequired("env")

	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	images, err := parsePathValues("image", releaseImages)
	if err != nil {
		return err
	}
	tags, err := parsePathValues("tag", releaseTags)
	if err != nil {
		return err
	}
	replicas, err := parsePathValues("replicas", releaseReplicas)
	if err != nil {
		return err
	}
	replicaCounts := make(map[string]int, len(replicas))
	for path, value := range replicas {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid --replicas value %s=%s: %w", path, value, err)
		}
		replicaCounts[path] = n
	}

	settings, err := envs.Load(root, releaseEnv)
	if err != nil {
		return err
	}

	if err := confirmProtected(settings); err != nil {
		return err
	}

	return lock.WithLock(root, "release-"+releaseEnv, func() error {
		return doRelease(cmd, root, settings, images, tags, replicaCounts)
	})
}

func doRelease(cmd *cobra.Command, root string, settings *envs.Settings, images, tags map[string]string, replicas map[string]int) error {
	ctx := cmd.Context()

	relID := releaseID()
	ui.BigLabel("Release %s to %s environment starting", relID, settings.Name)

	paths := releaseComponents
	if len(paths) == 0 {
		paths = settings.Components
	}
	if len(paths) == 0 {
		return fmt.Errorf("no components to release for %s", settings.Name)
	}

	ui.Info("Releasing components:")
	for _, path := range paths {
		image, tag := "(default)", "(default)"
		if v, ok := images[path]; ok {
			image = v
		}
		if v, ok := tags[path]; ok {
			tag = v
		}
		ui.Info(" - %s = %s:%s", path, image, tag)
	}

	kctl := kubectl.New()
	if err := kctl.UseContext(ctx, settings.KubeContext); err != nil {
		return err
	}
	kctl.EnsureNamespace(ctx, settings.KubeNamespace)

	if err := secrets.ApplyEnvSecrets(ctx, kctl, root, settings, releaseDryRun); err != nil {
		return err
	}

	relDir := filepath.Join(root, "temp", relID)
	merger := overlay.NewMerger()

	for _, path := range paths {
		ui.Label("Releasing component %s", path)

		c, err := component.New(root, path)
		if err != nil {
			return err
		}

		c.ImagePrefix = settings.ImagePrefix
		c.Namespace = settings.KubeNamespace
		c.Context = settings.KubeContext
		c.ImagePullSecrets = settings.ImagePullSecrets
		c.RolloutTimeout = releaseTimeout

		if v, ok := images[path]; ok {
			c.Image = v
			delete(images, path)
		}
		if v, ok := tags[path]; ok {
			c.Tag = v
			delete(tags, path)
		}
		if v, ok := replicas[path]; ok {
			c.Replicas = v
			delete(replicas, path)
		} else if v, ok := settings.Replicas[path]; ok {
			c.Replicas = v
		}

		if err := c.PatchFromEnv(settings); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}

		if err := c.Release(ctx, kctl, relDir, merger, releaseDryRun, releaseNoRolloutWait); err != nil {
			return err
		}
	}

	reportUnprocessed("image", images)
	reportUnprocessed("tag", tags)
	for path := range replicas {
		ui.Error("Unprocessed replica configuration: %s", path)
	}

	if !releaseKeepConfigs {
		ui.Info("Removing temporary configurations from %s", relDir)
		if err := os.RemoveAll(relDir); err != nil {
			return err
		}
	} else {
		ui.Info("Keeping staged configurations in %s", relDir)
	}

	ui.Success("Release %s to %s complete", relID, settings.Name)
	return nil
}

func reportUnprocessed(kind string, values map[string]string) {
	for path, value := range values {
		ui.Error("Unprocessed %s configuration: %s=%s", kind, path, value)
	}
}

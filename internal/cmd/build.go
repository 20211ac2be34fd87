package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/component"
	"github.com/quayops/stevedore/internal/docker"
	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/ui"
)

var (
	buildEnv        string
	buildDockerArgs []string
	buildDryRun     bool
)

var buildCmd = &cobra.Command{
	Use:   "build [component]...",
	Short: "Build component docker images",
	Long: `Build docker images for the given components, or for every component
enabled in the env when none are named.

Examples:
  stevedore build --env dev
  stevedore build service/api --env dev --docker-arg GIT_SHA=abc123`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildEnv, "env", "e", "", "Environment whose settings name the components (required)")
	buildCmd.Flags().StringArrayVar(&buildDockerArgs, "docker-arg", nil, "Build arg passed to docker build")
	buildCmd.Flags().BoolVarP(&buildDryRun, "dry-run", "n", false, "Log actions without building")
	buildCmd.MarkFlagRequired("env")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	settings, err := envs.Load(root, buildEnv)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = settings.Components
	}
	if len(paths) == 0 {
		return fmt.Errorf("no components to build for %s", settings.Name)
	}

	if len(buildDockerArgs) > 0 {
		ui.BigLabel("Building images with args: %v", buildDockerArgs)
	} else {
		ui.BigLabel("Building images")
	}

	builder := docker.NewBuilder()
	for _, path := range paths {
		c, err := component.New(root, path)
		if err != nil {
			return err
		}
		c.ImagePrefix = settings.ImagePrefix

		dir := filepath.Join(root, filepath.FromSlash(c.Path))
		if err := builder.Build(cmd.Context(), dir, c.FullDockerName(), buildDockerArgs, buildDryRun); err != nil {
			return err
		}

		if !buildDryRun {
			if err := verifyImage(cmd.Context(), c.FullDockerName()); err != nil {
				return err
			}
		}
	}

	return nil
}

// verifyImage confirms the built tag is visible to the daemon.
func verifyImage(ctx context.Context, ref string) error {
	client, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	found, err := client.ImageExists(ctx, ref)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("image %s not found after build", ref)
	}

	ui.Success("Built %s", ref)
	return nil
}

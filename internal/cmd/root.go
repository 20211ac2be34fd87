// Package cmd provides the CLI commands for stevedore.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/envs"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Release Kubernetes components per environment",
	Long: `stevedore - Kubernetes component release toolkit

Components are directories with a kube/ tree of Kubernetes configs and an
optional Dockerfile. Environments live under envs/<env>/ with a settings.yaml
plus optional overrides, merges, and sealed secrets. Releases patch the
configs (namespace, image, replicas), apply per-env overlay merges, and roll
them out through kubectl.

RELEASE
  release --env E       Release components to an environment
  build <component>...  Build component docker images
  kubeval               Validate all kube configs (with merges applied)
  merge <component>     Print a component's merged configs for an env

ENVIRONMENTS
  envs                  List environments
  templates             Re-render merge/override templates for every env

SECRETS
  secrets seal          Seal *.unsealed.yaml secret files
  secrets unseal        Unseal sealed secrets for editing
  secrets master-key    Fetch the sealed-secrets master key

MAINTENANCE
  doctor                Check required tools and the docker daemon
  update                Self-update stevedore`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("stevedore version {{.Version}}\n")
}

// projectRoot locates the project root and chdirs into it so all relative
// paths in settings and component discovery behave the same from any
// subdirectory.
func projectRoot() (string, error) {
	root, err := envs.FindRoot()
	if err != nil {
		return "", err
	}
	if err := os.Chdir(root); err != nil {
		return "", err
	}
	return root, nil
}

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/component"
	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/fileutil"
	"github.com/quayops/stevedore/internal/overlay"
	"github.com/quayops/stevedore/internal/ui"
)

var (
	mergeEnv    string
	mergeOutDir string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <component>",
	Short: "Print a component's merged kube configs for an env",
	Long: `Apply the env's overlay merge files to a component's kube configs and
print the result, without any release-time patching. Useful for reviewing
what a merge file actually changes.

Examples:
  stevedore merge service/api --env prod
  stevedore merge service/api --env prod -o /tmp/preview`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeEnv, "env", "e", "", "Target environment (required)")
	mergeCmd.Flags().StringVarP(&mergeOutDir, "output", "o", "", "Write merged configs to a directory instead of stdout")
	mergeCmd.MarkFlagRequired("env")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	settings, err := envs.Load(root, mergeEnv)
	if err != nil {
		return err
	}

	c, err := component.New(root, args[0])
	if err != nil {
		return err
	}
	if err := c.PatchFromEnv(settings); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	merger := overlay.NewMerger()

	for _, name := range c.ConfigNames() {
		merged, err := c.MergedConfig(name, merger)
		if err != nil {
			return err
		}

		if mergeOutDir != "" {
			out := filepath.Join(mergeOutDir, name)
			if err := os.MkdirAll(mergeOutDir, 0o755); err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(out, merged, 0o644); err != nil {
				return err
			}
			ui.Info("Wrote %s", out)
			continue
		}

		fmt.Printf("# %s\n", name)
		os.Stdout.Write(merged)
		if !bytes.HasSuffix(merged, []byte("\n")) {
			fmt.Println()
		}
	}

	return nil
}

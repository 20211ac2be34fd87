package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/ui"
)

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		names, err := envs.List(root)
		if err != nil {
			return err
		}

		for _, name := range names {
			settings, err := envs.Load(root, name)
			if err != nil {
				ui.Warning("%s: %v", name, err)
				continue
			}

			line := fmt.Sprintf("%s  context=%s namespace=%s components=%d",
				name, settings.KubeContext, settings.KubeNamespace, len(settings.Components))
			if settings.Protected {
				line += " (protected)"
			}
			fmt.Println(line)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(envsCmd)
}

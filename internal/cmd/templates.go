package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/templates"
	"github.com/quayops/stevedore/internal/ui"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Re-render merge/override templates for every env",
	Long: `Render each component's merge-templates and override-templates into every
environment's merges/ and overrides/ trees. Previously rendered files are
replaced; hand-written files are left alone.`,
	RunE: runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	rendered, err := templates.RenderAll(root)
	if err != nil {
		return err
	}

	ui.Success("Rendered %d files", len(rendered))
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/ui"
	"github.com/quayops/stevedore/internal/update"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"selfupdate"},
	Short:   "Update stevedore to the latest version",
	Long: `Update stevedore to the latest GitHub release for this platform.

Examples:
  stevedore update           # Update to latest version
  stevedore update --check   # Check for updates without installing`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ui.Info("Current version: %s (%s)", version, update.PlatformInfo())

	if updateCheckOnly {
		release, available, err := update.CheckForUpdate(cmd.Context(), version)
		if err != nil {
			return err
		}
		if !available {
			ui.Success("Already up to date")
			return nil
		}
		ui.Info("Version %s available (published %s): %s", release.Version, release.PublishedAt, release.ReleaseURL)
		return nil
	}

	release, err := update.Update(cmd.Context(), version)
	if err != nil {
		return err
	}
	if release == nil {
		ui.Success("Already up to date")
		return nil
	}

	ui.Success("Updated to %s", release.Version)
	if release.Changelog != "" {
		ui.Info("%s", release.Changelog)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/docker"
	"github.com/quayops/stevedore/internal/preflight"
	"github.com/quayops/stevedore/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check required tools and the docker daemon",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ui.Header("Checking tools")

	warnings, errors := preflight.CheckAll()
	for _, w := range warnings {
		ui.Warning("missing (optional) %s", w)
	}
	for _, e := range errors {
		ui.Error("missing %s", e)
	}

	for _, bin := range preflight.AllBinaries() {
		if preflight.IsBinaryAvailable(bin.Name) {
			ui.Success("%s found", bin.Name)
		}
	}

	ui.Header("Checking docker daemon")
	if client, err := docker.NewClient(); err != nil {
		ui.Error("docker client: %v", err)
		errors = append(errors, err.Error())
	} else {
		defer client.Close()
		if err := client.Ping(cmd.Context()); err != nil {
			ui.Error("docker daemon: %v", err)
			errors = append(errors, err.Error())
		} else {
			ui.Success("docker daemon reachable")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%d problem(s) found", len(errors))
	}

	ui.Success("All checks passed")
	return nil
}

package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/component"
	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/overlay"
	"github.com/quayops/stevedore/internal/ui"
)

// kubevalSkipKinds are validated poorly or not at all by kubeval's schemas.
var kubevalSkipKinds = []string{"SealedSecret", "CustomResourceDefinition"}

var kubevalKeepConfigs bool

var kubevalCmd = &cobra.Command{
	Use:   "kubeval",
	Short: "Validate all kube configs with kubeval",
	Long: `Validate every kube yaml in the project with kubeval.

Env merge files are first combined with their base component config so the
validated document is the one a release would apply.`,
	RunE: runKubeval,
}

func init() {
	kubevalCmd.Flags().BoolVar(&kubevalKeepConfigs, "keep-configs", false, "Keep the temporary merged configs")
	rootCmd.AddCommand(kubevalCmd)
}

func runKubeval(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	ui.Label("Checking Kubernetes configs")

	mergeTmp := filepath.Join(root, "temp", "kubeval-"+releaseID())
	if err := os.MkdirAll(mergeTmp, 0o700); err != nil {
		return err
	}

	files, err := collectKubeYAMLs(root)
	if err != nil {
		return err
	}

	merger := overlay.NewMerger()
	resolved := make([]string, 0, len(files))
	for _, file := range files {
		out, err := component.MergedForValidation(root, file, mergeTmp, merger)
		if err != nil {
			return err
		}
		resolved = append(resolved, out)
	}

	kvArgs := append([]string{"--strict", "--skip-kinds", strings.Join(kubevalSkipKinds, ",")}, resolved...)
	runErr := kubectl.ExecRunner{}.RunStream(cmd.Context(), "kubeval", kvArgs...)

	if kubevalKeepConfigs {
		ui.Info("Keeping temporary kube merges in %s", mergeTmp)
	} else {
		ui.Info("Removing temporary kube merges from %s", mergeTmp)
		os.RemoveAll(mergeTmp)
	}

	return runErr
}

// collectKubeYAMLs finds every **/kube/*.yaml in the project, skipping the
// temp tree.
func collectKubeYAMLs(root string) ([]string, error) {
	var files []string
	tmpDir := filepath.Join(root, "temp")

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == tmpDir || filepath.Base(path) == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "kube" && strings.HasSuffix(path, ".yaml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

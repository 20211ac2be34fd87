package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/secrets"
	"github.com/quayops/stevedore/internal/ui"
)

var (
	secretsEnv       string
	sealOnlyChanged  bool
	masterKeyRefresh bool
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage sealed secrets",
	Long: `Manage the env's sealed secrets.

Plaintext secrets live next to their sealed form with the .unsealed.yaml
extension and must be gitignored. Sealing base64-encodes the data values and
encrypts the file with kubeseal against the env's committed secrets.pem.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var secretsSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal the env's *.unsealed.yaml secret files",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, settings, err := secretsSetup()
		if err != nil {
			return err
		}

		secrets.EnsureUnsealedIgnored(root, settings)
		return secrets.SealEnv(cmd.Context(), secrets.NewSealer(), kubectl.New(), root, settings, sealOnlyChanged)
	},
}

var secretsUnsealCmd = &cobra.Command{
	Use:   "unseal",
	Short: "Unseal the env's secrets for editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, settings, err := secretsSetup()
		if err != nil {
			return err
		}

		secrets.EnsureUnsealedIgnored(root, settings)
		return secrets.UnsealEnv(cmd.Context(), secrets.NewSealer(), kubectl.New(), root, settings)
	},
}

var secretsMasterKeyCmd = &cobra.Command{
	Use:   "master-key",
	Short: "Fetch and cache the sealed-secrets master key",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, settings, err := secretsSetup()
		if err != nil {
			return err
		}

		path, err := secrets.FetchMasterKey(cmd.Context(), kubectl.New(), root, settings, masterKeyRefresh)
		if err != nil {
			return err
		}

		ui.Success("Master key for %s at %s", settings.Name, path)
		return nil
	},
}

func init() {
	secretsCmd.PersistentFlags().StringVarP(&secretsEnv, "env", "e", "", "Target environment (required)")
	secretsCmd.MarkPersistentFlagRequired("env")

	secretsSealCmd.Flags().BoolVar(&sealOnlyChanged, "only-changed", false, "Reseal only files git reports as changed")
	secretsMasterKeyCmd.Flags().BoolVar(&masterKeyRefresh, "refresh", false, "Fetch a fresh key even when one is cached")

	secretsCmd.AddCommand(secretsSealCmd)
	secretsCmd.AddCommand(secretsUnsealCmd)
	secretsCmd.AddCommand(secretsMasterKeyCmd)
	rootCmd.AddCommand(secretsCmd)
}

func secretsSetup() (string, *envs.Settings, error) {
	root, err := projectRoot()
	if err != nil {
		return "", nil, err
	}

	settings, err := envs.Load(root, secretsEnv)
	if err != nil {
		return "", nil, err
	}

	return root, settings, nil
}

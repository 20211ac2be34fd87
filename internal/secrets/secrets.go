// Package secrets implements the sealed-secrets workflow: Kubernetes Secret
// files are kept unsealed (plaintext, base64-decoded) next to their sealed
// form, sealed with kubeseal before commit, and unsealed again for editing
// with the cluster's master key.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/decrypt"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/ui"
)

// UnsealedExtension marks the plaintext form of a sealed secret file.
// db.yaml (sealed, committed) pairs with db.unsealed.yaml (plaintext,
// gitignored).
const UnsealedExtension = ".unsealed.yaml"

// SopsExtension marks env secrets encrypted with sops instead of kubeseal.
const SopsExtension = ".sops.yaml"

// sealedSecretsKeyLabel selects the sealed-secrets controller's private key.
// https://github.com/bitnami-labs/sealed-secrets#how-can-i-do-a-backup-of-my-sealedsecrets
const sealedSecretsKeyLabel = "sealedsecrets.bitnami.com/sealed-secrets-key"

// MasterKeyPath is where the fetched cluster master key is cached.
// The .secrets directory must be gitignored.
func MasterKeyPath(root, env string) string {
	return filepath.Join(root, envs.EnvsDir, env, ".secrets", "master.key")
}

// CertPath is the committed public certificate used for sealing, so sealing
// works without cluster access.
func CertPath(root, env string) string {
	return filepath.Join(root, envs.EnvsDir, env, "secrets.pem")
}

// Sealer runs kubeseal operations.
type Sealer struct {
	runner kubectl.Runner
}

// NewSealer creates a Sealer backed by the kubeseal binary.
func NewSealer() *Sealer {
	return &Sealer{runner: kubectl.ExecRunner{}}
}

// NewSealerWithRunner creates a Sealer with a custom runner, for tests.
func NewSealerWithRunner(r kubectl.Runner) *Sealer {
	return &Sealer{runner: r}
}

// Seal encrypts a Secret manifest into a SealedSecret manifest using the
// public certificate.
func (s *Sealer) Seal(ctx context.Context, plaintext []byte, cert string) ([]byte, error) {
	out, err := s.runner.Run(ctx, plaintext, "kubeseal", "-o", "yaml", "--cert", cert)
	if err != nil {
		return nil, fmt.Errorf("kubeseal: %w", err)
	}
	return out, nil
}

// Unseal decrypts a SealedSecret manifest back into a Secret manifest using
// the cluster master key. The cert is passed so kubeseal runs without a
// kubeconfig.
func (s *Sealer) Unseal(ctx context.Context, sealed []byte, masterKey, cert string) ([]byte, error) {
	out, err := s.runner.Run(ctx, sealed,
		"kubeseal", "--recovery-unseal", "--recovery-private-key", masterKey, "-o", "yaml", "--cert", cert)
	if err != nil {
		return nil, fmt.Errorf("kubeseal recovery-unseal: %w", err)
	}
	return out, nil
}

// FetchMasterKey returns the path to the env's cached master key, fetching it
// from the cluster when missing or when refresh is set.
func FetchMasterKey(ctx context.Context, kctl *kubectl.Ops, root string, settings *envs.Settings, refresh bool) (string, error) {
	path := MasterKeyPath(root, settings.Name)
	if !refresh {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if err := kctl.UseContext(ctx, settings.KubeContext); err != nil {
		return "", err
	}

	ui.Label("Getting master key for %s", settings.Name)

	content, err := kctl.GetSecretsByLabel(ctx, "kube-system", sealedSecretsKeyLabel)
	if err != nil {
		return "", fmt.Errorf("fetch master key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	ui.Info("Saving master key to %s", path)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("save master key: %w", err)
	}

	return path, nil
}

// DecryptSops decrypts a sops-encrypted YAML file in process.
func DecryptSops(path string) ([]byte, error) {
	out, err := decrypt.File(path, "yaml")
	if err != nil {
		return nil, fmt.Errorf("sops decrypt %s: %w", path, err)
	}
	return out, nil
}

// SealedFiles lists the sealed secret files of an env, skipping unsealed
// plaintext files. Sops files are included; IsSops distinguishes them.
func SealedFiles(root string, settings *envs.Settings) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(settings.SecretsDir(root), "*.yaml"))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range matches {
		if strings.HasSuffix(m, UnsealedExtension) {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// UnsealedFiles lists the plaintext secret files of an env.
func UnsealedFiles(root string, settings *envs.Settings) ([]string, error) {
	return filepath.Glob(filepath.Join(settings.SecretsDir(root), "*"+UnsealedExtension))
}

// ObsoleteFiles lists secrets that should be deleted from the cluster.
func ObsoleteFiles(root string, settings *envs.Settings) ([]string, error) {
	return filepath.Glob(filepath.Join(settings.SecretsDir(root), "obsolete", "*.yaml"))
}

// IsSops reports whether a secret file is sops-encrypted.
func IsSops(path string) bool {
	return strings.HasSuffix(path, SopsExtension)
}

// SealedName maps an unsealed file name to its sealed counterpart.
func SealedName(unsealed string) string {
	return strings.TrimSuffix(unsealed, UnsealedExtension) + ".yaml"
}

// UnsealedName maps a sealed file name to its plaintext counterpart.
func UnsealedName(sealed string) string {
	return strings.TrimSuffix(sealed, ".yaml") + UnsealedExtension
}

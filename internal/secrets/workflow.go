package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/fileutil"
	"github.com/quayops/stevedore/internal/gitutil"
	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/ui"
)

// SealEnv base64-encodes and seals every *.unsealed.yaml file of the env.
//
// With onlyChanged, plaintext files git reports as unmodified are skipped
// entirely, and resealed files keep the previous ciphertext for entries whose
// plaintext did not change.
func SealEnv(ctx context.Context, sealer *Sealer, kctl *kubectl.Ops, root string, settings *envs.Settings, onlyChanged bool) error {
	files, err := UnsealedFiles(root, settings)
	if err != nil {
		return err
	}
	sort.Strings(files)

	ui.Label("Sealing secrets for %s", settings.Name)

	var changed map[string]bool
	if onlyChanged {
		if changed, err = gitutil.ChangedFiles(root); err != nil {
			return err
		}
	}

	cert := CertPath(root, settings.Name)

	for _, input := range files {
		output := SealedName(input)

		if onlyChanged && !gitutil.IsChanged(changed, root, input) {
			ui.Info("Skipping unchanged %s", input)
			continue
		}

		ui.Info("Sealing %s as %s", input, output)

		plain, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		encoded, err := EncodeData(plain)
		if err != nil {
			return fmt.Errorf("encode %s: %w", input, err)
		}

		sealed, err := sealer.Seal(ctx, encoded, cert)
		if err != nil {
			return err
		}

		if onlyChanged {
			if sealed, err = revertAgainstExisting(ctx, sealer, kctl, root, settings, output, encoded, sealed, cert); err != nil {
				return err
			}
		}

		if err := fileutil.WriteFileAtomic(output, sealed, 0o644); err != nil {
			return err
		}
	}

	return nil
}

// revertAgainstExisting unseals the previously committed output file and
// reverts ciphertext for unchanged entries. A missing output file means a
// first seal, nothing to revert.
func revertAgainstExisting(ctx context.Context, sealer *Sealer, kctl *kubectl.Ops, root string, settings *envs.Settings, output string, encoded, sealed []byte, cert string) ([]byte, error) {
	origSealed, err := os.ReadFile(output)
	if err != nil {
		if os.IsNotExist(err) {
			return sealed, nil
		}
		return nil, err
	}

	masterKey, err := FetchMasterKey(ctx, kctl, root, settings, false)
	if err != nil {
		return nil, err
	}

	origPlain, err := sealer.Unseal(ctx, origSealed, masterKey, cert)
	if err != nil {
		return nil, err
	}

	return RevertUnchanged(encoded, sealed, origPlain, origSealed)
}

// UnsealEnv decrypts every sealed secret of the env to its *.unsealed.yaml
// form with data values base64-decoded for editing. Sops files are left
// alone; they are edited with sops directly.
func UnsealEnv(ctx context.Context, sealer *Sealer, kctl *kubectl.Ops, root string, settings *envs.Settings) error {
	files, err := SealedFiles(root, settings)
	if err != nil {
		return err
	}
	sort.Strings(files)

	masterKey, err := FetchMasterKey(ctx, kctl, root, settings, false)
	if err != nil {
		return err
	}
	cert := CertPath(root, settings.Name)

	ui.Label("Unsealing secrets for %s", settings.Name)

	for _, input := range files {
		if IsSops(input) {
			continue
		}

		output := UnsealedName(input)
		ui.Info("Unsealing %s to %s", input, output)

		sealed, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		plain, err := sealer.Unseal(ctx, sealed, masterKey, cert)
		if err != nil {
			return err
		}

		decoded, err := DecodeData(plain)
		if err != nil {
			return fmt.Errorf("decode %s: %w", input, err)
		}

		if err := fileutil.WriteFileAtomic(output, decoded, 0o600); err != nil {
			return err
		}
	}

	return nil
}

// ApplyEnvSecrets applies the env's sealed secrets to the cluster and deletes
// obsoleted ones. Sops-encrypted files are decrypted in process and applied
// via stdin so plaintext never touches disk.
func ApplyEnvSecrets(ctx context.Context, kctl *kubectl.Ops, root string, settings *envs.Settings, dryRun bool) error {
	files, err := SealedFiles(root, settings)
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		if dryRun {
			ui.Info("[DRY RUN] Applying %s", file)
			continue
		}
		ui.Info("Applying %s", file)

		if IsSops(file) {
			plain, err := DecryptSops(file)
			if err != nil {
				return err
			}
			if err := kctl.ApplyStdin(ctx, plain); err != nil {
				return err
			}
			continue
		}

		if err := kctl.Apply(ctx, file); err != nil {
			return err
		}
	}

	obsolete, err := ObsoleteFiles(root, settings)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(obsolete)))

	for _, file := range obsolete {
		if dryRun {
			ui.Info("[DRY RUN] Deleting %s", file)
			continue
		}
		ui.Info("Deleting %s", file)
		if err := kctl.Delete(ctx, file); err != nil {
			return err
		}
	}

	return nil
}

// EnsureUnsealedIgnored warns when the env's secrets directory has no
// .gitignore covering unsealed files.
func EnsureUnsealedIgnored(root string, settings *envs.Settings) {
	dir := settings.SecretsDir(root)
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); err != nil {
		ui.Warning("%s has no .gitignore; unsealed secrets may get committed", dir)
	}
}

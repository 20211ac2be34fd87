// Package preflight validates that the external tools releases depend on are
// installed.
package preflight

import (
	"os/exec"
)

// BinaryCheck names a binary dependency and how to install it.
type BinaryCheck struct {
	Name        string
	Required    bool // false = warning only
	InstallHint string
}

// requiredBinaries must be present for releases to work at all.
var requiredBinaries = []BinaryCheck{
	{
		Name:        "kubectl",
		Required:    true,
		InstallHint: "Install kubectl: https://kubernetes.io/docs/tasks/tools/",
	},
	{
		Name:        "docker",
		Required:    true,
		InstallHint: "Install Docker: https://docs.docker.com/get-docker/",
	},
}

// optionalBinaries are only needed for specific commands.
var optionalBinaries = []BinaryCheck{
	{
		Name:        "kubeseal",
		Required:    false,
		InstallHint: "Install kubeseal: https://github.com/bitnami-labs/sealed-secrets",
	},
	{
		Name:        "kubeval",
		Required:    false,
		InstallHint: "Install kubeval: https://github.com/instrumenta/kubeval",
	},
	{
		Name:        "git",
		Required:    false,
		InstallHint: "Install git: https://git-scm.com/downloads",
	},
}

// CheckRequiredBinaries returns the missing required binaries.
func CheckRequiredBinaries() []BinaryCheck {
	var missing []BinaryCheck
	for _, bin := range requiredBinaries {
		if _, err := exec.LookPath(bin.Name); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// CheckOptionalBinaries returns the missing optional binaries.
func CheckOptionalBinaries() []BinaryCheck {
	var missing []BinaryCheck
	for _, bin := range optionalBinaries {
		if _, err := exec.LookPath(bin.Name); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// CheckAll performs all binary checks. Errors are missing required binaries,
// warnings are missing optional binaries.
func CheckAll() (warnings []string, errors []string) {
	for _, bin := range CheckRequiredBinaries() {
		errors = append(errors, bin.Name+": "+bin.InstallHint)
	}
	for _, bin := range CheckOptionalBinaries() {
		warnings = append(warnings, bin.Name+": "+bin.InstallHint)
	}
	return warnings, errors
}

// IsBinaryAvailable checks whether a specific binary is in PATH.
func IsBinaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// AllBinaries returns every configured binary check.
func AllBinaries() []BinaryCheck {
	return append(append([]BinaryCheck{}, requiredBinaries...), optionalBinaries...)
}

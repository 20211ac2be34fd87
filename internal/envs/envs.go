// Package envs handles project discovery and per-environment settings.
//
// A stevedore project keeps one directory per target environment under
// envs/, each with a settings.yaml and optional overrides, merges, and
// secrets trees:
//
//	envs/<env>/settings.yaml
//	envs/<env>/overrides/<component>/kube/*.yaml
//	envs/<env>/merges/<component>/kube/*.yaml
//	envs/<env>/secrets/*.yaml
package envs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvsDir is the directory holding one subdirectory per environment.
const EnvsDir = "envs"

// SettingsFile is the per-environment settings file name.
const SettingsFile = "settings.yaml"

// Settings holds the configuration of one target environment.
type Settings struct {
	// Name is the environment name (the directory under envs/).
	Name string `yaml:"-"`

	// KubeContext is the kubectl context releases switch to.
	KubeContext string `yaml:"kubeContext"`

	// KubeNamespace is the namespace resources are released into.
	KubeNamespace string `yaml:"kubeNamespace"`

	// Components lists the component paths enabled for this environment.
	Components []string `yaml:"components"`

	// ImagePrefix is prepended to component names for docker repositories,
	// e.g. "myproj-".
	ImagePrefix string `yaml:"imagePrefix,omitempty"`

	// Replicas overrides replica counts per component path.
	Replicas map[string]int `yaml:"replicas,omitempty"`

	// ImagePullSecrets maps registry hosts to pull secret names.
	ImagePullSecrets map[string]string `yaml:"imagePullSecrets,omitempty"`

	// TemplateVariables feeds merge/override template rendering.
	TemplateVariables map[string]any `yaml:"templateVariables,omitempty"`

	// Protected environments require interactive confirmation before release.
	Protected bool `yaml:"protected,omitempty"`
}

// FindRoot searches upward from the current directory for the project root,
// identified by the presence of an envs/ directory with a settings file in at
// least one environment.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if hasEnvs(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("project root not found (no envs/ directory with settings.yaml)")
}

func hasEnvs(dir string) bool {
	entries, err := os.ReadDir(filepath.Join(dir, EnvsDir))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		settings := filepath.Join(dir, EnvsDir, e.Name(), SettingsFile)
		if _, err := os.Stat(settings); err == nil {
			return true
		}
	}
	return false
}

// List returns the environment names under root/envs, sorted.
// Directories starting with "." or "_" are ignored.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, EnvsDir))
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		names = append(names, e.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Load reads and validates the settings for one environment.
func Load(root, env string) (*Settings, error) {
	path := filepath.Join(root, EnvsDir, env, SettingsFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", env, err)
	}

	settings := &Settings{Name: env}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if settings.KubeContext == "" {
		return nil, fmt.Errorf("%s: kubeContext is required", path)
	}
	if settings.KubeNamespace == "" {
		return nil, fmt.Errorf("%s: kubeNamespace is required", path)
	}

	return settings, nil
}

// Dir returns the environment directory under root.
func (s *Settings) Dir(root string) string {
	return filepath.Join(root, EnvsDir, s.Name)
}

// SecretsDir returns the sealed secrets directory for the environment.
func (s *Settings) SecretsDir(root string) string {
	return filepath.Join(s.Dir(root), "secrets")
}

// OverridesDir returns the directory of full-file component overrides.
func (s *Settings) OverridesDir(root string) string {
	return filepath.Join(s.Dir(root), "overrides")
}

// MergesDir returns the directory of component overlay merge files.
func (s *Settings) MergesDir(root string) string {
	return filepath.Join(s.Dir(root), "merges")
}

package component

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/fileutil"
	"github.com/quayops/stevedore/internal/overlay"
	"github.com/quayops/stevedore/internal/ui"
	"github.com/quayops/stevedore/internal/yamlutil"
)

// PrepareConfigs stages the component's kube configs into the release
// directory: each config is parsed, patched, combined with its env merge file
// through the overlay engine, and written out as a multi-document YAML file.
// KubeConfigs is updated to point at the staged files.
func (c *Component) PrepareConfigs(releaseDir string, merger *overlay.Merger) error {
	dst := filepath.Join(releaseDir, filepath.FromSlash(c.Path))
	kubeDst := filepath.Join(dst, "kube")
	if err := os.MkdirAll(kubeDst, 0o700); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	ui.Info("Writing configs to %s", dst)

	if _, err := os.Stat(c.Dockerfile()); err == nil {
		ui.Info("Copying Dockerfile")
		if err := fileutil.CopyFile(c.Dockerfile(), filepath.Join(dst, "Dockerfile")); err != nil {
			return fmt.Errorf("copy Dockerfile: %w", err)
		}
	}

	for _, name := range c.ConfigNames() {
		src := c.KubeConfigs[name] // incl. env override
		ui.Info("Patching %s", src)

		merged, err := c.mergeConfig(name, src, merger)
		if err != nil {
			return err
		}

		dstPath := filepath.Join(kubeDst, name)
		if err := fileutil.WriteFileAtomic(dstPath, merged, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", dstPath, err)
		}

		c.KubeConfigs[name] = dstPath
	}

	c.StagedDir = dst
	return nil
}

// MergedConfig applies the env merge file to one config without any
// release-time patching. This is what the merge preview shows.
func (c *Component) MergedConfig(name string, merger *overlay.Merger) ([]byte, error) {
	src, ok := c.KubeConfigs[name]
	if !ok {
		return nil, fmt.Errorf("unknown config %s", name)
	}

	docs, err := loadStream(src)
	if err != nil {
		return nil, err
	}
	return c.applyMerge(name, src, docs, merger)
}

// mergeConfig loads one config file, patches it, and applies the env merge
// file for it, if any.
func (c *Component) mergeConfig(name, src string, merger *overlay.Merger) ([]byte, error) {
	docs, err := loadStream(src)
	if err != nil {
		return nil, err
	}

	c.patchDocs(docs)
	return c.applyMerge(name, src, docs, merger)
}

func (c *Component) applyMerge(name, src string, docs []*yaml.Node, merger *overlay.Merger) ([]byte, error) {
	if mergePath, ok := c.KubeMerges[name]; ok {
		overrides, err := loadStream(mergePath)
		if err != nil {
			return nil, err
		}

		res, err := merger.MergeStream(docs, overrides)
		if err != nil {
			return nil, fmt.Errorf("merge %s into %s: %w", mergePath, src, err)
		}
		for _, w := range res.Warnings {
			ui.Warning("%s: %s", mergePath, w)
		}
		docs = res.Docs
	}

	var buf bytes.Buffer
	if err := yamlutil.EncodeStream(&buf, docs); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// MergedForValidation resolves a kube yaml path for offline validation. Merge
// files under envs/<env>/merges are combined with their base component config
// and written to tmpDir; all other paths are returned unchanged.
func MergedForValidation(root, path, tmpDir string, merger *overlay.Merger) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	// envs/<env>/merges/<component...>/kube/<file>
	if len(parts) < 6 || parts[0] != "envs" || parts[2] != "merges" {
		return path, nil
	}

	componentPath := strings.Join(parts[3:len(parts)-2], "/")
	name := parts[len(parts)-1]
	basePath := filepath.Join(root, filepath.FromSlash(componentPath), "kube", name)

	base, err := loadStream(basePath)
	if err != nil {
		return "", fmt.Errorf("load base for merge %s: %w", path, err)
	}
	overrides, err := loadStream(path)
	if err != nil {
		return "", err
	}

	res, err := merger.MergeStream(base, overrides)
	if err != nil {
		return "", fmt.Errorf("merge %s: %w", path, err)
	}
	for _, w := range res.Warnings {
		ui.Warning("%s: %s", path, w)
	}

	var buf bytes.Buffer
	if err := yamlutil.EncodeStream(&buf, res.Docs); err != nil {
		return "", err
	}

	out := filepath.Join(tmpDir, parts[1]+"-"+strings.ReplaceAll(componentPath, "/", "-")+"-"+name)
	if err := fileutil.WriteFileAtomic(out, buf.Bytes(), 0o600); err != nil {
		return "", err
	}
	return out, nil
}

// loadStream reads and parses a multi-document YAML file.
func loadStream(path string) ([]*yaml.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := yamlutil.DecodeStream(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, nil
}

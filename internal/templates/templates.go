// Package templates renders per-component merge and override templates into
// the env trees. Rendered files carry a header marker so the next render can
// clean them up while leaving hand-written files alone.
package templates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/quayops/stevedore/internal/component"
	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/fileutil"
	"github.com/quayops/stevedore/internal/ui"
)

const headerFormat = `#
# THIS FILE HAS BEEN AUTOMATICALLY GENERATED FROM %s
# DO NOT MODIFY THIS FILE BY HAND, INSTEAD RUN: stevedore templates
#
`

// Header returns the generated-file marker for a template path.
func Header(templatePath string) string {
	return fmt.Sprintf(headerFormat, filepath.ToSlash(templatePath))
}

// RenderAll re-renders the templates of every component of every env.
// Components are taken from each env's settings plus any component that
// already has merge or override files on disk.
func RenderAll(root string) ([]string, error) {
	names, err := envs.List(root)
	if err != nil {
		return nil, err
	}

	var rendered []string
	for _, name := range names {
		settings, err := envs.Load(root, name)
		if err != nil {
			return nil, err
		}

		paths, err := componentPaths(root, settings)
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			c, err := component.New(root, path)
			if err != nil {
				return nil, err
			}

			files, err := RenderComponent(root, c, settings)
			if err != nil {
				return nil, err
			}
			rendered = append(rendered, files...)
		}
	}

	return rendered, nil
}

// componentPaths merges the env's enabled components with components that
// have merge or override trees on disk, deduplicated and sorted.
func componentPaths(root string, settings *envs.Settings) ([]string, error) {
	seen := map[string]bool{}
	for _, path := range settings.Components {
		seen[path] = true
	}

	for _, dir := range []string{settings.MergesDir(root), settings.OverridesDir(root)} {
		matches, err := filepath.Glob(filepath.Join(dir, "*", "kube"))
		if err != nil {
			return nil, err
		}
		// Components can nest one level, e.g. service/api.
		nested, err := filepath.Glob(filepath.Join(dir, "*", "*", "kube"))
		if err != nil {
			return nil, err
		}

		for _, match := range append(matches, nested...) {
			rel, err := filepath.Rel(dir, filepath.Dir(match))
			if err != nil {
				continue
			}
			seen[filepath.ToSlash(rel)] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// RenderComponent renders all template kinds of one component for one env.
func RenderComponent(root string, c *component.Component, settings *envs.Settings) ([]string, error) {
	var rendered []string
	for _, kind := range component.TemplateKinds {
		files, err := renderKind(root, c, kind, settings)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, files...)
	}
	return rendered, nil
}

func renderKind(root string, c *component.Component, kind string, settings *envs.Settings) ([]string, error) {
	outputDir := filepath.Join(settings.Dir(root), kind+"s", filepath.FromSlash(c.Path), "kube")

	ui.Info("Cleaning up old %s files for %s in %s", kind, c.Name, settings.Name)
	if err := cleanupRendered(root, outputDir); err != nil {
		return nil, err
	}

	templates := c.Templates[kind]
	if len(templates) == 0 {
		return nil, nil
	}

	ui.Info("Creating %s files for %s in %s", kind, c.Name, settings.Name)
	if err := os.MkdirAll(outputDir, 0o700); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var rendered []string
	for _, name := range names {
		templatePath := templates[name]

		out, err := render(root, templatePath, settings)
		if err != nil {
			return nil, fmt.Errorf("render %s for %s: %w", templatePath, settings.Name, err)
		}

		outputFile := filepath.Join(outputDir, name)
		if err := fileutil.WriteFileAtomic(outputFile, out, 0o644); err != nil {
			return nil, err
		}
		rendered = append(rendered, outputFile)
	}

	return rendered, nil
}

// cleanupRendered deletes previously rendered files in dir, identified by the
// generated-file header. Hand-written files are kept.
func cleanupRendered(root, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}

	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(data), "#\n# THIS FILE HAS BEEN AUTOMATICALLY GENERATED FROM ") {
			continue
		}
		if err := os.Remove(match); err != nil {
			return err
		}
	}

	return nil
}

// render executes one template file with the env's template variables.
// Unknown variables fail the render.
func render(root, templatePath string, settings *envs.Settings) ([]byte, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, err
	}

	tpl, err := template.New(filepath.Base(templatePath)).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, templatePath)
	if err != nil {
		rel = templatePath
	}

	var buf bytes.Buffer
	buf.WriteString(Header(rel))
	if err := tpl.Execute(&buf, settings.TemplateVariables); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

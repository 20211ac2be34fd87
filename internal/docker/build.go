package docker

import (
	"context"

	"github.com/quayops/stevedore/internal/kubectl"
	"github.com/quayops/stevedore/internal/ui"
)

// Builder builds component images through the docker CLI so BuildKit,
// credential helpers, and the user's builder configuration all apply.
type Builder struct {
	runner kubectl.Runner
}

// NewBuilder creates a Builder backed by the docker binary.
func NewBuilder() *Builder {
	return &Builder{runner: kubectl.ExecRunner{}}
}

// NewBuilderWithRunner creates a Builder with a custom runner, for tests.
func NewBuilderWithRunner(r kubectl.Runner) *Builder {
	return &Builder{runner: r}
}

// Build runs docker build in dir, tagging the result with image. Each entry
// of buildArgs is passed through as a --build-arg.
func (b *Builder) Build(ctx context.Context, dir, image string, buildArgs []string, dryRun bool) error {
	args := []string{"build", dir, "-t", image}
	for _, arg := range buildArgs {
		args = append(args, "--build-arg", arg)
	}

	if dryRun {
		ui.Info("[DRY RUN] Building %s", image)
		return nil
	}

	ui.Info("Building %s", image)
	return b.runner.RunStream(ctx, "docker", args...)
}

// Package kubectl wraps the kubectl CLI operations used during releases.
package kubectl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/quayops/stevedore/internal/ui"
)

// DefaultRolloutTimeout is how long to wait for a rollout to complete before
// failing the release.
const DefaultRolloutTimeout = 5 * time.Minute

// Runner abstracts command execution.
// This interface enables mocking for unit tests without a cluster.
type Runner interface {
	// Run executes the command and returns its stdout.
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

	// RunStream executes the command with output streamed to the console.
	RunStream(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands via os/exec, logging each invocation with its
// duration.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	logCommand(name, args)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		ui.Error("failed to run %s", name)
		if stderr.Len() > 0 {
			ui.Red.Println(stderr.String())
		}
		return nil, fmt.Errorf("%s %v: %w: %s", name, args, err, stderr.String())
	}

	ui.Info("  ✔ ... done in %.3fs", time.Since(start).Seconds())
	return stdout.Bytes(), nil
}

// RunStream implements Runner.
func (ExecRunner) RunStream(ctx context.Context, name string, args ...string) error {
	logCommand(name, args)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}

	ui.Info("  ✔ ... done in %.3fs", time.Since(start).Seconds())
	return nil
}

func logCommand(name string, args []string) {
	line := name
	for _, a := range args {
		line += " " + a
	}
	ui.Info("  %s", line)
}

// Ops provides kubectl operations.
type Ops struct {
	runner Runner
}

// New creates kubectl Ops backed by the real kubectl binary.
func New() *Ops {
	return &Ops{runner: ExecRunner{}}
}

// NewWithRunner creates kubectl Ops with a custom runner, primarily for tests.
func NewWithRunner(r Runner) *Ops {
	return &Ops{runner: r}
}

// UseContext switches kubectl to the given context.
func (o *Ops) UseContext(ctx context.Context, kubeContext string) error {
	_, err := o.runner.Run(ctx, nil, "kubectl", "config", "use-context", kubeContext)
	return err
}

// EnsureNamespace creates the namespace if it does not exist.
// An already-existing namespace is not an error.
func (o *Ops) EnsureNamespace(ctx context.Context, namespace string) {
	// kubectl create fails when the namespace exists; that is fine.
	_, _ = o.runner.Run(ctx, nil, "kubectl", "create", "namespace", namespace)
}

// Apply applies a config file to the cluster.
func (o *Ops) Apply(ctx context.Context, file string) error {
	_, err := o.runner.Run(ctx, nil, "kubectl", "apply", "-f", file)
	return err
}

// ApplyStdin applies config bytes to the cluster via stdin.
func (o *Ops) ApplyStdin(ctx context.Context, data []byte) error {
	_, err := o.runner.Run(ctx, data, "kubectl", "apply", "-f", "-")
	return err
}

// Delete deletes the resources declared in a config file.
func (o *Ops) Delete(ctx context.Context, file string) error {
	_, err := o.runner.Run(ctx, nil, "kubectl", "delete", "-f", file)
	return err
}

// RolloutRestart restarts the given resource (e.g. "Deployment/api").
func (o *Ops) RolloutRestart(ctx context.Context, namespace, resource string) error {
	_, err := o.runner.Run(ctx, nil, "kubectl", "-n", namespace, "rollout", "restart", resource)
	return err
}

// RolloutStatus waits until the rollout of the given resource completes.
func (o *Ops) RolloutStatus(ctx context.Context, namespace, resource string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultRolloutTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := o.runner.Run(ctx, nil, "kubectl", "-n", namespace, "rollout", "status", resource)
	return err
}

// Pod is the subset of pod fields releases care about.
type Pod struct {
	Name   string
	Images []string
}

// podList mirrors the kubectl -o json output shape.
type podList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Spec struct {
			Containers []struct {
				Image string `json:"image"`
			} `json:"containers"`
		} `json:"spec"`
	} `json:"items"`
}

// PodsBySelector returns the pods matching a label selector.
func (o *Ops) PodsBySelector(ctx context.Context, namespace, selector string) ([]Pod, error) {
	out, err := o.runner.Run(ctx, nil, "kubectl", "-n", namespace, "get", "pods", "-l", selector, "-o", "json")
	if err != nil {
		return nil, err
	}

	var list podList
	if err := json.Unmarshal(out, &list); err != nil {
		return nil, fmt.Errorf("parse pod list: %w", err)
	}

	pods := make([]Pod, 0, len(list.Items))
	for _, item := range list.Items {
		pod := Pod{Name: item.Metadata.Name}
		for _, c := range item.Spec.Containers {
			pod.Images = append(pod.Images, c.Image)
		}
		pods = append(pods, pod)
	}

	return pods, nil
}

// Exec runs a command inside a pod.
func (o *Ops) Exec(ctx context.Context, namespace, pod string, command ...string) error {
	args := append([]string{"-n", namespace, "exec", pod, "--"}, command...)
	_, err := o.runner.Run(ctx, nil, "kubectl", args...)
	return err
}

// GetSecretsByLabel fetches secrets matching a label selector as YAML.
func (o *Ops) GetSecretsByLabel(ctx context.Context, namespace, selector string) ([]byte, error) {
	return o.runner.Run(ctx, nil, "kubectl", "get", "secret", "-n", namespace, "-l", selector, "-o", "yaml")
}

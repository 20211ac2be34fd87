package kubectl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner captures invocations instead of executing them.
type recordingRunner struct {
	calls  [][]string
	stdins [][]byte
	out    []byte
	err    error
}

func (r *recordingRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	r.stdins = append(r.stdins, stdin)
	return r.out, r.err
}

func (r *recordingRunner) RunStream(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	r.stdins = append(r.stdins, nil)
	return r.err
}

func TestUseContext(t *testing.T) {
	r := &recordingRunner{}
	ops := NewWithRunner(r)

	require.NoError(t, ops.UseContext(context.Background(), "docker-desktop"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"kubectl", "config", "use-context", "docker-desktop"}, r.calls[0])
}

func TestEnsureNamespace_IgnoresExisting(t *testing.T) {
	r := &recordingRunner{err: errors.New("AlreadyExists")}
	ops := NewWithRunner(r)

	// Must not panic or surface the error.
	ops.EnsureNamespace(context.Background(), "myproj")
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"kubectl", "create", "namespace", "myproj"}, r.calls[0])
}

func TestApplyAndDelete(t *testing.T) {
	r := &recordingRunner{}
	ops := NewWithRunner(r)

	require.NoError(t, ops.Apply(context.Background(), "deployment.yaml"))
	require.NoError(t, ops.Delete(context.Background(), "obsolete.yaml"))

	assert.Equal(t, []string{"kubectl", "apply", "-f", "deployment.yaml"}, r.calls[0])
	assert.Equal(t, []string{"kubectl", "delete", "-f", "obsolete.yaml"}, r.calls[1])
}

func TestApplyStdin(t *testing.T) {
	r := &recordingRunner{}
	ops := NewWithRunner(r)

	require.NoError(t, ops.ApplyStdin(context.Background(), []byte("kind: Secret\n")))
	assert.Equal(t, []string{"kubectl", "apply", "-f", "-"}, r.calls[0])
	assert.Equal(t, []byte("kind: Secret\n"), r.stdins[0])
}

func TestRollout(t *testing.T) {
	r := &recordingRunner{}
	ops := NewWithRunner(r)

	require.NoError(t, ops.RolloutRestart(context.Background(), "ns", "Deployment/api"))
	require.NoError(t, ops.RolloutStatus(context.Background(), "ns", "Deployment/api", time.Minute))

	assert.Equal(t, []string{"kubectl", "-n", "ns", "rollout", "restart", "Deployment/api"}, r.calls[0])
	assert.Equal(t, []string{"kubectl", "-n", "ns", "rollout", "status", "Deployment/api"}, r.calls[1])
}

func TestPodsBySelector(t *testing.T) {
	r := &recordingRunner{out: []byte(`{
		"items": [
			{
				"metadata": {"name": "api-6d4cf56db6-abcde"},
				"spec": {"containers": [{"image": "registry.tld/myproj-api:v1"}]}
			},
			{
				"metadata": {"name": "api-6d4cf56db6-fghij"},
				"spec": {"containers": [
					{"image": "registry.tld/myproj-api:v1"},
					{"image": "registry.tld/sidecar:v2"}
				]}
			}
		]
	}`)}
	ops := NewWithRunner(r)

	pods, err := ops.PodsBySelector(context.Background(), "ns", "app=api")
	require.NoError(t, err)
	require.Len(t, pods, 2)

	assert.Equal(t, "api-6d4cf56db6-abcde", pods[0].Name)
	assert.Equal(t, []string{"registry.tld/myproj-api:v1"}, pods[0].Images)
	assert.Len(t, pods[1].Images, 2)
}

func TestPodsBySelector_BadJSON(t *testing.T) {
	r := &recordingRunner{out: []byte("not json")}
	ops := NewWithRunner(r)

	_, err := ops.PodsBySelector(context.Background(), "ns", "app=api")
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	r := &recordingRunner{}
	ops := NewWithRunner(r)

	require.NoError(t, ops.Exec(context.Background(), "ns", "api-abc", "sh", "post-release.sh"))
	assert.Equal(t, []string{"kubectl", "-n", "ns", "exec", "api-abc", "--", "sh", "post-release.sh"}, r.calls[0])
}

// Package docker provides Docker daemon access for doctor checks and image
// verification, plus image building through the docker CLI.
package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// API is the subset of the Docker SDK client used here.
// This interface enables mocking for unit tests without a running daemon.
type API interface {
	// Ping tests the connection to the Docker daemon.
	Ping(ctx context.Context) (types.Ping, error)

	// ImageList returns locally available images.
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)

	// Close closes the client connection.
	Close() error
}

// Verify the SDK client satisfies the interface.
var _ API = (*client.Client)(nil)

// Client wraps the Docker SDK client.
type Client struct {
	api API
}

// NewClient connects to the Docker daemon using the environment settings.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI creates a Client with a custom API implementation,
// primarily for testing with mocks.
func NewClientWithAPI(api API) *Client {
	return &Client{api: api}
}

// Ping tests the connection to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}
	return nil
}

// ImageExists reports whether an image with the given reference
// (repository:tag) is available locally.
func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	images, err := c.api.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return false, fmt.Errorf("list images: %w", err)
	}
	return len(images) > 0, nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	if c.api != nil {
		return c.api.Close()
	}
	return nil
}

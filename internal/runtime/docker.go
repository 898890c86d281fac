package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/sockets"
)

const defaultAPITimeout = 5 * time.Second

// composeServiceLabel identifies the compose service a container belongs to.
const composeServiceLabel = "com.docker.compose.service"

// dockerAPI is the subset of Docker client operations used by DockerClient.
// The interface enables unit testing without a real Docker daemon.
type dockerAPI interface {
	Ping(ctx context.Context) (dockertypes.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]dockertypes.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (dockertypes.ContainerJSON, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	ContainersPrune(ctx context.Context, pruneFilters filters.Args) (dockertypes.ContainersPruneReport, error)
	ImagesPrune(ctx context.Context, pruneFilters filters.Args) (dockertypes.ImagesPruneReport, error)
	BuildCachePrune(ctx context.Context, opts dockertypes.BuildCachePruneOptions) (*dockertypes.BuildCachePruneReport, error)
	Close() error
}

// Ensure the official Docker client satisfies the narrow interface.
var _ dockerAPI = (*client.Client)(nil)

// DockerClient implements Client using the official Docker Go SDK.
type DockerClient struct {
	api     dockerAPI
	timeout time.Duration
}

// NewDockerClient initializes a Docker client for the given daemon host.
// Unix-socket hosts get a socket-aware transport so the bounded-timeout
// HTTP client still dials the socket correctly.
func NewDockerClient(host string, timeout time.Duration) (*DockerClient, error) {
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}

	httpClient, err := newHTTPClient(host, timeout)
	if err != nil {
		return nil, err
	}

	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
		client.WithHTTPClient(httpClient),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}

	return &DockerClient{
		api:     api,
		timeout: timeout,
	}, nil
}

func newHTTPClient(host string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{}
	if host != "" {
		hostURL, err := client.ParseHostURL(host)
		if err != nil {
			return nil, fmt.Errorf("parse docker host: %w", err)
		}
		if err := sockets.ConfigureTransport(transport, hostURL.Scheme, hostURL.Host); err != nil {
			return nil, fmt.Errorf("configure docker transport: %w", err)
		}
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Ping validates connectivity to the Docker daemon.
func (c *DockerClient) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("docker client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.Ping(ctx)
	return err
}

// ListUnits returns the state of every container known to the daemon,
// keyed by container name or compose service label.
func (c *DockerClient) ListUnits(ctx context.Context) ([]UnitState, error) {
	containers, err := c.listAll(ctx)
	if err != nil {
		return nil, err
	}

	units := make([]UnitState, 0, len(containers))
	for _, ctr := range containers {
		units = append(units, stateFromContainer(ctr))
	}
	return units, nil
}

// UnitStatus returns the state of the named unit. A unit with no matching
// container is reported as down rather than as an error: the check layer
// treats "container gone" the same as "container stopped".
func (c *DockerClient) UnitStatus(ctx context.Context, name string) (UnitState, error) {
	containers, err := c.listAll(ctx)
	if err != nil {
		return UnitState{Name: name, Liveness: LivenessUnknown, Health: HealthNone}, err
	}

	ctr, ok := matchUnit(containers, name)
	if !ok {
		return UnitState{Name: name, Liveness: LivenessDown, Health: HealthNone}, nil
	}

	inspectCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	details, err := c.api.ContainerInspect(inspectCtx, ctr.ID)
	if err != nil {
		return UnitState{Name: name, Liveness: LivenessUnknown, Health: HealthNone}, err
	}

	state := UnitState{Name: name, Liveness: LivenessDown, Health: HealthNone}
	if details.State != nil {
		if details.State.Running {
			state.Liveness = LivenessUp
		}
		if details.State.Health != nil {
			switch details.State.Health.Status {
			case "healthy":
				state.Health = HealthHealthy
			case "unhealthy":
				state.Health = HealthUnhealthy
			}
			// "starting" carries no signal yet and stays HealthNone.
		}
	}
	return state, nil
}

// Restart restarts the named unit using the daemon's default stop timeout.
func (c *DockerClient) Restart(ctx context.Context, name string) error {
	containers, err := c.listAll(ctx)
	if err != nil {
		return err
	}

	ctr, ok := matchUnit(containers, name)
	if !ok {
		return fmt.Errorf("unit %q: no matching container", name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.api.ContainerRestart(ctx, ctr.ID, container.StopOptions{})
}

// PruneArtifacts removes stopped containers, dangling images and build
// cache, reporting the total bytes reclaimed. Pruning an already-clean
// daemon reclaims nothing and never errors.
func (c *DockerClient) PruneArtifacts(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 4*c.timeout)
	defer cancel()

	var reclaimed uint64

	containersReport, err := c.api.ContainersPrune(ctx, filters.NewArgs())
	if err != nil {
		return reclaimed, fmt.Errorf("prune containers: %w", err)
	}
	reclaimed += containersReport.SpaceReclaimed

	imagesReport, err := c.api.ImagesPrune(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
	if err != nil {
		return reclaimed, fmt.Errorf("prune images: %w", err)
	}
	reclaimed += imagesReport.SpaceReclaimed

	buildReport, err := c.api.BuildCachePrune(ctx, dockertypes.BuildCachePruneOptions{})
	if err != nil {
		return reclaimed, fmt.Errorf("prune build cache: %w", err)
	}
	if buildReport != nil {
		reclaimed += buildReport.SpaceReclaimed
	}

	return reclaimed, nil
}

// Close releases resources associated with the client.
func (c *DockerClient) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}

func (c *DockerClient) listAll(ctx context.Context) ([]dockertypes.Container, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.api.ContainerList(ctx, container.ListOptions{All: true})
}

func matchUnit(containers []dockertypes.Container, name string) (dockertypes.Container, bool) {
	for _, ctr := range containers {
		if ctr.Labels[composeServiceLabel] == name {
			return ctr, true
		}
		for _, ctrName := range ctr.Names {
			if strings.TrimPrefix(ctrName, "/") == name {
				return ctr, true
			}
		}
	}
	return dockertypes.Container{}, false
}

func stateFromContainer(ctr dockertypes.Container) UnitState {
	name := ""
	if label := ctr.Labels[composeServiceLabel]; label != "" {
		name = label
	} else if len(ctr.Names) > 0 {
		name = strings.TrimPrefix(ctr.Names[0], "/")
	}

	liveness := LivenessDown
	if ctr.State == "running" {
		liveness = LivenessUp
	}

	return UnitState{
		Name:     name,
		Liveness: liveness,
		Health:   healthFromStatus(ctr.Status),
	}
}

// healthFromStatus extracts the health probe result from the status text
// the list API reports, e.g. "Up 3 hours (healthy)". Containers without a
// configured probe carry no parenthesized health suffix.
func healthFromStatus(status string) Health {
	switch {
	case strings.Contains(status, "(healthy)"):
		return HealthHealthy
	case strings.Contains(status, "(unhealthy)"):
		return HealthUnhealthy
	default:
		return HealthNone
	}
}

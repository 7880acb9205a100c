// Package docker drives the container engine on a deployment host through
// the docker command line.
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/artpar/ehbdeploy/internal/shell/remote"
)

// =============================================================================
// Docker CLI Implementation
// =============================================================================

// CLI runs docker commands through a remote executor.
type CLI struct {
	exec remote.Executor
}

// NewCLI creates a docker client over exec.
func NewCLI(exec remote.Executor) *CLI {
	return &CLI{exec: exec}
}

// Build builds the image at contextPath and tags it, removing intermediate
// containers.
func (d *CLI) Build(ctx context.Context, tag, contextPath string) error {
	cmd, err := remote.Command("docker", "build", "--rm", "-t", tag)
	if err != nil {
		return err
	}
	dir, err := remote.QuotePath(contextPath)
	if err != nil {
		return err
	}
	if _, err := d.exec.Run(ctx, cmd+" "+dir); err != nil {
		return d.wrap("Build", "image", tag, err, ErrBuildFailed)
	}
	return nil
}

// Tag adds target as a reference to the source image.
func (d *CLI) Tag(ctx context.Context, source, target string) error {
	if _, err := d.run(ctx, "tag", source, target); err != nil {
		return d.wrap("Tag", "image", source, err, nil)
	}
	return nil
}

// Push pushes image to its registry.
func (d *CLI) Push(ctx context.Context, image string) error {
	if _, err := d.run(ctx, "push", image); err != nil {
		return d.wrap("Push", "image", image, err, ErrImagePushFailed)
	}
	return nil
}

// Pull pulls image from its registry.
func (d *CLI) Pull(ctx context.Context, image string) error {
	if _, err := d.run(ctx, "pull", image); err != nil {
		return d.wrap("Pull", "image", image, err, ErrImagePullFailed)
	}
	return nil
}

// RemoveImage removes the image reference from the host.
func (d *CLI) RemoveImage(ctx context.Context, image string) error {
	if _, err := d.run(ctx, "rmi", image); err != nil {
		return d.wrap("RemoveImage", "image", image, err, nil)
	}
	return nil
}

// Run starts a container. For detached runs the container ID is returned;
// otherwise the container's output.
func (d *CLI) Run(ctx context.Context, spec RunSpec) (string, error) {
	if spec.Image == "" {
		return "", NewDockerError("Run", "container", "", "image is required", nil)
	}

	args := []string{"run"}
	if spec.Detach {
		args = append(args, "-d")
	}
	if spec.TTY {
		args = append(args, "-t")
	}
	for _, p := range spec.Publish {
		args = append(args, "-p", p)
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	out, err := d.run(ctx, args...)
	if err != nil {
		return "", d.wrap("Run", "container", spec.Image, err, nil)
	}
	if !spec.Detach {
		return out, nil
	}

	id := lastLine(out)
	if id == "" {
		return "", NewDockerError("Run", "container", spec.Image, "docker run printed no container ID", ErrInvalidOutput)
	}
	return id, nil
}

// Inspect returns the low-level information of a container.
func (d *CLI) Inspect(ctx context.Context, containerID string) (*container.InspectResponse, error) {
	out, err := d.run(ctx, "inspect", containerID)
	if err != nil {
		return nil, d.wrap("Inspect", "container", containerID, err, nil)
	}

	var infos []container.InspectResponse
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		return nil, NewDockerError("Inspect", "container", containerID, fmt.Sprintf("decode inspect output: %v", err), ErrInvalidOutput)
	}
	if len(infos) == 0 {
		return nil, NewDockerError("Inspect", "container", containerID, "container not found", ErrContainerNotFound)
	}
	return &infos[0], nil
}

// HostPort returns the first host port bound to the container port.
func HostPort(info *container.InspectResponse, port nat.Port) (string, error) {
	if info == nil || info.NetworkSettings == nil {
		return "", NewDockerError("HostPort", "container", "", "no network settings", ErrPortNotPublished)
	}
	bindings := info.NetworkSettings.Ports[port]
	if len(bindings) == 0 || bindings[0].HostPort == "" {
		return "", NewDockerError("HostPort", "container", containerID(info), fmt.Sprintf("port %s is not published", port), ErrPortNotPublished)
	}
	return bindings[0].HostPort, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (d *CLI) run(ctx context.Context, args ...string) (string, error) {
	cmd, err := remote.Command("docker", args...)
	if err != nil {
		return "", err
	}
	res, err := d.exec.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// wrap converts a remote failure into a DockerError carrying both the
// classified sentinel and the original error.
func (d *CLI) wrap(op, entity, id string, err, fallback error) error {
	var cmdErr *remote.CommandError
	if !errors.As(err, &cmdErr) {
		return NewDockerError(op, entity, id, err.Error(), err)
	}
	msg := strings.TrimSpace(cmdErr.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exited with status %d", cmdErr.ExitCode)
	}
	if sentinel := classify(cmdErr.Stderr, fallback); sentinel != nil {
		return NewDockerError(op, entity, id, msg, fmt.Errorf("%w: %w", sentinel, err))
	}
	return NewDockerError(op, entity, id, msg, err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// containerID returns the short ID of info, tolerating a partial document.
func containerID(info *container.InspectResponse) string {
	if info.ContainerJSONBase == nil {
		return ""
	}
	id := info.ID
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

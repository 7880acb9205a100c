// Package git drives the version-control steps of a deployment on a remote
// checkout.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/ehbdeploy/internal/shell/remote"
)

// DefaultRemote is the remote branches are pulled from.
const DefaultRemote = "origin"

var ErrEmptyRevision = errors.New("git returned an empty revision")

// Client runs git commands through a remote executor. Scope the executor
// with remote.Dir to choose the working directory.
type Client struct {
	exec remote.Executor
}

// New creates a git client over exec.
func New(exec remote.Executor) *Client {
	return &Client{exec: exec}
}

// Clone clones repoURL into dir, relative to the executor's directory.
func (c *Client) Clone(ctx context.Context, repoURL, dir string) error {
	return c.run(ctx, "clone", repoURL, dir)
}

// Checkout switches the working tree to branch.
func (c *Client) Checkout(ctx context.Context, branch string) error {
	return c.run(ctx, "checkout", branch)
}

// Pull fetches branch from remoteName and merges it into the current branch.
func (c *Client) Pull(ctx context.Context, remoteName, branch string) error {
	if remoteName == "" {
		remoteName = DefaultRemote
	}
	return c.run(ctx, "pull", remoteName, branch)
}

// Head returns the full commit hash of HEAD.
func (c *Client) Head(ctx context.Context) (string, error) {
	cmd, err := remote.Command("git", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	res, err := c.exec.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	hash := strings.TrimSpace(res.Stdout)
	if hash == "" {
		return "", ErrEmptyRevision
	}
	return hash, nil
}

func (c *Client) run(ctx context.Context, args ...string) error {
	cmd, err := remote.Command("git", args...)
	if err != nil {
		return err
	}
	if _, err := c.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}

package docker

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Container errors
	ErrContainerNotFound = errors.New("container not found")
	ErrPortNotPublished  = errors.New("container port is not published")

	// Image errors
	ErrImageNotFound   = errors.New("image not found")
	ErrImagePullFailed = errors.New("image pull failed")
	ErrImagePushFailed = errors.New("image push failed")
	ErrBuildFailed     = errors.New("image build failed")

	// Runtime errors
	ErrPortAlreadyAllocated = errors.New("port is already allocated")
	ErrInvalidOutput        = errors.New("unexpected docker output")
)

// DockerError wraps errors with additional context.
type DockerError struct {
	Op      string // Operation that failed
	Entity  string // Entity type (container, image)
	ID      string // Entity ID or reference if applicable
	Message string
	Err     error
}

func (e *DockerError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// NewDockerError creates a new DockerError.
func NewDockerError(op, entity, id, message string, err error) *DockerError {
	return &DockerError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// classify picks the sentinel matching the daemon's complaint, or fallback.
func classify(stderr string, fallback error) error {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "no such container"):
		return ErrContainerNotFound
	case strings.Contains(s, "no such image"),
		strings.Contains(s, "manifest unknown"),
		strings.Contains(s, "repository does not exist"):
		return ErrImageNotFound
	case strings.Contains(s, "port is already allocated"):
		return ErrPortAlreadyAllocated
	default:
		return fallback
	}
}

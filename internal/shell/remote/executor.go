// Package remote runs shell commands on deployment hosts.
//
// Commands are executed over SSH against the host bound to the current
// operation. Directory scoping (Dir) and privilege escalation (Sudo) are
// expressed as command prefixes, the way an operator would type them.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Types
// =============================================================================

// Result is the captured output of one remote command.
type Result struct {
	Stdout   string // trailing newlines removed
	Stderr   string
	ExitCode int
}

// Executor runs commands on one remote host.
type Executor interface {
	// Run executes command with the login user's shell.
	Run(ctx context.Context, command string) (Result, error)

	// Sudo executes command as root.
	Sudo(ctx context.Context, command string) (Result, error)

	// Exists reports whether path exists on the host.
	Exists(ctx context.Context, path string) (bool, error)

	// Host returns the address commands are executed against.
	Host() string
}

// Connector opens executors for host strings.
type Connector interface {
	Connect(ctx context.Context, hostString string) (Executor, error)
}

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrCommandFailed    = errors.New("remote command failed")
	ErrConnectionFailed = errors.New("remote connection failed")
	ErrNoAuthMethod     = errors.New("no SSH authentication method configured")
)

// CommandError reports a remote command that exited with a non-zero status.
type CommandError struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: command %q exited with status %d", e.Host, e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

// =============================================================================
// Directory Scoping
// =============================================================================

// Dir returns an Executor that runs every command inside dir on the host of
// exec. Nested Dir calls stack like nested cd blocks.
func Dir(exec Executor, dir string) Executor {
	return &dirExecutor{inner: exec, dir: dir}
}

type dirExecutor struct {
	inner Executor
	dir   string
}

func (d *dirExecutor) prefix(command string) (string, error) {
	dir, err := QuotePath(d.dir)
	if err != nil {
		return "", err
	}
	return "cd " + dir + " && " + command, nil
}

func (d *dirExecutor) Run(ctx context.Context, command string) (Result, error) {
	cmd, err := d.prefix(command)
	if err != nil {
		return Result{}, err
	}
	return d.inner.Run(ctx, cmd)
}

func (d *dirExecutor) Sudo(ctx context.Context, command string) (Result, error) {
	cmd, err := d.prefix(command)
	if err != nil {
		return Result{}, err
	}
	return d.inner.Sudo(ctx, cmd)
}

func (d *dirExecutor) Exists(ctx context.Context, path string) (bool, error) {
	return exists(ctx, d, path)
}

func (d *dirExecutor) Host() string {
	return d.inner.Host()
}

// exists runs test -e through exec. Exit status 1 means "does not exist";
// any other failure is returned as an error.
func exists(ctx context.Context, exec Executor, path string) (bool, error) {
	quoted, err := QuotePath(path)
	if err != nil {
		return false, err
	}
	_, err = exec.Run(ctx, "test -e "+quoted)
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

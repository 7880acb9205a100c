package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHExecutor implements Executor over an SSH connection to one host.
type SSHExecutor struct {
	target    Target
	config    *ssh.ClientConfig
	sshClient *ssh.Client
	timeout   time.Duration // per-command timeout, 0 for none
	logger    *slog.Logger
	mu        sync.Mutex // protects sshClient
}

// SSHConfig configures SSH executors.
type SSHConfig struct {
	User                  string        // default login user when the host string has none
	Port                  int           // default port, 22 when zero
	IdentityFile          string        // private key file; "~/" is expanded
	UseAgent              bool          // authenticate with keys from SSH_AUTH_SOCK
	Password              string        // password authentication
	KnownHostsFile        string        // known_hosts file; "~/" is expanded
	InsecureIgnoreHostKey bool          // skip host key verification
	ConnectTimeout        time.Duration // default: 10 seconds
	CommandTimeout        time.Duration // default: no timeout
	Logger                *slog.Logger
}

// DefaultSSHConfig returns the default configuration.
func DefaultSSHConfig() SSHConfig {
	return SSHConfig{
		Port:           DefaultSSHPort,
		UseAgent:       true,
		KnownHostsFile: "~/.ssh/known_hosts",
		ConnectTimeout: 10 * time.Second,
	}
}

// NewSSHExecutor creates an executor for hostString. The connection is
// opened lazily by the first command.
func NewSSHExecutor(hostString string, cfg SSHConfig) (*SSHExecutor, error) {
	target, err := ParseHostString(hostString, cfg.User, cfg.Port)
	if err != nil {
		return nil, err
	}
	if target.User == "" {
		target.User = currentUser()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := hostKeyCallback(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &SSHExecutor{
		target: target,
		config: &ssh.ClientConfig{
			User:            target.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.ConnectTimeout,
		},
		timeout: cfg.CommandTimeout,
		logger:  logger,
	}, nil
}

// =============================================================================
// Authentication
// =============================================================================

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.IdentityFile != "" {
		key, err := os.ReadFile(expandHome(cfg.IdentityFile))
		if err != nil {
			return nil, fmt.Errorf("read SSH identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse SSH private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
				conn, err := net.Dial("unix", sock)
				if err != nil {
					return nil, fmt.Errorf("connect to SSH agent: %w", err)
				}
				return agent.NewClient(conn).Signers()
			}))
		}
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, ErrNoAuthMethod
	}
	return methods, nil
}

func hostKeyCallback(cfg SSHConfig, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		logger.Warn("SSH host key verification is disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHostsFile == "" {
		return nil, errors.New("SSH known_hosts file is not configured")
	}
	cb, err := knownhosts.New(expandHome(cfg.KnownHostsFile))
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return cb, nil
}

// =============================================================================
// Connection Management
// =============================================================================

// connect establishes the SSH connection if not already connected.
func (c *SSHExecutor) connect(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		// Check if connection is still alive
		_, _, err := c.sshClient.SendRequest("keepalive@ehbdeploy", true, nil)
		if err == nil {
			return c.sshClient, nil
		}
		c.sshClient.Close()
		c.sshClient = nil
	}

	addr := c.target.Address()
	dialer := net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: SSH dial %s: %v", ErrConnectionFailed, addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, c.config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: SSH handshake %s: %v", ErrConnectionFailed, addr, err)
	}

	c.sshClient = ssh.NewClient(sshConn, chans, reqs)
	return c.sshClient, nil
}

// Close closes the SSH connection.
func (c *SSHExecutor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		err := c.sshClient.Close()
		c.sshClient = nil
		return err
	}
	return nil
}

// Host returns the connection address of the executor.
func (c *SSHExecutor) Host() string {
	return c.target.String()
}

// =============================================================================
// Command Execution
// =============================================================================

// Run executes command on the host. A non-zero exit status is returned as
// a *CommandError together with the captured output.
func (c *SSHExecutor) Run(ctx context.Context, command string) (Result, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return Result{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	c.logger.Debug("run", "host", c.target.Host, "command", command)

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return Result{}, ctx.Err()
	case <-timeout:
		_ = session.Signal(ssh.SIGKILL)
		return Result{}, fmt.Errorf("command timeout after %v: %s", c.timeout, command)
	case err := <-done:
		res := Result{
			Stdout: strings.TrimRight(stdout.String(), "\r\n"),
			Stderr: stderr.String(),
		}
		if err == nil {
			return res, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, &CommandError{
				Host:     c.target.Host,
				Command:  command,
				ExitCode: res.ExitCode,
				Stderr:   res.Stderr,
			}
		}
		return res, fmt.Errorf("run %q on %s: %w", command, c.target.Host, err)
	}
}

// Sudo executes command as root through a non-interactive sudo.
func (c *SSHExecutor) Sudo(ctx context.Context, command string) (Result, error) {
	q, err := Quote(command)
	if err != nil {
		return Result{}, err
	}
	return c.Run(ctx, "sudo -n sh -c "+q)
}

// Exists reports whether path exists on the host.
func (c *SSHExecutor) Exists(ctx context.Context, path string) (bool, error) {
	return exists(ctx, c, path)
}

// =============================================================================
// Helpers
// =============================================================================

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}

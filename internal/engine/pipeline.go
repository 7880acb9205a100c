// Package engine runs the deployment pipeline against bound hosts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/ehbdeploy/internal/core/appconfig"
	"github.com/artpar/ehbdeploy/internal/core/deployment"
	"github.com/artpar/ehbdeploy/internal/core/hostctx"
	"github.com/artpar/ehbdeploy/internal/core/hosts"
	"github.com/artpar/ehbdeploy/internal/shell/docker"
	"github.com/artpar/ehbdeploy/internal/shell/git"
	"github.com/artpar/ehbdeploy/internal/shell/remote"
)

var (
	ErrNoConnector = errors.New("no remote connector configured")
	ErrNoStore     = errors.New("no configuration store configured")
)

// ScriptNameVariable is cleared for long-running containers so the service
// is mounted at the root of its published port.
const ScriptNameVariable = "FORCE_SCRIPT_NAME"

// =============================================================================
// Configuration
// =============================================================================

// ConfigStore reads the recursive key namespace of the service config.
type ConfigStore interface {
	ReadRecursive(ctx context.Context, key string) ([]appconfig.Entry, error)
}

// StoreFactory opens the config store running on etcdHost.
type StoreFactory func(etcdHost string) (ConfigStore, error)

// Config holds the service-level pipeline settings.
type Config struct {
	ServiceName    string
	ServicePort    int
	ConfigPrefix   string
	RunCommand     []string
	TestCommand    []string
	NginxReloadCmd string
}

// DefaultConfig returns the pipeline settings of ehb-service.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "ehb-service",
		ServicePort:    8000,
		ConfigPrefix:   appconfig.DefaultPrefix,
		RunCommand:     []string{"/bin/sh", "-e", "/usr/local/bin/run"},
		TestCommand:    []string{"/bin/sh", "-e", "/usr/local/bin/test"},
		NginxReloadCmd: "/etc/init.d/nginx reload",
	}
}

// Deps holds the collaborators of the pipeline.
type Deps struct {
	Binder    *hostctx.Binder
	Connector remote.Connector
	Stores    StoreFactory
	Config    Config
	Logger    *slog.Logger
	RunID     string // generated when empty
}

// PushOptions tunes PushToRepo.
type PushOptions struct {
	// Revision pins the pushed revision. Empty means the checkout's HEAD.
	Revision string
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline runs host-bound deployment operations. Every operation re-reads
// the host settings and binds the target host before touching it.
type Pipeline struct {
	binder    *hostctx.Binder
	connector remote.Connector
	stores    StoreFactory
	config    Config
	logger    *slog.Logger
	runID     string
	handlers  map[deployment.Operation]Handler
}

// New creates a pipeline.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg := deps.Config
	defaults := DefaultConfig()
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaults.ServiceName
	}
	if cfg.ServicePort == 0 {
		cfg.ServicePort = defaults.ServicePort
	}
	if cfg.ConfigPrefix == "" {
		cfg.ConfigPrefix = defaults.ConfigPrefix
	}
	if len(cfg.RunCommand) == 0 {
		cfg.RunCommand = defaults.RunCommand
	}
	if len(cfg.TestCommand) == 0 {
		cfg.TestCommand = defaults.TestCommand
	}
	if cfg.NginxReloadCmd == "" {
		cfg.NginxReloadCmd = defaults.NginxReloadCmd
	}

	p := &Pipeline{
		binder:    deps.Binder,
		connector: deps.Connector,
		stores:    deps.Stores,
		config:    cfg,
		logger:    logger.With("run_id", runID),
		runID:     runID,
	}
	p.handlers = defaultHandlers()
	return p
}

// RunID identifies this invocation in the logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Hosts returns the requested host aliases in order.
func (p *Pipeline) Hosts() []string {
	return p.binder.Hosts()
}

// =============================================================================
// Operations
// =============================================================================

// SetupEnv prepares the checkout: the environment directory and clone are
// created when missing, then the configured branch is checked out and pulled.
func (p *Pipeline) SetupEnv(ctx context.Context, host string) error {
	return p.run(ctx, host, deployment.OpSetupEnv, func(ctx context.Context, s *session) error {
		path, err := s.require(hosts.KeyPath)
		if err != nil {
			return err
		}
		branch, err := s.require(hosts.KeyGitBranch)
		if err != nil {
			return err
		}
		layout, err := deployment.SplitCheckout(path)
		if err != nil {
			return hosts.NewConfigurationError(s.hc.Host, hosts.KeyPath, err.Error(), err)
		}

		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}

		parentExists, err := exec.Exists(ctx, layout.Parent)
		if err != nil {
			return err
		}
		if !parentExists {
			parent, err := remote.QuotePath(layout.Parent)
			if err != nil {
				return err
			}
			s.logger.Info("creating environment", "dir", layout.Parent)
			if _, err := exec.Run(ctx, "mkdir -p "+parent); err != nil {
				return err
			}
			if _, err := exec.Run(ctx, "virtualenv "+parent); err != nil {
				return err
			}
		}

		inParent := remote.Dir(exec, layout.Parent)
		projectExists, err := inParent.Exists(ctx, layout.Project)
		if err != nil {
			return err
		}
		if !projectExists {
			repoURL, err := s.require(hosts.KeyRepoURL)
			if err != nil {
				return err
			}
			s.logger.Info("cloning repository", "repo", repoURL, "dir", layout.Path)
			if err := git.New(inParent).Clone(ctx, repoURL, layout.Project); err != nil {
				return err
			}
		}

		repo := git.New(remote.Dir(exec, layout.Path))
		if err := repo.Checkout(ctx, branch); err != nil {
			return err
		}
		return repo.Pull(ctx, git.DefaultRemote, branch)
	})
}

// BuildContainer updates the checkout and builds the revision-addressed
// image from it.
func (p *Pipeline) BuildContainer(ctx context.Context, host string) (deployment.Artifact, error) {
	var artifact deployment.Artifact
	err := p.run(ctx, host, deployment.OpBuildContainer, func(ctx context.Context, s *session) error {
		settings, err := s.requireAll(hosts.KeyPath, hosts.KeyGitBranch)
		if err != nil {
			return err
		}
		if err := p.SetupEnv(ctx, host); err != nil {
			return err
		}

		a, err := p.headArtifact(ctx, s)
		if err != nil {
			return err
		}
		path := settings[hosts.KeyPath]
		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}
		if err := docker.NewCLI(exec).Build(ctx, a.LocalTag(), path); err != nil {
			return err
		}

		s.logger.Info("image built", "image", a.LocalTag())
		artifact = a
		return nil
	})
	return artifact, err
}

// PushToRepo tags the built image for the registry, pushes it and drops the
// local registry tag.
func (p *Pipeline) PushToRepo(ctx context.Context, host string, opts PushOptions) (deployment.Artifact, error) {
	var artifact deployment.Artifact
	err := p.run(ctx, host, deployment.OpPushToRepo, func(ctx context.Context, s *session) error {
		settings, err := s.requireAll(hosts.KeyDockerRegistry, hosts.KeyPath, hosts.KeyGitBranch)
		if err != nil {
			return err
		}
		registry := settings[hosts.KeyDockerRegistry]

		var pinned string
		if opts.Revision != "" {
			if pinned, err = deployment.ShortRevision(opts.Revision); err != nil {
				return err
			}
		}

		a, err := p.headArtifact(ctx, s)
		if err != nil {
			return err
		}
		if pinned != "" {
			if pinned != a.Revision {
				s.logger.Warn("pushing a revision other than HEAD", "revision", pinned, "head", a.Revision)
			}
			a.Revision = pinned
		}

		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}
		cli := docker.NewCLI(exec)
		target := a.RegistryImage(registry)
		if err := cli.Tag(ctx, a.LocalTag(), target); err != nil {
			return err
		}
		if err := cli.Push(ctx, target); err != nil {
			return err
		}
		if err := cli.RemoveImage(ctx, target); err != nil {
			return err
		}

		s.logger.Info("image pushed", "image", target, "revision", a.Revision)
		artifact = a
		return nil
	})
	return artifact, err
}

// PullRepo pulls the branch image from the registry.
func (p *Pipeline) PullRepo(ctx context.Context, host string) error {
	return p.run(ctx, host, deployment.OpPullRepo, func(ctx context.Context, s *session) error {
		path, err := s.require(hosts.KeyPath)
		if err != nil {
			return err
		}
		registry, err := s.require(hosts.KeyDockerRegistry)
		if err != nil {
			return err
		}
		branch, err := s.require(hosts.KeyGitBranch)
		if err != nil {
			return err
		}
		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}

		image := deployment.RegistryImage(registry, p.config.ServiceName, branch)
		return docker.NewCLI(remote.Dir(exec, path)).Pull(ctx, image)
	})
}

// RunContainer pulls the latest branch image, starts it detached with the
// host's application config and returns the URL it is reachable at.
func (p *Pipeline) RunContainer(ctx context.Context, host string) (string, error) {
	var url string
	err := p.run(ctx, host, deployment.OpRunContainer, func(ctx context.Context, s *session) error {
		settings, err := s.requireAll(hosts.KeyPath, hosts.KeyDockerRegistry, hosts.KeyGitBranch, hosts.KeyEtcdHost)
		if err != nil {
			return err
		}
		target, err := remote.ParseHostString(s.hc.HostString(), "", 0)
		if err != nil {
			return hosts.NewConfigurationError(s.hc.Host, hosts.KeyHostString, err.Error(), err)
		}
		port, err := docker.ServicePort(p.config.ServicePort)
		if err != nil {
			return err
		}
		registry, branch := settings[hosts.KeyDockerRegistry], settings[hosts.KeyGitBranch]

		if err := p.PullRepo(ctx, host); err != nil {
			return err
		}

		vars, err := p.assemble(ctx, s, settings[hosts.KeyEtcdHost], branch, appconfig.Overrides{ScriptNameVariable: appconfig.Set("")})
		if err != nil {
			return err
		}

		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}
		cli := docker.NewCLI(exec)
		id, err := cli.Run(ctx, docker.RunSpec{
			Detach:  true,
			Publish: []string{":" + port.Port()},
			Env:     vars.Pairs(),
			Image:   deployment.LatestImage(registry, p.config.ServiceName, branch),
			Command: p.config.RunCommand,
		})
		if err != nil {
			return err
		}

		info, err := cli.Inspect(ctx, id)
		if err != nil {
			return err
		}
		hostPort, err := docker.HostPort(info, port)
		if err != nil {
			return err
		}

		url = deployment.ServiceURL(target.Host, hostPort)
		s.logger.Info("container started", "container", id, "url", url)
		return nil
	})
	return url, err
}

// TestContainer runs the test entrypoint of the image built from HEAD and
// returns its output.
func (p *Pipeline) TestContainer(ctx context.Context, host string) (string, error) {
	var output string
	err := p.run(ctx, host, deployment.OpTestContainer, func(ctx context.Context, s *session) error {
		settings, err := s.requireAll(hosts.KeyPath, hosts.KeyGitBranch, hosts.KeyEtcdHost)
		if err != nil {
			return err
		}
		a, err := p.headArtifact(ctx, s)
		if err != nil {
			return err
		}
		vars, err := p.assemble(ctx, s, settings[hosts.KeyEtcdHost], a.Branch, nil)
		if err != nil {
			return err
		}
		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}

		output, err = docker.NewCLI(exec).Run(ctx, docker.RunSpec{
			TTY:     true,
			Env:     vars.Pairs(),
			Image:   a.LocalTag(),
			Command: p.config.TestCommand,
		})
		return err
	})
	return output, err
}

// ApplicationConfig assembles the container environment of host.
func (p *Pipeline) ApplicationConfig(ctx context.Context, host string, overrides appconfig.Overrides) (appconfig.VariableSet, error) {
	var vars appconfig.VariableSet
	err := p.run(ctx, host, deployment.OpAppConfig, func(ctx context.Context, s *session) error {
		settings, err := s.requireAll(hosts.KeyEtcdHost, hosts.KeyGitBranch)
		if err != nil {
			return err
		}
		vars, err = p.assemble(ctx, s, settings[hosts.KeyEtcdHost], settings[hosts.KeyGitBranch], overrides)
		return err
	})
	return vars, err
}

// ReloadNginx reloads the host's nginx.
func (p *Pipeline) ReloadNginx(ctx context.Context, host string) error {
	return p.run(ctx, host, deployment.OpReloadNginx, func(ctx context.Context, s *session) error {
		exec, err := s.executor(ctx)
		if err != nil {
			return err
		}
		_, err = exec.Sudo(ctx, p.config.NginxReloadCmd)
		return err
	})
}

// =============================================================================
// Helpers
// =============================================================================

// run binds host and invokes fn with a session on it. Only the outermost
// operation logs start and finish and wraps the error.
func (p *Pipeline) run(ctx context.Context, host string, op deployment.Operation, fn func(ctx context.Context, s *session) error) error {
	_, nested := hostctx.FromContext(ctx)

	return p.binder.Run(ctx, host, func(ctx context.Context) error {
		hc, _ := hostctx.FromContext(ctx)
		s := &session{
			hc:        hc,
			connector: p.connector,
			logger:    p.logger.With("host", host, "op", string(op)),
		}

		if nested {
			s.logger.Debug("operation started", "settings", hc.Keys())
			return fn(ctx, s)
		}

		plan := deployment.PlanOperation(op)
		start := time.Now()
		s.logger.Info("operation started", "steps", len(plan.Steps))
		s.logger.Debug("host bound", "host_string", hc.HostString(), "settings", hc.Keys())
		if err := fn(ctx, s); err != nil {
			s.logger.Error("operation failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("%s on %s: %w", op, host, err)
		}
		if plan.Changes {
			s.logger.Info("operation finished", "stage", plan.To.String(), "duration", time.Since(start))
		} else {
			s.logger.Info("operation finished", "duration", time.Since(start))
		}
		return nil
	})
}

// headArtifact derives the artifact of the checkout's current HEAD.
func (p *Pipeline) headArtifact(ctx context.Context, s *session) (deployment.Artifact, error) {
	path, err := s.require(hosts.KeyPath)
	if err != nil {
		return deployment.Artifact{}, err
	}
	branch, err := s.require(hosts.KeyGitBranch)
	if err != nil {
		return deployment.Artifact{}, err
	}
	exec, err := s.executor(ctx)
	if err != nil {
		return deployment.Artifact{}, err
	}

	hash, err := git.New(remote.Dir(exec, path)).Head(ctx)
	if err != nil {
		return deployment.Artifact{}, err
	}
	rev, err := deployment.ShortRevision(hash)
	if err != nil {
		return deployment.Artifact{}, err
	}
	return deployment.Artifact{Service: p.config.ServiceName, Branch: branch, Revision: rev}, nil
}

// assemble reads the host's config namespace and merges overrides into it.
func (p *Pipeline) assemble(ctx context.Context, s *session, etcdHost, branch string, overrides appconfig.Overrides) (appconfig.VariableSet, error) {
	if p.stores == nil {
		return nil, ErrNoStore
	}
	store, err := p.stores(etcdHost)
	if err != nil {
		return nil, err
	}

	key := appconfig.Namespace(p.config.ConfigPrefix, s.hc.Host)
	entries, err := store.ReadRecursive(ctx, key)
	if err != nil {
		return nil, err
	}
	vars := appconfig.Assemble(entries, overrides, branch)
	s.logger.Debug("application config assembled", "key", key, "variables", len(vars))
	return vars, nil
}

// session is the per-operation view of a bound host.
type session struct {
	hc        hostctx.Context
	connector remote.Connector
	logger    *slog.Logger
	exec      remote.Executor
}

func (s *session) require(key string) (string, error) {
	return s.hc.Require(key)
}

// requireAll resolves every key a step reads, so a missing setting fails the
// step before it touches the host.
func (s *session) requireAll(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := s.require(key)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return values, nil
}

// executor connects to the bound host on first use.
func (s *session) executor(ctx context.Context) (remote.Executor, error) {
	if s.exec != nil {
		return s.exec, nil
	}
	if s.connector == nil {
		return nil, ErrNoConnector
	}
	exec, err := s.connector.Connect(ctx, s.hc.HostString())
	if err != nil {
		return nil, err
	}
	s.exec = exec
	return exec, nil
}

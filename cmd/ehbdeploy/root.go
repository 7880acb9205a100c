package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/ehbdeploy/internal/core/appconfig"
	"github.com/artpar/ehbdeploy/internal/core/deployment"
	"github.com/artpar/ehbdeploy/internal/core/hostctx"
	"github.com/artpar/ehbdeploy/internal/core/hosts"
	"github.com/artpar/ehbdeploy/internal/engine"
	"github.com/artpar/ehbdeploy/internal/shell/etcd"
	"github.com/artpar/ehbdeploy/internal/shell/hostsfile"
	"github.com/artpar/ehbdeploy/internal/shell/remote"
)

// options holds the global flags.
type options struct {
	configPath string
	hosts      []string
	set        []string
	hostsFile  string
	logLevel   string
	logFormat  string

	// connector replaces the SSH pool; set by tests.
	connector remote.Connector
}

var operationSummaries = map[deployment.Operation]string{
	deployment.OpSetupEnv:       "Create the environment and update the checkout",
	deployment.OpBuildContainer: "Build the image of the checked out revision",
	deployment.OpPushToRepo:     "Push the built image to the registry",
	deployment.OpPullRepo:       "Pull the branch image from the registry",
	deployment.OpRunContainer:   "Start the latest branch image",
	deployment.OpTestContainer:  "Run the test suite inside the built image",
	deployment.OpAppConfig:      "Print the container environment of each host",
	deployment.OpReloadNginx:    "Reload nginx on each host",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return newRootCmdWithOptions(&options{}, stdout, stderr)
}

func newRootCmdWithOptions(opts *options, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "ehbdeploy",
		Short: "Deploy ehb-service to the hosts of a .fabhosts file",
		Long: TitleStyle.Render("ehbdeploy") + SubtitleStyle.Render(" - build, ship and run ehb-service") + `

Every operation runs once per host given with --hosts, in order, and stops
at the first failure. Host settings are read from the settings file before
each operation.

` + SubtitleStyle.Render("Examples:") + `
  ehbdeploy -H staging --set git_branch=develop build-container
  ehbdeploy -H staging --set git_branch=develop push-to-repo
  ehbdeploy -H production --set git_branch=main run-container
  ehbdeploy -H production --set git_branch=main app-config`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.StringSliceVarP(&opts.hosts, "hosts", "H", nil, "comma-separated host aliases to operate on")
	flags.StringArrayVar(&opts.set, "set", nil, "invocation parameter as key=value (repeatable)")
	flags.StringVar(&opts.hostsFile, "hosts-file", "", "host settings file (default .fabhosts)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	for _, op := range deployment.Operations() {
		root.AddCommand(newOperationCmd(op, opts, stdout, stderr))
	}
	root.AddCommand(newStagesCmd(stdout))

	return root
}

// =============================================================================
// Operation Commands
// =============================================================================

func newOperationCmd(op deployment.Operation, opts *options, stdout, stderr io.Writer) *cobra.Command {
	var (
		revision  string
		overrides []string
		suppress  []string
	)

	cmd := &cobra.Command{
		Use:   string(op),
		Short: operationSummaries[op],
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if revision != "" {
				if _, err := deployment.ShortRevision(revision); err != nil {
					return &UsageError{Err: fmt.Errorf("--revision: %w", err)}
				}
			}

			req := engine.Request{Revision: revision}
			if op == deployment.OpAppConfig {
				o, err := parseOverrides(overrides, suppress)
				if err != nil {
					return err
				}
				req.Overrides = o
			}

			a, err := newApp(opts, stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.pipeline.DispatchAll(cmd.Context(), op, req, func(host string, out engine.Outcome) {
				report(stdout, op, host, out)
			})
		},
	}

	switch op {
	case deployment.OpPushToRepo:
		cmd.Flags().StringVar(&revision, "revision", "", "push this revision instead of the checkout's HEAD")
	case deployment.OpAppConfig:
		cmd.Flags().StringArrayVar(&overrides, "override", nil, "replace a stored variable as NAME=VALUE (repeatable)")
		cmd.Flags().StringArrayVar(&suppress, "suppress", nil, "omit a stored variable (repeatable)")
	}
	return cmd
}

func newStagesCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stages [operation...]",
		Short: "Describe the steps of the given operations, or of all of them",
		RunE: func(_ *cobra.Command, args []string) error {
			plans := make([]deployment.OperationPlan, 0, len(deployment.Operations()))
			if len(args) == 0 {
				for _, op := range deployment.Operations() {
					plans = append(plans, deployment.PlanOperation(op))
				}
			}
			for _, arg := range args {
				plan := deployment.PlanOperation(deployment.Operation(arg))
				if !plan.Valid {
					return &UsageError{Err: fmt.Errorf("%s: %s", arg, plan.ErrorReason)}
				}
				plans = append(plans, plan)
			}

			for _, plan := range plans {
				op := plan.Operation
				header := TitleStyle.Render(string(op))
				if plan.Changes {
					header += SubtitleStyle.Render(fmt.Sprintf(" (%s -> %s)", joinStages(plan.From), plan.To))
				}
				fmt.Fprintln(stdout, header)
				for i, step := range plan.Steps {
					fmt.Fprintf(stdout, "  %d. %s\n", i+1, step)
				}
			}
			return nil
		},
	}
}

func report(w io.Writer, op deployment.Operation, host string, out engine.Outcome) {
	switch {
	case op == deployment.OpAppConfig:
		fmt.Fprintln(w, out.Variables.String())
	case op == deployment.OpTestContainer:
		fmt.Fprintln(w, out.Output)
	case out.URL != "":
		fmt.Fprintln(w, "Now running at "+URLStyle.Render(out.URL))
	case out.Artifact != nil:
		fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render(string(op)), host, out.Artifact.LocalTag())
	default:
		fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render(string(op)), host)
	}
}

// =============================================================================
// Application Wiring
// =============================================================================

type app struct {
	cfg      *Config
	logger   *slog.Logger
	pool     *remote.Pool
	pipeline *engine.Pipeline
}

func newApp(opts *options, stderr io.Writer) (*app, error) {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return nil, hosts.NewConfigurationError("", "", err.Error(), err)
	}
	if opts.hostsFile != "" {
		cfg.HostsFile = opts.hostsFile
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	logger := SetupLogger(cfg, stderr)

	params, err := parseAssignments(opts.set)
	if err != nil {
		return nil, err
	}

	loader := hostsfile.New(cfg.HostsFile)
	if err := loader.Check(); err != nil {
		if errors.Is(err, hosts.ErrSettingsFileNotFound) {
			fmt.Fprintln(stderr, WarningStyle.Render(hostsfile.Usage))
		}
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	connector := opts.connector
	if connector == nil {
		a.pool = remote.NewPool(cfg.SSH.Remote(logger))
		connector = a.pool
	}

	a.pipeline = engine.New(engine.Deps{
		Binder:    hostctx.NewBinder(loader, opts.hosts, params),
		Connector: connector,
		Stores: func(etcdHost string) (engine.ConfigStore, error) {
			return etcd.New(cfg.Etcd.Store(etcdHost))
		},
		Config: cfg.Service.Pipeline(),
		Logger: logger,
	})
	logger.Debug("pipeline ready", "run_id", a.pipeline.RunID(), "hosts", strings.Join(opts.hosts, ","), "hosts_file", cfg.HostsFile)
	return a, nil
}

// Close releases the SSH connections.
func (a *app) Close() {
	if a.pool == nil {
		return
	}
	a.logger.Debug("closing SSH connections", "count", a.pool.Count())
	if err := a.pool.CloseAll(); err != nil {
		a.logger.Warn("closing SSH connections", "error", err)
	}
}

// =============================================================================
// Flag Parsing
// =============================================================================

// parseAssignments parses key=value pairs. Later pairs win.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &UsageError{Err: fmt.Errorf("invalid assignment %q: expected key=value", pair)}
		}
		out[key] = value
	}
	return out, nil
}

func parseOverrides(set, suppress []string) (appconfig.Overrides, error) {
	values, err := parseAssignments(set)
	if err != nil {
		return nil, err
	}
	overrides := make(appconfig.Overrides, len(values)+len(suppress))
	for name, value := range values {
		overrides[name] = appconfig.Set(value)
	}
	for _, name := range suppress {
		overrides[strings.TrimSpace(name)] = appconfig.Suppress()
	}
	return overrides, nil
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

func joinStages(stages []deployment.Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.String()
	}
	return strings.Join(names, "|")
}

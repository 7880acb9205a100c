package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/ehbdeploy/internal/core/appconfig"
	"github.com/artpar/ehbdeploy/internal/core/deployment"
	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

var ErrUnknownOperation = errors.New("unknown pipeline operation")

// Request carries the inputs of a dispatched operation.
type Request struct {
	Host      string
	Revision  string              // push-to-repo: pinned revision
	Overrides appconfig.Overrides // app-config: caller overrides
}

// Outcome is what a dispatched operation reports back.
type Outcome struct {
	Artifact  *deployment.Artifact
	URL       string
	Output    string
	Variables appconfig.VariableSet
}

// Handler runs one pipeline operation for a request.
type Handler func(ctx context.Context, p *Pipeline, req Request) (Outcome, error)

func defaultHandlers() map[deployment.Operation]Handler {
	return map[deployment.Operation]Handler{
		deployment.OpSetupEnv: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			return Outcome{}, p.SetupEnv(ctx, req.Host)
		},
		deployment.OpBuildContainer: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			a, err := p.BuildContainer(ctx, req.Host)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Artifact: &a}, nil
		},
		deployment.OpPushToRepo: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			a, err := p.PushToRepo(ctx, req.Host, PushOptions{Revision: req.Revision})
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Artifact: &a}, nil
		},
		deployment.OpPullRepo: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			return Outcome{}, p.PullRepo(ctx, req.Host)
		},
		deployment.OpRunContainer: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			url, err := p.RunContainer(ctx, req.Host)
			return Outcome{URL: url}, err
		},
		deployment.OpTestContainer: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			out, err := p.TestContainer(ctx, req.Host)
			return Outcome{Output: out}, err
		},
		deployment.OpAppConfig: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			vars, err := p.ApplicationConfig(ctx, req.Host, req.Overrides)
			return Outcome{Variables: vars}, err
		},
		deployment.OpReloadNginx: func(ctx context.Context, p *Pipeline, req Request) (Outcome, error) {
			return Outcome{}, p.ReloadNginx(ctx, req.Host)
		},
	}
}

// Dispatch runs op for req.Host.
func (p *Pipeline) Dispatch(ctx context.Context, op deployment.Operation, req Request) (Outcome, error) {
	handler, ok := p.handlers[op]
	if !ok {
		p.logger.Warn("no handler registered for operation", "op", string(op))
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	p.logger.Debug("dispatching operation", "op", string(op), "host", req.Host)
	return handler(ctx, p, req)
}

// DispatchAll runs op for every requested host in order, calling each with
// the outcome of every host that succeeded. It stops at the first failure.
func (p *Pipeline) DispatchAll(ctx context.Context, op deployment.Operation, req Request, each func(host string, out Outcome)) error {
	hostList := p.Hosts()
	if len(hostList) == 0 {
		return hosts.NewConfigurationError("", "", "at least one host must be specified", hosts.ErrNoHosts)
	}
	for _, host := range hostList {
		r := req
		r.Host = host
		out, err := p.Dispatch(ctx, op, r)
		if err != nil {
			return err
		}
		if each != nil {
			each(host, out)
		}
	}
	return nil
}

package hostctx

import (
	"context"
	"fmt"

	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

// =============================================================================
// Scoped Binding
// =============================================================================

// Loader returns the current host settings document. It is called once per
// host-bound operation so edits to the settings are always picked up.
type Loader interface {
	Load() (hosts.Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func() (hosts.Document, error)

func (f LoaderFunc) Load() (hosts.Document, error) {
	return f()
}

// Binder wraps host-bound operations: it resolves the requested hosts,
// binds the selected host's Context, runs the operation and leaves the
// caller's context untouched.
type Binder struct {
	loader    Loader
	requested []string
	params    map[string]string
}

// NewBinder creates a Binder for the requested host aliases. params are the
// ambient invocation parameters (e.g. git_branch, docker_registry).
func NewBinder(loader Loader, requested []string, params map[string]string) *Binder {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &Binder{
		loader:    loader,
		requested: append([]string(nil), requested...),
		params:    p,
	}
}

// Hosts returns the requested host aliases.
func (b *Binder) Hosts() []string {
	return append([]string(nil), b.requested...)
}

// Bind resolves host and returns a child of ctx carrying its Context.
// ctx itself is never modified.
func (b *Binder) Bind(ctx context.Context, host string) (context.Context, error) {
	if current, ok := FromContext(ctx); ok && current.Host != host {
		return nil, hosts.NewConfigurationError(host, "",
			fmt.Sprintf("cannot run inside the scope of host %q", current.Host), hosts.ErrHostScope)
	}

	doc, err := b.loader.Load()
	if err != nil {
		return nil, err
	}
	profiles, err := hosts.Resolve(doc, b.requested)
	if err != nil {
		return nil, err
	}
	if !b.isRequested(host) {
		return nil, hosts.NewConfigurationError(host, "",
			"host was not among the requested hosts", hosts.ErrUnknownHost)
	}
	return WithContext(ctx, New(host, b.params, profiles[host])), nil
}

// Run binds host and invokes op with the bound context.
func (b *Binder) Run(ctx context.Context, host string, op func(ctx context.Context) error) error {
	bound, err := b.Bind(ctx, host)
	if err != nil {
		return err
	}
	return op(bound)
}

// Call is Run for operations that produce a value.
func Call[T any](ctx context.Context, b *Binder, host string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	bound, err := b.Bind(ctx, host)
	if err != nil {
		return zero, err
	}
	return op(bound)
}

func (b *Binder) isRequested(host string) bool {
	for _, h := range b.requested {
		if h == host {
			return true
		}
	}
	return false
}

// Package hostctx binds the settings of the currently selected host to a
// context.Context for the duration of one host-bound operation.
package hostctx

import (
	"context"
	"sort"

	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const hostContextKey contextKey = "hostctx"

// =============================================================================
// Types
// =============================================================================

// Context is the execution context of a host-bound operation: the active
// host alias and the effective settings, which are the invocation parameters
// overlaid by the host's profile.
type Context struct {
	Host     string
	settings map[string]string
}

// New builds a Context for host. Profile keys override params key by key.
// Neither input is retained.
func New(host string, params map[string]string, profile hosts.Profile) Context {
	settings := make(map[string]string, len(params)+len(profile))
	for k, v := range params {
		settings[k] = v
	}
	for k, v := range profile {
		settings[k] = v
	}
	return Context{Host: host, settings: settings}
}

// Get returns the setting value, or "" when it is not set.
func (c Context) Get(key string) string {
	return c.settings[key]
}

// Require returns the setting value, or a ConfigurationError naming the host
// and key when the value is empty.
func (c Context) Require(key string) (string, error) {
	v := c.settings[key]
	if v == "" {
		return "", hosts.NewConfigurationError(c.Host, key,
			"the setting is required for this operation but is not defined", hosts.ErrMissingSetting)
	}
	return v, nil
}

// Keys returns the setting names in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.settings))
	for k := range c.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HostString returns the connection address of the bound host.
func (c Context) HostString() string {
	return c.settings[hosts.KeyHostString]
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the execution context in ctx.
func WithContext(ctx context.Context, hc Context) context.Context {
	return context.WithValue(ctx, hostContextKey, hc)
}

// FromContext retrieves the execution context from ctx.
func FromContext(ctx context.Context) (Context, bool) {
	hc, ok := ctx.Value(hostContextKey).(Context)
	return hc, ok
}

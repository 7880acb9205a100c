package hostctx

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/ehbdeploy/internal/core/hosts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Context Tests
// =============================================================================

func TestNew_ProfileOverridesParams(t *testing.T) {
	params := map[string]string{"git_branch": "main", "docker_registry": "reg.local"}
	profile := hosts.Profile{"host_string": "h0", "git_branch": "release"}

	hc := New("prod", params, profile)

	assert.Equal(t, "prod", hc.Host)
	assert.Equal(t, "release", hc.Get("git_branch"))
	assert.Equal(t, "reg.local", hc.Get("docker_registry"))
	assert.Equal(t, "h0", hc.HostString())
}

func TestNew_InputsNotRetained(t *testing.T) {
	params := map[string]string{"git_branch": "main"}
	profile := hosts.Profile{"host_string": "h0"}

	hc := New("prod", params, profile)
	params["git_branch"] = "other"
	profile["host_string"] = "other"

	assert.Equal(t, "main", hc.Get("git_branch"))
	assert.Equal(t, "h0", hc.HostString())
}

func TestContext_Require(t *testing.T) {
	hc := New("prod", nil, hosts.Profile{"host_string": "h0", "path": ""})

	v, err := hc.Require("host_string")
	require.NoError(t, err)
	assert.Equal(t, "h0", v)

	_, err = hc.Require("path")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hosts.ErrMissingSetting))

	var cfgErr *hosts.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "prod", cfgErr.Host)
	assert.Equal(t, "path", cfgErr.Key)
}

func TestContext_Keys(t *testing.T) {
	hc := New("prod", map[string]string{"b": "2"}, hosts.Profile{"a": "1", "host_string": "h"})
	assert.Equal(t, []string{"a", "b", "host_string"}, hc.Keys())
}

func TestFromContext_Unbound(t *testing.T) {
	hc, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, hc.Host)
	assert.Empty(t, hc.Keys())
}

func TestWithContext_RoundTrip(t *testing.T) {
	hc := New("prod", nil, hosts.Profile{"host_string": "h0"})
	ctx := WithContext(context.Background(), hc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "prod", got.Host)
	assert.Equal(t, "h0", got.HostString())
}

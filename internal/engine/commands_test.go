package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/ehbdeploy/internal/core/appconfig"
	"github.com/artpar/ehbdeploy/internal/core/deployment"
	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch_EveryOperationHasHandler(t *testing.T) {
	p := newFixture(t).build()

	for _, op := range deployment.Operations() {
		_, ok := p.handlers[op]
		assert.True(t, ok, "missing handler for %s", op)
	}
}

func TestDispatch_UnknownOperation(t *testing.T) {
	p := newFixture(t).build()

	_, err := p.Dispatch(context.Background(), deployment.Operation("deploy-container"), Request{Host: "production"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDispatch_BuildReturnsArtifact(t *testing.T) {
	p := newFixture(t).build()

	out, err := p.Dispatch(context.Background(), deployment.OpBuildContainer, Request{Host: "production"})
	require.NoError(t, err)

	require.NotNil(t, out.Artifact)
	assert.Equal(t, "ehb-service-main:abcdef1", out.Artifact.LocalTag())
}

func TestDispatch_PushPassesRevision(t *testing.T) {
	p := newFixture(t).build()

	out, err := p.Dispatch(context.Background(), deployment.OpPushToRepo, Request{Host: "production", Revision: "7654321"})
	require.NoError(t, err)
	assert.Equal(t, "7654321", out.Artifact.Revision)
}

func TestDispatch_AppConfigPassesOverrides(t *testing.T) {
	f := newFixture(t)
	f.store.entries["/ehb-service/config/production"] = []appconfig.Entry{
		{Key: "/ehb-service/config/production/DEBUG", Value: "false"},
	}
	p := f.build()

	out, err := p.Dispatch(context.Background(), deployment.OpAppConfig, Request{
		Host:      "production",
		Overrides: appconfig.Overrides{"DEBUG": appconfig.Set("true")},
	})
	require.NoError(t, err)
	assert.Equal(t, "-e DEBUG=true -e GIT_BRANCH=main", out.Variables.String())
}

func TestDispatch_UsesInstalledHandler(t *testing.T) {
	p := newFixture(t).build()
	p.handlers[deployment.OpReloadNginx] = func(context.Context, *Pipeline, Request) (Outcome, error) {
		return Outcome{Output: "replaced"}, nil
	}

	out, err := p.Dispatch(context.Background(), deployment.OpReloadNginx, Request{Host: "production"})
	require.NoError(t, err)
	assert.Equal(t, "replaced", out.Output)
}

// =============================================================================
// DispatchAll Tests
// =============================================================================

func TestDispatchAll_RunsHostsInOrder(t *testing.T) {
	f := newFixture(t)
	f.requested = []string{"staging", "production"}
	p := f.build()

	var visited []string
	err := p.DispatchAll(context.Background(), deployment.OpAppConfig, Request{}, func(host string, out Outcome) {
		visited = append(visited, host)
		assert.Equal(t, "-e GIT_BRANCH=main", out.Variables.String())
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"staging", "production"}, visited)
	assert.Equal(t, []string{"/ehb-service/config/staging", "/ehb-service/config/production"}, f.store.keys)
}

func TestDispatchAll_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.requested = []string{"staging", "production"}
	f.exec.failWith("sudo /etc/init.d/nginx reload", "nginx: configuration file test failed")
	p := f.build()

	var visited []string
	err := p.DispatchAll(context.Background(), deployment.OpReloadNginx, Request{}, func(host string, _ Outcome) {
		visited = append(visited, host)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload-nginx on staging")
	assert.Empty(t, visited)
	assert.Len(t, f.exec.seen(), 1)
}

func TestDispatchAll_NoHosts(t *testing.T) {
	f := newFixture(t)
	f.requested = nil
	p := f.build()

	err := p.DispatchAll(context.Background(), deployment.OpSetupEnv, Request{}, nil)
	assert.ErrorIs(t, err, hosts.ErrNoHosts)
}

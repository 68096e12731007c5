package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/mup/pkg/api"
)

func TestBuild(t *testing.T) {
	cfg := fullConfig()
	args := Args{
		BundlePath: "/tmp/bundle.tar.gz",
		Server:     cfg.Servers[0],
		Logs:       LogOptions{Follow: true},
	}

	tests := []struct {
		action string
		name   string
		steps  int
	}{
		{api.ActionSetup, "Setup (linux)", 11},
		{api.ActionDeploy, "Deploy app 'myapp' (linux)", 3},
		{api.ActionReconfig, "Updating configurations (linux)", 2},
		{api.ActionLogs, "Tailing logs (linux)", 1},
		{api.ActionStart, "Starting Application (linux)", 1},
		{api.ActionStop, "Stopping Application (linux)", 1},
		{api.ActionRestart, "Restarting Application (linux)", 1},
		{api.ActionPullDB, "Pulling Production Database (linux)", 10},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			p, err := Build(tt.action, cfg, args)
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name())
			assert.Equal(t, tt.steps, p.Len())
		})
	}
}

func TestBuild_DeployUsesConfiguredWaitTime(t *testing.T) {
	cfg := fullConfig()
	cfg.DeployCheckWaitTime = 42

	p, err := Build(api.ActionDeploy, cfg, Args{BundlePath: "/b.tar.gz"})
	require.NoError(t, err)
	assert.Equal(t, 42, p.Steps()[2].(RunScript).Vars["deployCheckWaitTime"])
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(api.ActionDeploy, fullConfig(), Args{})
	assert.ErrorContains(t, err, "bundle path is required")

	_, err = Build(api.ActionInit, fullConfig(), Args{})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Build("bogus", fullConfig(), Args{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

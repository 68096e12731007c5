package pipeline

import (
	"errors"
	"fmt"

	"github.com/systemstart/mup/pkg/api"
)

// ErrUnknownAction is returned by Build for actions without a pipeline.
var ErrUnknownAction = errors.New("unknown action")

// Args carries the action specific inputs that are not part of the
// descriptor.
type Args struct {
	// BundlePath is the packed bundle uploaded by deploy.
	BundlePath string
	// Server is the target of pulldb's local scp.
	Server api.Server
	Logs   LogOptions
}

// Build creates the pipeline for an action.
func Build(action string, cfg *api.Config, args Args) (*Pipeline, error) {
	switch action {
	case api.ActionSetup:
		return Setup(cfg), nil
	case api.ActionDeploy:
		if args.BundlePath == "" {
			return nil, fmt.Errorf("deploy: bundle path is required")
		}
		return Deploy(args.BundlePath, cfg.Env, cfg.WaitTime(), cfg.AppName), nil
	case api.ActionReconfig:
		return Reconfig(cfg.Env, cfg.AppName), nil
	case api.ActionLogs:
		return Logs(cfg.AppName, args.Logs), nil
	case api.ActionStart:
		return Start(cfg.AppName), nil
	case api.ActionStop:
		return Stop(cfg.AppName), nil
	case api.ActionRestart:
		return Restart(cfg.AppName), nil
	case api.ActionPullDB:
		return PullDatabase(args.Server, cfg.App, cfg.AppName), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

package pipeline

import (
	"fmt"
	"maps"
	"path"

	"github.com/systemstart/mup/pkg/api"
)

// Deploy uploads the bundle and the environment file, then runs the deploy
// script, which expects both at their fixed paths. A waitTime of zero means
// the default.
func Deploy(bundlePath string, env map[string]string, waitTime int, appName string) *Pipeline {
	if waitTime <= 0 {
		waitTime = api.DefaultDeployCheckWaitTime
	}

	return newPipeline(fmt.Sprintf("Deploy app '%s' (linux)", appName),
		CopyFile{
			Label: "Uploading bundle",
			Src:   bundlePath,
			Dest:  path.Join(StagingDir(appName), bundleFileName),
		},
		envFileStep(env, appName),
		RunScript{
			Label:  "Invoking deployment process",
			Script: template("deploy.sh"),
			Vars: Vars{
				"deployCheckWaitTime": waitTime,
				"appName":             appName,
			},
		},
	)
}

// Reconfig rewrites the environment file and restarts the app.
func Reconfig(env map[string]string, appName string) *Pipeline {
	return newPipeline("Updating configurations (linux)",
		envFileStep(env, appName),
		restartStep(appName),
	)
}

func envFileStep(env map[string]string, appName string) CopyFile {
	env = maps.Clone(env)
	if env == nil {
		env = map[string]string{}
	}
	return CopyFile{
		Label: "Setting up Environment Variables",
		Src:   template("env.sh"),
		Dest:  EnvFilePath(appName),
		Vars: Vars{
			"env":     env,
			"appName": appName,
		},
	}
}

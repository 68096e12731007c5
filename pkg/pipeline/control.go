package pipeline

import (
	"path"
	"strconv"
	"strings"
)

// Restart stops the app, ignoring a failure when it is not running, then
// starts it.
func Restart(appName string) *Pipeline {
	return newPipeline("Restarting Application (linux)", restartStep(appName))
}

// Start fails when the app cannot be started.
func Start(appName string) *Pipeline {
	return newPipeline("Starting Application (linux)", RunCommand{
		Label:   "Starting app",
		Command: "(sudo start " + appName + ")",
	})
}

// Stop fails when the app is not running.
func Stop(appName string) *Pipeline {
	return newPipeline("Stopping Application (linux)", RunCommand{
		Label:   "Stopping app",
		Command: "(sudo stop " + appName + ")",
	})
}

func restartStep(appName string) RunCommand {
	return RunCommand{
		Label:   "Restarting app",
		Command: "(sudo stop " + appName + " || :) && (sudo start " + appName + ")",
	}
}

// LogOptions mirror the tail flags accepted by the logs action.
type LogOptions struct {
	Follow bool
	Lines  int
}

// Logs tails the app's upstart log.
func Logs(appName string, opts LogOptions) *Pipeline {
	args := []string{"sudo", "tail"}
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Lines > 0 {
		args = append(args, "-n", strconv.Itoa(opts.Lines))
	}
	args = append(args, path.Join(UpstartLogDir, appName+".log"))

	return newPipeline("Tailing logs (linux)", RunCommand{
		Label:   "Tailing logs",
		Command: strings.Join(args, " "),
		Stream:  true,
	})
}

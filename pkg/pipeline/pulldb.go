package pipeline

import (
	"fmt"
	"log/slog"
	"net"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/systemstart/mup/pkg/api"
)

const (
	// LocalMongoPort keeps the pulled database away from a running
	// development instance.
	LocalMongoPort  = 3002
	localMongoHost  = "127.0.0.1"
	localMongoDB    = "meteor"
	mongoStartDelay = time.Second
	mongoReadyWait  = 30 * time.Second
)

// PullDatabase dumps the app's remote database, brings the archive to the
// working directory and restores it into a throwaway local mongod listening
// on LocalMongoPort.
//
// The mongod started by step 8 is handed to step 9 through a ProcessSlot: the
// launch step's OnSuccess holds the handle and the restore step's OnSuccess
// releases it, so the slot is the only link between the two. mongod is
// terminated when the restore succeeds. When the restore fails the pipeline
// stops there: mongod keeps running and the expanded dump is left on disk.
func PullDatabase(server api.Server, appDir, appName string) *Pipeline {
	var (
		stagingDir = StagingDir(appName)
		dumpDir    = path.Join(stagingDir, "dump") + "/"
		dumpZip    = path.Join(stagingDir, "dump.zip")
		// zip stores the dump without its leading slash, so it unpacks
		// under ./opt/ locally.
		localDump = path.Join("opt", appName, "tmp", "dump", appName)
		mongod    ProcessSlot
	)

	return newPipeline("Pulling Production Database (linux)",
		RunCommand{
			Label:   "Dumping data (may take some time)",
			Command: fmt.Sprintf("(sudo mongodump -d %s -o %s)", appName, dumpDir),
		},
		RunCommand{
			Label:   "Zipping dump",
			Command: fmt.Sprintf("(sudo zip -r %s %s)", dumpZip, dumpDir),
		},
		retrieveDumpStep(server, dumpZip),
		RunCommand{
			Label:   "Deleting remote dump1",
			Command: fmt.Sprintf("(sudo rm -rf %s)", dumpDir),
		},
		RunCommand{
			Label:   "Deleting remote dump2",
			Command: fmt.Sprintf("(sudo rm %s)", dumpZip),
		},
		RunLocal{
			Label:   "Unzipping local dump1",
			Command: "unzip dump.zip",
		},
		RunLocal{
			Label:   "Deleting local dump",
			Command: "rm dump.zip",
		},
		RunLocal{
			Label:   "Starting local mongo database instance",
			Command: "mongod",
			Args: []string{
				"--bind_ip", localMongoHost,
				"--smallfiles",
				"--nohttpinterface",
				"--port", strconv.Itoa(LocalMongoPort),
				"--dbpath", "./",
			},
			Dir:        filepath.Join(appDir, ".meteor", "local", "db"),
			Deferred:   true,
			DelayAfter: mongoStartDelay,
			Ready: &Readiness{
				Addr:    net.JoinHostPort(localMongoHost, strconv.Itoa(LocalMongoPort)),
				Timeout: mongoReadyWait,
			},
			OnSuccess: func(h Handle) {
				if !mongod.Hold(h) {
					slog.Warn("local mongod handle already taken")
				}
			},
		},
		RunLocal{
			Label: "Importing dump",
			Command: fmt.Sprintf("mongorestore --db %s -host %s --port %d --drop %s",
				localMongoDB, localMongoHost, LocalMongoPort, localDump),
			OnSuccess: func(Handle) {
				if err := mongod.Release(); err != nil {
					slog.Warn("failed to stop local mongod", "error", err)
				}
			},
		},
		RunLocal{
			Label:   "Deleting local dump2",
			Command: "rm -rf opt/",
		},
	)
}

func retrieveDumpStep(server api.Server, dumpZip string) RunLocal {
	args := []string{}
	if server.Pem != "" {
		args = append(args, "-i", server.Pem)
	}
	if server.Port > 0 && server.Port != api.DefaultSSHPort {
		args = append(args, "-P", strconv.Itoa(server.Port))
	}
	args = append(args, server.Address()+":"+dumpZip, ".")

	step := RunLocal{
		Label:   "Retrieving dump",
		Command: "scp",
		Args:    args,
	}
	if server.Pem == "" && server.Password != "" {
		step.Command = "sshpass"
		step.Args = append([]string{"-e", "scp"}, args...)
		step.Env = []string{"SSHPASS=" + server.Password}
	}
	return step
}

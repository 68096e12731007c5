package pipeline

import "path"

// Asset locations, relative to the engine's embedded asset tree.
const (
	ScriptDir   = "scripts/linux"
	TemplateDir = "templates/linux"
)

// Fixed remote locations.
const (
	UpstartDir     = "/etc/init"
	MongoConfPath  = "/etc/mongodb.conf"
	StudRoot       = "/opt/stud"
	UpstartLogDir  = "/var/log/upstart"
	bundleFileName = "bundle.tar.gz"
)

func script(name string) string   { return path.Join(ScriptDir, name) }
func template(name string) string { return path.Join(TemplateDir, name) }

// AppRoot is /opt/<appName>.
func AppRoot(appName string) string { return path.Join("/opt", appName) }

// StagingDir is where bundles and dumps are written before use.
func StagingDir(appName string) string { return path.Join(AppRoot(appName), "tmp") }

// EnvFilePath is the environment script sourced by the upstart job.
func EnvFilePath(appName string) string { return path.Join(AppRoot(appName), "config", "env.sh") }

// UnitPath is the upstart job file for a service.
func UnitPath(service string) string { return path.Join(UpstartDir, service+".conf") }

package api

const (
	DefaultConfigFile   = "mup.yaml"
	LegacyConfigFile    = "mup.json"
	DefaultSettingsFile = "settings.json"

	DefaultAppDir              = "."
	DefaultDeployCheckWaitTime = 10
	DefaultMeteorBinary        = "meteor"
	DefaultSSHPort             = 22

	ActionInit     = "init"
	ActionSetup    = "setup"
	ActionDeploy   = "deploy"
	ActionReconfig = "reconfig"
	ActionLogs     = "logs"
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionRestart  = "restart"
	ActionPullDB   = "pulldb"
)

// Actions lists the CLI action vocabulary in help order.
var Actions = []string{
	ActionInit,
	ActionSetup,
	ActionDeploy,
	ActionReconfig,
	ActionLogs,
	ActionStart,
	ActionStop,
	ActionRestart,
	ActionPullDB,
}

// Config is the deployment descriptor (mup.yaml, or the legacy mup.json).
type Config struct {
	AppName             string            `yaml:"appName"`
	App                 string            `yaml:"app"`
	Servers             []Server          `yaml:"servers"`
	Env                 map[string]string `yaml:"env"`
	EnvFile             string            `yaml:"envFile,omitempty"`
	SetupNode           bool              `yaml:"setupNode"`
	NodeVersion         string            `yaml:"nodeVersion,omitempty"`
	SetupPhantom        bool              `yaml:"setupPhantom"`
	SetupMongo          bool              `yaml:"setupMongo"`
	SSL                 *SSLConfig        `yaml:"ssl,omitempty"`
	DeployCheckWaitTime int               `yaml:"deployCheckWaitTime,omitempty"`
	BundleExclude       []string          `yaml:"bundleExclude,omitempty"`
	MeteorBinary        string            `yaml:"meteorBinary,omitempty"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// Server is the connection to one target host.
type Server struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Pem      string `yaml:"pem,omitempty"`
	Password string `yaml:"password,omitempty"`
	Port     int    `yaml:"port,omitempty"`
}

// SSLConfig enables TLS termination in front of the app.
type SSLConfig struct {
	Pem         string `yaml:"pem"`
	BackendPort int    `yaml:"backendPort"`
}

// WaitTime returns the deploy check wait time in seconds.
func (c *Config) WaitTime() int {
	if c.DeployCheckWaitTime > 0 {
		return c.DeployCheckWaitTime
	}
	return DefaultDeployCheckWaitTime
}

// SSHPort returns the configured port or the ssh default.
func (s Server) SSHPort() int {
	if s.Port > 0 {
		return s.Port
	}
	return DefaultSSHPort
}

// Address is user@host, as used by ssh and scp.
func (s Server) Address() string {
	return s.Username + "@" + s.Host
}

package api

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// appName ends up in file paths, upstart job names and database names.
var validAppName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// env names are written unquoted into the sourced env.sh.
var validEnvName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the deployment descriptor for errors.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("appName is required")
	}
	if !validAppName.MatchString(c.AppName) {
		return fmt.Errorf("appName %q must match %s", c.AppName, validAppName)
	}

	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server is required")
	}
	for i, s := range c.Servers {
		if err := validateServer(s); err != nil {
			return fmt.Errorf("server %d: %w", i, err)
		}
	}

	if c.SetupNode && c.NodeVersion == "" {
		return fmt.Errorf("nodeVersion is required when setupNode is set")
	}

	if c.SSL != nil {
		if err := validateSSL(c.SSL); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.Env)) {
		if !validEnvName.MatchString(name) {
			return fmt.Errorf("env name %q must match %s", name, validEnvName)
		}
	}

	if c.DeployCheckWaitTime < 0 {
		return fmt.Errorf("deployCheckWaitTime must be positive, got %d", c.DeployCheckWaitTime)
	}

	return nil
}

func validateServer(s Server) error {
	if s.Host == "" {
		return fmt.Errorf("host is required")
	}
	if s.Username == "" {
		return fmt.Errorf("username is required")
	}
	if s.Pem == "" && s.Password == "" {
		return fmt.Errorf("pem or password is required")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d is out of range", s.Port)
	}
	return nil
}

func validateSSL(ssl *SSLConfig) error {
	if ssl.Pem == "" {
		return fmt.Errorf("ssl.pem is required")
	}
	if ssl.BackendPort <= 0 || ssl.BackendPort > 65535 {
		return fmt.Errorf("ssl.backendPort %d is out of range", ssl.BackendPort)
	}
	return nil
}

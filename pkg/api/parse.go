package api

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned by FindConfig when neither descriptor exists.
var ErrNoConfig = errors.New("no mup.yaml or mup.json found")

// FindConfig returns the descriptor path in dir, preferring mup.yaml over
// the legacy mup.json.
func FindConfig(dir string) (string, error) {
	for _, name := range []string{DefaultConfigFile, LegacyConfigFile} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfig, dir)
}

// LoadConfig reads a descriptor, resolves its relative paths, merges the
// optional env file and validates the result.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	cfg.FilePath = absPath
	cfg.Dir = filepath.Dir(absPath)

	cfg.applyDefaults()
	cfg.resolvePaths()

	if err := cfg.mergeEnvFile(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", filename, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App == "" {
		c.App = DefaultAppDir
	}
	if c.MeteorBinary == "" {
		c.MeteorBinary = DefaultMeteorBinary
	}
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
}

func (c *Config) resolvePaths() {
	c.App = c.resolve(c.App)
	c.EnvFile = c.resolve(c.EnvFile)
	if c.SSL != nil {
		c.SSL.Pem = c.resolve(c.SSL.Pem)
	}
	for i := range c.Servers {
		c.Servers[i].Pem = c.resolve(expandHome(c.Servers[i].Pem))
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// mergeEnvFile layers the descriptor's env over the values read from EnvFile.
func (c *Config) mergeEnvFile() error {
	if c.EnvFile == "" {
		return nil
	}

	fromFile, err := godotenv.Read(c.EnvFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.EnvFile, err)
	}

	merged := make(map[string]string, len(fromFile)+len(c.Env))
	maps.Copy(merged, fromFile)
	maps.Copy(merged, c.Env)
	c.Env = merged
	return nil
}

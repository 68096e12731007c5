package api

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sample.mup.yaml
var sampleConfig []byte

// ErrAlreadyInitialized is returned by WriteSample when a descriptor exists.
var ErrAlreadyInitialized = errors.New("project already initialized")

// WriteSample writes a sample mup.yaml and an empty settings.json into dir.
func WriteSample(dir string) error {
	if existing, err := FindConfig(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, existing)
	} else if !errors.Is(err, ErrNoConfig) {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), sampleConfig, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", DefaultConfigFile, err)
	}

	settings := filepath.Join(dir, DefaultSettingsFile)
	if _, err := os.Stat(settings); os.IsNotExist(err) {
		if err := os.WriteFile(settings, []byte("{}\n"), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", DefaultSettingsFile, err)
		}
	}
	return nil
}

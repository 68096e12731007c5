package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_Valid(t *testing.T) {
	content := `
appName: myapp
app: ../src
servers:
  - host: example.com
    username: root
    pem: keys/id_rsa
env:
  PORT: 80
  ROOT_URL: http://example.com
setupNode: true
nodeVersion: 0.10.36
setupMongo: true
ssl:
  pem: ssl.pem
  backendPort: 80
`
	dir := t.TempDir()
	f := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dir != dir {
		t.Errorf("expected Dir=%q, got %q", dir, cfg.Dir)
	}
	if cfg.Env["PORT"] != "80" {
		t.Errorf("expected PORT=80, got %q", cfg.Env["PORT"])
	}
	if want := filepath.Join(dir, "keys/id_rsa"); cfg.Servers[0].Pem != want {
		t.Errorf("expected pem %q, got %q", want, cfg.Servers[0].Pem)
	}
	if want := filepath.Join(dir, "ssl.pem"); cfg.SSL.Pem != want {
		t.Errorf("expected ssl pem %q, got %q", want, cfg.SSL.Pem)
	}
	if want := filepath.Join(dir, "../src"); cfg.App != want {
		t.Errorf("expected app %q, got %q", want, cfg.App)
	}
	if cfg.MeteorBinary != DefaultMeteorBinary {
		t.Errorf("expected default meteor binary, got %q", cfg.MeteorBinary)
	}
	if cfg.WaitTime() != DefaultDeployCheckWaitTime {
		t.Errorf("expected default wait time, got %d", cfg.WaitTime())
	}
}

func TestLoadConfig_LegacyJSON(t *testing.T) {
	content := `{
  "servers": [{"host": "1.2.3.4", "username": "ubuntu", "password": "secret"}],
  "setupMongo": false,
  "appName": "legacy",
  "app": "/srv/legacy",
  "env": {"PORT": 3000},
  "deployCheckWaitTime": 30
}`
	dir := t.TempDir()
	f := filepath.Join(dir, LegacyConfigFile)
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppName != "legacy" {
		t.Errorf("expected appName legacy, got %q", cfg.AppName)
	}
	if cfg.App != "/srv/legacy" {
		t.Errorf("absolute app path should be kept, got %q", cfg.App)
	}
	if cfg.Env["PORT"] != "3000" {
		t.Errorf("expected PORT=3000, got %q", cfg.Env["PORT"])
	}
	if cfg.WaitTime() != 30 {
		t.Errorf("expected wait time 30, got %d", cfg.WaitTime())
	}
}

func TestLoadConfig_EnvFileMerge(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.production"), []byte("MONGO_URL=mongodb://db\nPORT=8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	content := `
appName: merged
servers:
  - {host: h, username: u, pem: k}
envFile: .env.production
env:
  PORT: "80"
`
	f := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env["MONGO_URL"] != "mongodb://db" {
		t.Errorf("expected MONGO_URL from env file, got %q", cfg.Env["MONGO_URL"])
	}
	if cfg.Env["PORT"] != "80" {
		t.Errorf("descriptor env should override env file, got PORT=%q", cfg.Env["PORT"])
	}
}

func TestLoadConfig_EnvFileMissing(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, DefaultConfigFile)
	content := "appName: a\nservers: [{host: h, username: u, pem: k}]\nenvFile: nope.env\n"
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(f)
	if err == nil {
		t.Fatal("expected error for missing env file")
	}
	if !strings.Contains(err.Error(), "loading env file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfig_EnvFileBadName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MY.VAR=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f := filepath.Join(dir, DefaultConfigFile)
	content := "appName: a\nservers: [{host: h, username: u, pem: k}]\nenvFile: .env\n"
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(f)
	if err == nil {
		t.Fatal("expected error for env name from env file")
	}
	if !strings.Contains(err.Error(), `env name "MY.VAR"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/mup.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(f, []byte("{{invalid"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(f)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFails(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(f, []byte("appName: myapp\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(f)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validating config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindConfig(t *testing.T) {
	dir := t.TempDir()

	if _, err := FindConfig(dir); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, LegacyConfigFile), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FindConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != LegacyConfigFile {
		t.Errorf("expected legacy descriptor, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = FindConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != DefaultConfigFile {
		t.Errorf("mup.yaml should win over mup.json, got %q", got)
	}
}

func TestWriteSample(t *testing.T) {
	dir := t.TempDir()

	if err := WriteSample(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := LoadConfig(filepath.Join(dir, DefaultConfigFile))
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if cfg.AppName != "meteor" {
		t.Errorf("expected sample appName meteor, got %q", cfg.AppName)
	}

	settings, err := os.ReadFile(filepath.Join(dir, DefaultSettingsFile))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(settings)) != "{}" {
		t.Errorf("unexpected settings content %q", settings)
	}

	if err := WriteSample(dir); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized on second init, got %v", err)
	}
}

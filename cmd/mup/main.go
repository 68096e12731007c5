package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/systemstart/mup/pkg/api"
	"github.com/systemstart/mup/pkg/bundle"
	"github.com/systemstart/mup/pkg/engine"
	"github.com/systemstart/mup/pkg/logging"
	"github.com/systemstart/mup/pkg/pipeline"
)

var version = "dev"

const (
	_ = iota
	exitUsage
	exitLoggingSetupFailed
	exitDotenvError
	exitInitFailed
	exitLoadConfigurationFileFailed
	exitSSHPassMissing
	exitBundleFailed
	exitPipelineFailed
)

var (
	configFile  string
	bundlePath  string
	follow      bool
	lines       int
	loggingType string
	logLevel    string
	showVersion bool
)

func init() {
	pflag.StringVarP(&configFile, "config", "c", "", "deployment descriptor (default mup.yaml, then mup.json)")
	pflag.StringVar(&bundlePath, "bundle", "", "deploy this bundle (.tar.gz or directory) instead of running meteor build")
	pflag.BoolVarP(&follow, "follow", "f", false, "logs: keep following the log")
	pflag.IntVarP(&lines, "lines", "n", 0, "logs: number of lines to show")
	pflag.StringVar(&loggingType, "logging-type", logging.Tint, "logging type: json, text or tint")
	pflag.StringVar(&logLevel, "log-level", "info", "logging level: debug, info, warn, error")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Usage = printHelp
}

func main() {
	pflag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Initialize(loggingType, logLevel, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingSetupFailed)
	}

	action := pflag.Arg(0)
	if !slices.Contains(api.Actions, action) {
		printHelp()
		os.Exit(exitUsage)
	}

	includeEnv()

	if action == api.ActionInit {
		runInit()
		return
	}

	cfg := loadConfig()
	checkSSHPass(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := pipeline.Args{Logs: pipeline.LogOptions{Follow: follow, Lines: lines}}
	cleanup := func() {}
	if action == api.ActionDeploy {
		args.BundlePath, cleanup = prepareBundle(ctx, cfg)
	}

	err := runAction(ctx, action, cfg, args)
	cleanup()
	if err != nil {
		slog.Error("action failed", "action", action, "error", err)
		stop()
		os.Exit(exitPipelineFailed)
	}

	slog.Info("done", "action", action)
}

// runAction runs the action's pipeline against each target server in turn.
func runAction(ctx context.Context, action string, cfg *api.Config, args pipeline.Args) error {
	var failed []string
	for _, server := range targets(action, args.Logs, cfg.Servers) {
		args.Server = server
		p, err := pipeline.Build(action, cfg, args)
		if err != nil {
			return err
		}

		if err := engine.New(server, engine.Options{}).Run(ctx, p); err != nil {
			slog.Error("pipeline failed", "server", server.Host, "error", err)
			failed = append(failed, server.Host)
			if errors.Is(ctx.Err(), context.Canceled) {
				break
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d server(s) failed: %v", len(failed), failed)
	}
	return nil
}

// targets picks the servers an action runs against. pulldb only reads from
// the first server, and a followed log never returns, so logs -f also stays
// on the first one.
func targets(action string, logs pipeline.LogOptions, servers []api.Server) []api.Server {
	single := action == api.ActionPullDB || (action == api.ActionLogs && logs.Follow)
	if !single || len(servers) <= 1 {
		return servers
	}
	skipped := make([]string, 0, len(servers)-1)
	for _, s := range servers[1:] {
		skipped = append(skipped, s.Host)
	}
	slog.Warn("action only runs against the first server", "action", action, "server", servers[0].Host, "skipped", skipped)
	return servers[:1]
}

func runInit() {
	wd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to determine working directory", "error", err)
		os.Exit(exitInitFailed)
	}
	if err := api.WriteSample(wd); err != nil {
		slog.Error("init failed", "error", err)
		os.Exit(exitInitFailed)
	}
	slog.Info("empty project initialized", "config", api.DefaultConfigFile, "settings", api.DefaultSettingsFile)
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Debug("using .env file")
	}
}

func loadConfig() *api.Config {
	filename := configFile
	if filename == "" {
		found, err := api.FindConfig(".")
		if err != nil {
			slog.Error("no deployment descriptor, run `mup init` first", "error", err)
			os.Exit(exitLoadConfigurationFileFailed)
		}
		filename = found
	}

	cfg, err := api.LoadConfig(filename)
	if err != nil {
		slog.Error("failed to load configuration", "filename", filename, "error", err)
		os.Exit(exitLoadConfigurationFileFailed)
	}
	return cfg
}

func checkSSHPass(cfg *api.Config) {
	for _, s := range cfg.Servers {
		if s.Pem == "" && s.Password != "" && !engine.CheckSSHPass() {
			slog.Error("sshpass is required for password logins, install it or use a pem key", "server", s.Host)
			os.Exit(exitSSHPassMissing)
		}
	}
}

// prepareBundle returns the archive to upload and a cleanup for anything it
// created.
func prepareBundle(ctx context.Context, cfg *api.Config) (string, func()) {
	st, err := statBundleFlag()
	if err != nil {
		slog.Error("failed to check bundle", "bundle", bundlePath, "error", err)
		os.Exit(exitBundleFailed)
	}
	if st != nil && !st.IsDir() {
		return bundlePath, func() {}
	}

	tmp, err := os.MkdirTemp("", "mup-bundle-")
	if err != nil {
		slog.Error("failed to create build directory", "error", err)
		os.Exit(exitBundleFailed)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmp); err != nil {
			slog.Warn("failed to remove build directory", "path", tmp, "error", err)
		}
	}

	src := bundlePath
	if st == nil {
		src, err = bundle.Build(ctx, cfg.MeteorBinary, cfg.App, tmp)
		if err != nil {
			cleanup()
			slog.Error("failed to build bundle", "app", cfg.App, "error", err)
			os.Exit(exitBundleFailed)
		}
	}

	archive := filepath.Join(tmp, "bundle.tar.gz")
	if err := bundle.Pack(src, archive, cfg.BundleExclude); err != nil {
		cleanup()
		slog.Error("failed to pack bundle", "source", src, "error", err)
		os.Exit(exitBundleFailed)
	}
	return archive, cleanup
}

func statBundleFlag() (os.FileInfo, error) {
	if bundlePath == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(bundlePath)
	if err != nil {
		return nil, err
	}
	bundlePath = abs
	return os.Stat(abs)
}

func printHelp() {
	fmt.Fprintln(os.Stderr, "\nUsage: mup <action> [flags]")
	fmt.Fprintln(os.Stderr, "\nValid Actions")
	fmt.Fprintln(os.Stderr, "-------------")
	fmt.Fprintln(os.Stderr, "init          - Initialize a Meteor Up project")
	fmt.Fprintln(os.Stderr, "setup         - Setup the server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "deploy        - Deploy app to server")
	fmt.Fprintln(os.Stderr, "reconfig      - Reconfigure the server and restart")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "logs [-f -n]  - Access logs")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "start         - Start your app instances")
	fmt.Fprintln(os.Stderr, "stop          - Stop your app instances")
	fmt.Fprintln(os.Stderr, "restart       - Restart your app instances")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "pulldb        - Pull data from remote database")
	fmt.Fprintln(os.Stderr, "\nFlags")
	fmt.Fprintln(os.Stderr, "-----")
	pflag.PrintDefaults()
}

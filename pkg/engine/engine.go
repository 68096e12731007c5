// Package engine executes pipelines against one server: remote steps through
// the system ssh client, local steps as child processes.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/systemstart/mup/pkg/api"
	"github.com/systemstart/mup/pkg/assets"
	"github.com/systemstart/mup/pkg/pipeline"
)

const defaultProbeInterval = 250 * time.Millisecond

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	// Assets resolves relative script and template paths.
	Assets fs.FS
	// Stdout receives the output of streamed commands.
	Stdout io.Writer
	Runner Runner
	Dial   func(ctx context.Context, network, addr string) (net.Conn, error)
	// ProbeInterval is the pause between readiness probes.
	ProbeInterval time.Duration
}

// Engine runs pipelines against a single server.
type Engine struct {
	server api.Server
	opts   Options
}

// New creates an engine for server.
func New(server api.Server, opts Options) *Engine {
	if opts.Assets == nil {
		opts.Assets = assets.FS
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = defaultProbeInterval
	}
	return &Engine{server: server, opts: opts}
}

// Run executes the steps of p in order. The first failing step aborts the
// rest of the pipeline.
func (e *Engine) Run(ctx context.Context, p *pipeline.Pipeline) error {
	log := slog.With("pipeline", p.Name(), "server", e.server.Host)
	log.Info("running pipeline", "steps", p.Len())

	for i, step := range p.Steps() {
		log.Info("running step", "step", step.Name(), "index", i+1)
		start := time.Now()
		if err := e.runStep(ctx, step); err != nil {
			log.Error("step failed", "step", step.Name(), "error", err)
			return fmt.Errorf("step %d %q failed: %w", i+1, step.Name(), err)
		}
		log.Debug("step finished", "step", step.Name(), "duration", time.Since(start))
	}

	log.Info("pipeline succeeded")
	return nil
}

func (e *Engine) runStep(ctx context.Context, step pipeline.Step) error {
	switch s := step.(type) {
	case pipeline.CopyFile:
		return e.copyFile(ctx, s)
	case pipeline.RunScript:
		return e.runScript(ctx, s)
	case pipeline.RunCommand:
		return e.runCommand(ctx, s)
	case pipeline.RunLocal:
		return e.runLocal(ctx, s)
	default:
		return fmt.Errorf("unsupported step type %T", step)
	}
}

func (e *Engine) copyFile(ctx context.Context, s pipeline.CopyFile) error {
	src, err := e.open(s.Src)
	if err != nil {
		return err
	}
	defer src.Close()

	var body io.Reader = src
	if s.Vars != nil {
		content, err := io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.Src, err)
		}
		rendered, err := render(s.Src, content, s.Vars)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", s.Src, err)
		}
		body = bytes.NewReader(rendered)
	}

	remote := fmt.Sprintf("sudo mkdir -p %s && sudo tee %s > /dev/null",
		shellQuote(path.Dir(s.Dest)), shellQuote(s.Dest))
	cmd := sshCommand(e.server, remote)
	cmd.Stdin = body
	cmd.Label = s.Label
	return e.opts.Runner.Run(ctx, cmd)
}

func (e *Engine) runScript(ctx context.Context, s pipeline.RunScript) error {
	src, err := e.open(s.Script)
	if err != nil {
		return err
	}
	content, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.Script, err)
	}

	script, err := render(s.Script, content, s.Vars)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", s.Script, err)
	}

	cmd := sshCommand(e.server, "bash -s")
	cmd.Stdin = bytes.NewReader(script)
	cmd.Label = s.Label
	return e.opts.Runner.Run(ctx, cmd)
}

func (e *Engine) runCommand(ctx context.Context, s pipeline.RunCommand) error {
	cmd := sshCommand(e.server, s.Command)
	cmd.Label = s.Label
	if s.Stream {
		cmd.Stdout = e.opts.Stdout
	}
	return e.opts.Runner.Run(ctx, cmd)
}

func (e *Engine) runLocal(ctx context.Context, s pipeline.RunLocal) error {
	cmd := Command{Name: s.Command, Args: s.Args, Dir: s.Dir, Env: s.Env, Label: s.Label}
	if len(s.Args) == 0 {
		cmd.Name, cmd.Args = "sh", []string{"-c", s.Command}
	}

	if !s.Deferred {
		if err := e.opts.Runner.Run(ctx, cmd); err != nil {
			return err
		}
		if s.OnSuccess != nil {
			s.OnSuccess(nil)
		}
		return sleep(ctx, s.DelayAfter)
	}

	proc, err := e.opts.Runner.Start(cmd)
	if err != nil {
		return err
	}

	// Until OnSuccess takes the process it belongs to this step.
	if err := e.awaitStarted(ctx, s, proc); err != nil {
		if termErr := proc.Terminate(); termErr != nil {
			slog.Warn("failed to stop background process", "step", s.Label, "error", termErr)
		}
		return err
	}

	if s.OnSuccess != nil {
		s.OnSuccess(proc)
	}
	return nil
}

// awaitStarted waits the fixed DelayAfter and then, when configured, for
// the readiness probe. Without a probe the next step relies on the delay
// alone.
func (e *Engine) awaitStarted(ctx context.Context, s pipeline.RunLocal, proc Process) error {
	if err := sleep(ctx, s.DelayAfter); err != nil {
		return err
	}
	if s.Ready == nil {
		return nil
	}
	return e.waitReady(ctx, s.Ready, proc)
}

// open resolves relative paths against the embedded assets and absolute
// paths against the local filesystem.
func (e *Engine) open(name string) (io.ReadCloser, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if filepath.IsAbs(name) {
		f, err = os.Open(name)
	} else {
		f, err = e.opts.Assets.Open(name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}
